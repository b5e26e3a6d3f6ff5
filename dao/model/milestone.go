package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/techopolis/tracker/pkg/choices"
)

// Page is a named scenario or URL within a project, unique per
// (project, name).
type Page struct {
	gorm.Model
	ProjectID uint `gorm:"not null;uniqueIndex:uq_project_page,priority:1"`
	Project   *Project

	Name        string   `gorm:"type:varchar(200);not null;uniqueIndex:uq_project_page,priority:2"`
	Description string   `gorm:"type:text"`
	PageType    PageType `gorm:"type:varchar(20);not null;default:web"`
	URL         string   `gorm:"type:varchar(255)"`

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`
}

// Milestone tracks project progress. Its type is a free-text key resolved
// against the owning ProjectType's milestone choices, and its status gates
// client visibility of the milestone's issues once published.
type Milestone struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index"`
	Project   *Project

	Name          string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text"`
	MilestoneType string          `gorm:"type:varchar(50)"`
	Status        MilestoneStatus `gorm:"type:varchar(20);not null;default:not_started"`

	DueDate       *time.Time `gorm:"type:date"`
	CompletedDate *time.Time `gorm:"type:date"`

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`

	Issues []Issue `gorm:"constraint:OnDelete:CASCADE"`
}

// TypeLabel resolves the milestone type key against the project type's
// milestone choices, falling back to the raw key.
func (m *Milestone) TypeLabel() string {
	if m.Project == nil || m.Project.ProjectType == nil {
		return m.MilestoneType
	}
	return choices.ResolveLabel(m.Project.ProjectType.MilestoneChoices.Data(), m.MilestoneType)
}

// IsPublished reports whether the milestone's issues are visible to
// client-role users.
func (m *Milestone) IsPublished() bool {
	return m.Status == MilestonePublished
}
