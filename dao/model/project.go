package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/pkg/choices"
	"github.com/techopolis/tracker/pkg/fieldspec"
)

// ProjectType is a named template (e.g. Accessibility, App Development)
// defining which statuses, milestone types and issue fields are valid for
// projects of that type, without schema migration.
type ProjectType struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;type:varchar(100);not null"`
	Slug        string `gorm:"uniqueIndex;type:varchar(100);not null"`
	Description string `gorm:"type:text"`

	// Whether standards/violations apply to projects of this type.
	SupportsStandards bool `gorm:"not null;default:false"`

	// Stored as [["key","Display Name"], ...].
	StatusChoices    datatypes.JSONType[choices.List] `gorm:"type:jsonb"`
	MilestoneChoices datatypes.JSONType[choices.List] `gorm:"type:jsonb"`

	// Dynamic issue field schema for this type.
	IssueFields datatypes.JSONType[[]fieldspec.Descriptor] `gorm:"type:jsonb"`
}

// StatusChoiceList returns the type's custom status choices, or the default
// triple when none are defined. Used to populate forms for new projects;
// label resolution never substitutes defaults.
func (t *ProjectType) StatusChoiceList() choices.List {
	if list := t.StatusChoices.Data(); len(list) > 0 {
		return list
	}
	return choices.DefaultProjectStatuses
}

// Project belongs to one client and one project type. Status is a free-text
// key resolved against the type's status choices at read time.
type Project struct {
	gorm.Model
	Name string `gorm:"type:varchar(200);not null"`

	ClientID uint `gorm:"not null;index"`
	Client   *Client

	// PROTECT semantics: deleting a ProjectType is refused while projects
	// reference it.
	ProjectTypeID uint         `gorm:"not null;index"`
	ProjectType   *ProjectType `gorm:"constraint:OnDelete:RESTRICT"`

	Status string `gorm:"type:varchar(50);not null;default:not_started"`
	Notes  string `gorm:"type:text"`

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`

	// Both staff and client users; disambiguated by platform role at read
	// time, not stored separately.
	AssignedTo []User `gorm:"many2many:project_assignments"`

	Pages      []Page             `gorm:"constraint:OnDelete:CASCADE"`
	Milestones []Milestone        `gorm:"constraint:OnDelete:CASCADE"`
	Issues     []Issue            `gorm:"constraint:OnDelete:CASCADE"`
	Violations []ProjectViolation `gorm:"constraint:OnDelete:CASCADE"`
}

// StatusLabel resolves the display label for the project's status key
// against the owning type's choice list, falling back to the raw key.
func (p *Project) StatusLabel() string {
	if p.ProjectType == nil {
		return p.Status
	}
	return choices.ResolveLabel(p.ProjectType.StatusChoices.Data(), p.Status)
}
