package model

import (
	"strings"

	"gorm.io/gorm"
)

// Standard is a versioned compliance standard, e.g. WCAG 2.1.
type Standard struct {
	gorm.Model
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex:uq_standard_version,priority:1"`
	Version     string `gorm:"type:varchar(50);uniqueIndex:uq_standard_version,priority:2"`
	Description string `gorm:"type:text"`
	URL         string `gorm:"type:varchar(255)"`

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`

	Violations []Violation `gorm:"constraint:OnDelete:CASCADE"`
}

// DisplayName returns "Name Version", trimmed when version is empty.
func (s *Standard) DisplayName() string {
	return strings.TrimSpace(s.Name + " " + s.Version)
}

// Violation is a criterion of a standard, e.g. a specific WCAG rule.
type Violation struct {
	gorm.Model
	StandardID uint `gorm:"not null;uniqueIndex:uq_violation_name,priority:1"`
	Standard   *Standard

	Name        string `gorm:"type:varchar(200);not null;uniqueIndex:uq_violation_name,priority:2"`
	Description string `gorm:"type:text;not null"`
	URL         string `gorm:"type:varchar(255)"`

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`
}

// ProjectStandard associates a standard with a project. The unique index on
// ProjectID alone enforces at most one standard per project at the storage
// layer, so concurrent adds cannot create a second row.
type ProjectStandard struct {
	gorm.Model
	ProjectID uint `gorm:"not null;uniqueIndex:uq_one_standard_per_project"`
	Project   *Project

	StandardID uint `gorm:"not null"`
	Standard   *Standard

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID"`
}

// ProjectViolation is an occurrence of a violation inside a project, with
// its own remediation lifecycle.
type ProjectViolation struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index"`
	Project   *Project

	ViolationID uint `gorm:"not null"`
	Violation   *Violation

	Status     ViolationStatus `gorm:"type:varchar(20);not null;default:open"`
	Notes      string          `gorm:"type:text"`
	Location   string          `gorm:"type:varchar(255)"`
	Screenshot string          `gorm:"type:varchar(255)"` // stored filename

	CreatedByID  *uint
	CreatedBy    *User `gorm:"foreignKey:CreatedByID"`
	AssignedToID *uint
	AssignedTo   *User `gorm:"foreignKey:AssignedToID"`
}
