package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Issue is a finding inside a project, tied to a milestone and a page.
// Fixed columns cover the fields every project type shares; everything a
// ProjectType declares beyond them lives in the DynamicFields JSON bag,
// validated against the type's schema at write time only. Stale keys from
// an older schema are tolerated, not errors.
type Issue struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index"`
	Project   *Project

	MilestoneID uint `gorm:"not null;index"`
	Milestone   *Milestone

	PageID uint `gorm:"not null;index"`
	Page   *Page

	ViolationID *uint
	Violation   *Violation

	Title             string `gorm:"type:varchar(255);not null"`
	Description       string `gorm:"type:text"`
	ReproductionSteps string `gorm:"type:text"`
	ToolOrMethod      string `gorm:"type:varchar(255)"`
	UserImpact        string `gorm:"type:text"`
	Workarounds       string `gorm:"type:text"`
	Attachment        string `gorm:"type:varchar(255)"` // stored filename

	Status IssueStatus `gorm:"type:varchar(20);not null;default:fail"`

	DynamicFields datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedByID  *uint
	CreatedBy    *User `gorm:"foreignKey:CreatedByID"`
	AssignedToID *uint
	AssignedTo   *User `gorm:"foreignKey:AssignedToID"`

	Comments      []Comment           `gorm:"constraint:OnDelete:CASCADE"`
	Modifications []IssueModification `gorm:"constraint:OnDelete:CASCADE"`
}

// Comment on an issue. Internal comments are visible to admin/staff only.
type Comment struct {
	gorm.Model
	IssueID uint `gorm:"not null;index"`
	Issue   *Issue

	AuthorID *uint
	Author   *User `gorm:"foreignKey:AuthorID"`

	CommentType CommentType `gorm:"type:varchar(20);not null;default:external"`
	Content     string      `gorm:"type:text;not null"`
}

// IssueModification is an append-only audit row recording creation, status
// changes and comments on issues and milestones. Rows are written by the
// service layer together with the mutation and are never updated or
// deleted.
type IssueModification struct {
	gorm.Model
	IssueID *uint `gorm:"index"`
	Issue   *Issue

	MilestoneID *uint `gorm:"index"`
	Milestone   *Milestone

	Kind          ModificationKind `gorm:"type:varchar(20);not null"`
	PreviousValue string           `gorm:"type:varchar(255)"`
	NewValue      string           `gorm:"type:varchar(255)"`

	ActorID *uint
	Actor   *User `gorm:"foreignKey:ActorID"`
}
