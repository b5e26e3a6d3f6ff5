package model

import (
	"time"

	"gorm.io/gorm"
)

// Client is a company the consultancy works for.
type Client struct {
	gorm.Model
	CompanyName string `gorm:"type:varchar(255);not null;index"`
	ContactName string `gorm:"type:varchar(255)"`
	Email       string `gorm:"type:varchar(255)"`
	Website     string `gorm:"type:varchar(255)"`

	// Point of contact must be a staff or admin user.
	PointOfContactID *uint
	PointOfContact   *User `gorm:"foreignKey:PointOfContactID"`

	Coworkers []ClientCoworker `gorm:"constraint:OnDelete:CASCADE"`
	Notes     []ClientNote     `gorm:"constraint:OnDelete:CASCADE"`
	Projects  []Project        `gorm:"constraint:OnDelete:CASCADE"`
}

// ClientCoworker grants a user access to one client's data with a
// client-scoped role. Membership is unique per (client, user).
type ClientCoworker struct {
	gorm.Model
	ClientID uint `gorm:"not null;uniqueIndex:uq_client_coworker,priority:1"`
	Client   *Client
	UserID   uint `gorm:"not null;uniqueIndex:uq_client_coworker,priority:2"`
	User     *User

	Role   CoworkerRole   `gorm:"type:varchar(20);not null;default:viewer"`
	Status CoworkerStatus `gorm:"type:varchar(20);not null;default:pending"`

	// Single-use invitation token. Consumed on accept; resend issues a new
	// one. Tokens do not expire.
	InvitationToken *string `gorm:"type:varchar(36);uniqueIndex"`
	InvitationSent  *time.Time
}

// Coworker is the email-keyed invitation shadow record, created when an
// address with no account yet is invited. Accepting promotes it into a
// ClientCoworker once the user exists.
type Coworker struct {
	gorm.Model
	ClientID uint `gorm:"not null;uniqueIndex:uq_coworker_email,priority:1"`
	Client   *Client
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex:uq_coworker_email,priority:2"`

	UserID *uint
	User   *User

	Role   CoworkerRole   `gorm:"type:varchar(20);not null;default:viewer"`
	Status CoworkerStatus `gorm:"type:varchar(20);not null;default:pending"` // pending, active, inactive

	InvitationToken string `gorm:"type:varchar(36);uniqueIndex;not null"`
	InvitedByID     *uint
	InvitedBy       *User `gorm:"foreignKey:InvitedByID"`
}

// ClientNote is a free-text note attached to a client.
type ClientNote struct {
	gorm.Model
	ClientID uint `gorm:"not null;index"`
	Client   *Client
	AuthorID *uint
	Author   *User `gorm:"foreignKey:AuthorID"`

	Title   string `gorm:"type:varchar(255);not null"`
	Content string `gorm:"type:text"`
}
