package model

import (
	"gorm.io/gorm"
)

// Role is an enum-like entity seeded at migration time. Users reference it
// by foreign key so a role rename is a single-row update.
type Role struct {
	gorm.Model
	Name RoleName `gorm:"uniqueIndex;type:varchar(32);not null"`
}

// User is the email-keyed identity of the system.
type User struct {
	gorm.Model
	Email     string  `gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  *string `gorm:"type:varchar(128)"` // nil for identity-provider accounts
	FirstName string  `gorm:"type:varchar(100)"`
	LastName  string  `gorm:"type:varchar(100)"`
	JobTitle  string  `gorm:"type:varchar(100)"`
	Phone     string  `gorm:"type:varchar(20)"`
	Bio       string  `gorm:"type:varchar(500)"`

	RoleID *uint
	Role   *Role

	IsSuperuser bool `gorm:"not null;default:false"`
	IsStaff     bool `gorm:"not null;default:false"`
	IsActive    bool `gorm:"not null;default:true"`

	// Once an admin hand-edits role or flags, automatic role sync from the
	// identity provider is frozen for this record.
	ManuallyModified bool `gorm:"not null;default:false"`

	// Manager hierarchy: one owning manager plus any number of additional
	// managers. Staff/admin only; cycles are not rejected.
	ManagerID          *uint
	Manager            *User  `gorm:"foreignKey:ManagerID"`
	AdditionalManagers []User `gorm:"many2many:user_additional_managers"`
}

// FullName returns "First Last", falling back to the email when the
// profile has no name.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RoleName returns the user's platform role name, empty when unset.
func (u *User) RoleName() RoleName {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// IsPlatformStaff reports whether the user is on the consultancy side
// (superuser, admin or staff role).
func (u *User) IsPlatformStaff() bool {
	if u.IsSuperuser {
		return true
	}
	r := u.RoleName()
	return r == RoleAdmin || r == RoleStaff
}
