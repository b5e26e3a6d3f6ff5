// Package dao owns schema migrations. Multi-row invariants (one standard
// per project, unique coworker per client+user, unique choice keys handled
// in validation) are enforced here at the storage layer, never only
// checked-then-written in application code.
package dao

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/pkg/logutils"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20250301-initial-schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.Role{},
					&model.User{},
					&model.Client{},
					&model.ClientCoworker{},
					&model.Coworker{},
					&model.ClientNote{},
					&model.ProjectType{},
					&model.Project{},
					&model.Standard{},
					&model.Violation{},
					&model.ProjectStandard{},
					&model.ProjectViolation{},
					&model.Page{},
					&model.Milestone{},
					&model.Issue{},
					&model.Comment{},
					&model.IssueModification{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"issue_modifications", "comments", "issues", "milestones",
					"pages", "project_violations", "project_standards",
					"violations", "standards", "project_assignments", "projects",
					"project_types", "client_notes", "coworkers",
					"client_coworkers", "clients", "user_additional_managers",
					"users", "roles",
				)
			},
		},
		{
			ID: "20250301-seed-roles",
			Migrate: func(tx *gorm.DB) error {
				for _, name := range []model.RoleName{
					model.RoleAdmin, model.RoleStaff, model.RoleClient, model.RoleUser,
				} {
					role := model.Role{Name: name}
					if err := tx.Where(&model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("name IN ?", []string{"admin", "staff", "client", "user"}).
					Delete(&model.Role{}).Error
			},
		},
	}
}

// Migrate runs all pending migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.Migrate(); err != nil {
		return err
	}
	logutils.Log.Info("database migration complete")
	return nil
}
