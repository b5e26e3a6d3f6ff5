// Package service holds the mutation services behind the HTTP handlers.
// Each service wraps the write, its audit trail row and the follow-up
// notification so no handler re-implements that sequence.
package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/pkg/accesscontrol"
)

// Shared sentinel errors, mapped to HTTP codes at the handler boundary.
var (
	ErrNotFound  = errors.New("resource not found")
	ErrConflict  = errors.New("resource already exists")
	ErrForbidden = errors.New("operation not permitted")
)

// Scope identifies the client/project neighborhood of a target resource.
// Zero fields mean the dimension does not apply.
type Scope struct {
	ClientID     uint
	ProjectID    uint
	TargetUserID uint
}

// BuildRelation loads the actor's relationship to the scope for the
// permission evaluator. Platform admins and superusers short-circuit in the
// evaluator, so callers may skip this for them.
func BuildRelation(ctx context.Context, db *gorm.DB, actor accesscontrol.Actor, scope Scope) (accesscontrol.Relation, error) {
	var rel accesscontrol.Relation
	rel.IsSelf = scope.TargetUserID != 0 && scope.TargetUserID == actor.UserID

	if scope.ProjectID != 0 {
		var count int64
		err := db.WithContext(ctx).Table("project_assignments").
			Where("project_id = ? AND user_id = ?", scope.ProjectID, actor.UserID).
			Count(&count).Error
		if err != nil {
			return rel, err
		}
		rel.IsAssignee = count > 0

		if scope.ClientID == 0 {
			var project model.Project
			err := db.WithContext(ctx).Select("client_id").First(&project, scope.ProjectID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rel, ErrNotFound
			}
			if err != nil {
				return rel, err
			}
			scope.ClientID = project.ClientID
		}
	}

	if scope.ClientID != 0 {
		var client model.Client
		err := db.WithContext(ctx).Select("point_of_contact_id").First(&client, scope.ClientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rel, ErrNotFound
		}
		if err != nil {
			return rel, err
		}
		rel.IsPointOfContact = client.PointOfContactID != nil && *client.PointOfContactID == actor.UserID

		var membership model.ClientCoworker
		err = db.WithContext(ctx).
			Where("client_id = ? AND user_id = ? AND status = ?", scope.ClientID, actor.UserID, model.CoworkerActive).
			First(&membership).Error
		if err == nil {
			rel.CoworkerRole = membership.Role
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return rel, err
		}
	}

	return rel, nil
}
