package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/pkg/alert"
)

// InvitationService runs the coworker invitation lifecycle. Tokens are
// single-use UUIDs that never expire; a resend replaces the token.
// Whether a token is unknown, already consumed or aimed at someone else,
// the caller sees the same not-found answer.
type InvitationService struct {
	db       *gorm.DB
	notifier alert.Notifier
}

func NewInvitationService() *InvitationService {
	return &InvitationService{db: query.GetDB(), notifier: alert.GetNotifier()}
}

// Invite adds email to the client as a pending coworker. When the address
// already has an account the membership references the user directly;
// otherwise an email-keyed shadow record is kept until signup.
func (s *InvitationService) Invite(ctx context.Context, client *model.Client, actor *model.User, email string, role model.CoworkerRole) error {
	token := uuid.NewString()
	now := time.Now()

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		var membership model.ClientCoworker
		err = s.db.WithContext(ctx).
			Where("client_id = ? AND user_id = ?", client.ID, user.ID).
			First(&membership).Error
		switch {
		case err == nil && membership.Status == model.CoworkerDeclined:
			// A declined invitation may be reissued.
			err = s.db.WithContext(ctx).Model(&membership).Updates(map[string]any{
				"role":             role,
				"status":           model.CoworkerPending,
				"invitation_token": token,
				"invitation_sent":  now,
			}).Error
			if err != nil {
				return err
			}
		case err == nil:
			return ErrConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			membership = model.ClientCoworker{
				ClientID:        client.ID,
				UserID:          user.ID,
				Role:            role,
				Status:          model.CoworkerPending,
				InvitationToken: &token,
				InvitationSent:  &now,
			}
			if err := s.db.WithContext(ctx).Create(&membership).Error; err != nil {
				if query.IsUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
		default:
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		shadow := model.Coworker{
			ClientID:        client.ID,
			Email:           email,
			Role:            role,
			Status:          model.CoworkerPending,
			InvitationToken: token,
			InvitedByID:     &actor.ID,
		}
		if err := s.db.WithContext(ctx).Create(&shadow).Error; err != nil {
			if query.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
	default:
		return err
	}

	s.notifier.CoworkerInvited(ctx, client, email, token, actor)
	return nil
}

// Resend issues a new token for a still-pending membership, invalidating
// the previous one.
func (s *InvitationService) Resend(ctx context.Context, client *model.Client, membership *model.ClientCoworker, actor *model.User) error {
	if membership.Status != model.CoworkerPending {
		return ErrConflict
	}
	token := uuid.NewString()
	now := time.Now()
	err := s.db.WithContext(ctx).Model(membership).Updates(map[string]any{
		"invitation_token": token,
		"invitation_sent":  now,
	}).Error
	if err != nil {
		return err
	}
	var email string
	if membership.User != nil {
		email = membership.User.Email
	} else {
		var user model.User
		if err := s.db.WithContext(ctx).Select("email").First(&user, membership.UserID).Error; err != nil {
			return err
		}
		email = user.Email
	}
	s.notifier.CoworkerInvited(ctx, client, email, token, actor)
	return nil
}

// Accept consumes the token and activates the membership exactly once. The
// pending-status guard in the update makes concurrent accepts race-safe:
// only one caller sees an affected row.
func (s *InvitationService) Accept(ctx context.Context, token string, user *model.User) (*model.Client, error) {
	var membership model.ClientCoworker
	err := s.db.WithContext(ctx).Where("invitation_token = ?", token).First(&membership).Error
	switch {
	case err == nil:
		if membership.UserID != user.ID {
			return nil, ErrNotFound
		}
		res := s.db.WithContext(ctx).Model(&model.ClientCoworker{}).
			Where("id = ? AND status = ?", membership.ID, model.CoworkerPending).
			Updates(map[string]any{"status": model.CoworkerActive, "invitation_token": nil})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
		return s.finishAccept(ctx, membership.ClientID, user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.acceptShadow(ctx, token, user)
	default:
		return nil, err
	}
}

// acceptShadow promotes an email-keyed invitation into a real membership
// once the invited address has an account.
func (s *InvitationService) acceptShadow(ctx context.Context, token string, user *model.User) (*model.Client, error) {
	var shadow model.Coworker
	err := s.db.WithContext(ctx).
		Where("invitation_token = ? AND status = ?", token, model.CoworkerPending).
		First(&shadow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if shadow.Email != user.Email {
		return nil, ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		membership := model.ClientCoworker{
			ClientID: shadow.ClientID,
			UserID:   user.ID,
			Role:     shadow.Role,
			Status:   model.CoworkerActive,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if query.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		return tx.Model(&shadow).Updates(map[string]any{
			"status":  model.CoworkerActive,
			"user_id": user.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.finishAccept(ctx, shadow.ClientID, user)
}

// finishAccept grants accounts without a platform role the client role and
// notifies the point of contact.
func (s *InvitationService) finishAccept(ctx context.Context, clientID uint, user *model.User) (*model.Client, error) {
	if user.RoleName() == "" || user.RoleName() == model.RoleUser {
		var clientRole model.Role
		if err := s.db.WithContext(ctx).Where("name = ?", model.RoleClient).First(&clientRole).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(user).Update("role_id", clientRole.ID).Error; err != nil {
			return nil, err
		}
		user.RoleID = &clientRole.ID
		user.Role = &clientRole
	}

	var client model.Client
	if err := s.db.WithContext(ctx).Preload("PointOfContact").First(&client, clientID).Error; err != nil {
		return nil, err
	}
	s.notifier.CoworkerAccepted(ctx, &client, user)
	return &client, nil
}

// Decline consumes the token and marks the membership declined.
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	res := s.db.WithContext(ctx).Model(&model.ClientCoworker{}).
		Where("invitation_token = ? AND status = ?", token, model.CoworkerPending).
		Updates(map[string]any{"status": model.CoworkerDeclined, "invitation_token": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	shadowRes := s.db.WithContext(ctx).Model(&model.Coworker{}).
		Where("invitation_token = ? AND status = ?", token, model.CoworkerPending).
		Update("status", model.CoworkerInactive)
	if shadowRes.Error != nil {
		return shadowRes.Error
	}
	if shadowRes.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Leave removes the membership entirely, for both self-leave and removal by
// a client-side admin.
func (s *InvitationService) Leave(ctx context.Context, membership *model.ClientCoworker) error {
	return s.db.WithContext(ctx).Delete(membership).Error
}
