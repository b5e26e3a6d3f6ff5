package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/pkg/alert"
)

// MilestoneService handles milestone mutations including the publication
// step that opens the milestone's issues to client-role users.
type MilestoneService struct {
	db       *gorm.DB
	notifier alert.Notifier
}

func NewMilestoneService() *MilestoneService {
	return &MilestoneService{db: query.GetDB(), notifier: alert.GetNotifier()}
}

// Create stores the milestone with a creation audit row.
func (s *MilestoneService) Create(ctx context.Context, milestone *model.Milestone, actor *model.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(milestone).Error; err != nil {
			return err
		}
		return tx.Create(&model.IssueModification{
			MilestoneID: &milestone.ID,
			Kind:        model.ModificationCreation,
			NewValue:    string(milestone.Status),
			ActorID:     &actor.ID,
		}).Error
	})
	if err != nil {
		return err
	}
	s.notifier.MilestoneCreated(ctx, milestone, actor)
	return nil
}

// ChangeStatus moves the milestone through its lifecycle. Reaching
// completed stamps the completion date; reaching published additionally
// fans the notification out to the client's active coworkers.
func (s *MilestoneService) ChangeStatus(ctx context.Context, milestone *model.Milestone, actor *model.User, to model.MilestoneStatus) error {
	from := milestone.Status
	if from == to {
		return nil
	}
	updates := map[string]any{"status": to}
	if (to == model.MilestoneCompleted || to == model.MilestonePublished) && milestone.CompletedDate == nil {
		now := time.Now()
		updates["completed_date"] = now
		milestone.CompletedDate = &now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(milestone).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Create(&model.IssueModification{
			MilestoneID:   &milestone.ID,
			Kind:          model.ModificationStatusChange,
			PreviousValue: string(from),
			NewValue:      string(to),
			ActorID:       &actor.ID,
		}).Error
	})
	if err != nil {
		return err
	}
	milestone.Status = to

	switch to {
	case model.MilestoneCompleted:
		s.notifier.MilestoneCompleted(ctx, milestone, actor, false)
	case model.MilestonePublished:
		s.notifier.MilestoneCompleted(ctx, milestone, actor, true)
	}
	return nil
}
