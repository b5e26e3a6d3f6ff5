package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/pkg/alert"
)

// IssueService performs issue mutations: the write, the audit trail row and
// the notification, in that order. Notifications run after the transaction
// commits and never fail the mutation.
type IssueService struct {
	db       *gorm.DB
	notifier alert.Notifier
}

func NewIssueService() *IssueService {
	return &IssueService{db: query.GetDB(), notifier: alert.GetNotifier()}
}

// Create stores the issue with a creation audit row.
func (s *IssueService) Create(ctx context.Context, issue *model.Issue, actor *model.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}
		return tx.Create(&model.IssueModification{
			IssueID:  &issue.ID,
			Kind:     model.ModificationCreation,
			NewValue: string(issue.Status),
			ActorID:  &actor.ID,
		}).Error
	})
	if err != nil {
		return err
	}
	s.notifier.IssueCreated(ctx, issue, actor)
	return nil
}

// ChangeStatus moves the issue to a new status. A no-op transition writes
// no audit row and sends nothing.
func (s *IssueService) ChangeStatus(ctx context.Context, issue *model.Issue, actor *model.User, to model.IssueStatus) error {
	from := issue.Status
	if from == to {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(issue).Update("status", to).Error; err != nil {
			return err
		}
		return tx.Create(&model.IssueModification{
			IssueID:       &issue.ID,
			Kind:          model.ModificationStatusChange,
			PreviousValue: string(from),
			NewValue:      string(to),
			ActorID:       &actor.ID,
		}).Error
	})
	if err != nil {
		return err
	}
	issue.Status = to
	s.notifier.IssueStatusChanged(ctx, issue, actor, from, to)
	return nil
}

// AddComment attaches a comment. Internal comments are restricted to
// platform-side users regardless of what the evaluator granted on the
// issue.
func (s *IssueService) AddComment(ctx context.Context, issue *model.Issue, actor *model.User, commentType model.CommentType, content string) (*model.Comment, error) {
	if commentType == model.CommentInternal && !actor.IsPlatformStaff() {
		return nil, ErrForbidden
	}
	comment := &model.Comment{
		IssueID:     issue.ID,
		AuthorID:    &actor.ID,
		CommentType: commentType,
		Content:     content,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Create(&model.IssueModification{
			IssueID:  &issue.ID,
			Kind:     model.ModificationComment,
			NewValue: content,
			ActorID:  &actor.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notifier.CommentAdded(ctx, issue, comment, actor)
	return comment, nil
}
