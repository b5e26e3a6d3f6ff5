package service

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/dao/model"
)

func TestInternalCommentGuard(t *testing.T) {
	Convey("Given the issue comment guard", t, func() {
		svc := &IssueService{}
		issue := &model.Issue{}

		Convey("A client-role author cannot write internal comments", func() {
			role := model.Role{Name: model.RoleClient}
			actor := &model.User{Role: &role}
			_, err := svc.AddComment(context.Background(), issue, actor, model.CommentInternal, "hidden")
			So(err, ShouldEqual, ErrForbidden)
		})

		Convey("A user without any role cannot either", func() {
			actor := &model.User{}
			_, err := svc.AddComment(context.Background(), issue, actor, model.CommentInternal, "hidden")
			So(err, ShouldEqual, ErrForbidden)
		})
	})
}

func TestNoOpStatusChanges(t *testing.T) {
	Convey("Status transitions to the current status are no-ops", t, func() {
		actor := &model.User{}

		Convey("for issues", func() {
			svc := &IssueService{}
			issue := &model.Issue{Status: model.IssueFail}
			So(svc.ChangeStatus(context.Background(), issue, actor, model.IssueFail), ShouldBeNil)
		})

		Convey("for milestones", func() {
			svc := &MilestoneService{}
			milestone := &model.Milestone{Status: model.MilestoneInProgress}
			So(svc.ChangeStatus(context.Background(), milestone, actor, model.MilestoneInProgress), ShouldBeNil)
		})
	})
}
