package accesscontrol

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/dao/model"
)

func TestEvaluatePrecedence(t *testing.T) {
	Convey("Given the permission evaluator", t, func() {
		superuser := Actor{UserID: 1, IsSuperuser: true, Role: model.RoleUser}
		admin := Actor{UserID: 2, Role: model.RoleAdmin}
		staff := Actor{UserID: 3, Role: model.RoleStaff}
		client := Actor{UserID: 4, Role: model.RoleClient}
		nobody := Actor{UserID: 5, Role: model.RoleUser}

		Convey("Superusers may do anything", func() {
			So(Evaluate(superuser, Relation{}, KindProjectType, OpDelete).Allowed, ShouldBeTrue)
			So(Evaluate(superuser, Relation{}, KindCoworker, OpDelete).Allowed, ShouldBeTrue)
		})

		Convey("Platform admins may do anything", func() {
			So(Evaluate(admin, Relation{}, KindStandard, OpDelete).Allowed, ShouldBeTrue)
			So(Evaluate(admin, Relation{}, KindClient, OpCreate).Allowed, ShouldBeTrue)
		})

		Convey("Platform staff", func() {
			Convey("manage project-scoped resources except delete", func() {
				So(Evaluate(staff, Relation{}, KindProject, OpCreate).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindIssue, OpUpdate).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindMilestone, OpList).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindProjectStandard, OpCreate).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindProject, OpDelete).Allowed, ShouldBeFalse)
			})

			Convey("read the standards catalog but never write it", func() {
				So(Evaluate(staff, Relation{}, KindStandard, OpView).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindViolation, OpList).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindStandard, OpCreate).Allowed, ShouldBeFalse)
				So(Evaluate(staff, Relation{}, KindViolation, OpUpdate).Allowed, ShouldBeFalse)
			})

			Convey("read clients but do not manage them", func() {
				So(Evaluate(staff, Relation{}, KindClient, OpList).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindClient, OpView).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindClient, OpCreate).Allowed, ShouldBeFalse)
				So(Evaluate(staff, Relation{}, KindClient, OpDelete).Allowed, ShouldBeFalse)
			})

			Convey("read project types but cannot manage them", func() {
				So(Evaluate(staff, Relation{}, KindProjectType, OpList).Allowed, ShouldBeTrue)
				So(Evaluate(staff, Relation{}, KindProjectType, OpCreate).Allowed, ShouldBeFalse)
				So(Evaluate(staff, Relation{}, KindProjectType, OpDelete).Allowed, ShouldBeFalse)
			})
		})

		Convey("Point of contact and project assignees", func() {
			poc := Relation{IsPointOfContact: true}
			assignee := Relation{IsAssignee: true}

			Convey("hold view and update on the subtree", func() {
				So(Evaluate(client, poc, KindClient, OpUpdate).Allowed, ShouldBeTrue)
				So(Evaluate(client, poc, KindIssue, OpView).Allowed, ShouldBeTrue)
				So(Evaluate(nobody, assignee, KindMilestone, OpUpdate).Allowed, ShouldBeTrue)
				So(Evaluate(nobody, assignee, KindPage, OpList).Allowed, ShouldBeTrue)
			})

			Convey("but never delete", func() {
				So(Evaluate(client, poc, KindIssue, OpDelete).Allowed, ShouldBeFalse)
				So(Evaluate(nobody, assignee, KindProject, OpDelete).Allowed, ShouldBeFalse)
			})

			Convey("and no catalog or project type rights", func() {
				So(Evaluate(client, poc, KindStandard, OpView).Allowed, ShouldBeFalse)
				So(Evaluate(client, poc, KindProjectType, OpUpdate).Allowed, ShouldBeFalse)
			})
		})

		Convey("Coworker roles", func() {
			viewer := Relation{CoworkerRole: model.CoworkerRoleViewer}
			editor := Relation{CoworkerRole: model.CoworkerRoleEditor}
			cadmin := Relation{CoworkerRole: model.CoworkerRoleAdmin}

			Convey("viewer reads the client scope only", func() {
				So(Evaluate(client, viewer, KindProject, OpView).Allowed, ShouldBeTrue)
				So(Evaluate(client, viewer, KindClientNote, OpList).Allowed, ShouldBeTrue)
				So(Evaluate(client, viewer, KindIssue, OpCreate).Allowed, ShouldBeFalse)
				So(Evaluate(client, viewer, KindClientNote, OpUpdate).Allowed, ShouldBeFalse)
			})

			Convey("editor additionally writes notes, issues and comments", func() {
				So(Evaluate(client, editor, KindIssue, OpCreate).Allowed, ShouldBeTrue)
				So(Evaluate(client, editor, KindClientNote, OpUpdate).Allowed, ShouldBeTrue)
				So(Evaluate(client, editor, KindComment, OpCreate).Allowed, ShouldBeTrue)
				So(Evaluate(client, editor, KindIssue, OpDelete).Allowed, ShouldBeFalse)
				So(Evaluate(client, editor, KindCoworker, OpCreate).Allowed, ShouldBeFalse)
			})

			Convey("client-side admin manages coworkers and deletes notes", func() {
				So(Evaluate(client, cadmin, KindCoworker, OpCreate).Allowed, ShouldBeTrue)
				So(Evaluate(client, cadmin, KindCoworker, OpDelete).Allowed, ShouldBeTrue)
				So(Evaluate(client, cadmin, KindClientNote, OpDelete).Allowed, ShouldBeTrue)
				So(Evaluate(client, cadmin, KindProject, OpDelete).Allowed, ShouldBeFalse)
			})

			Convey("a client-side admin holds no platform rights", func() {
				So(Evaluate(client, cadmin, KindProjectType, OpCreate).Allowed, ShouldBeFalse)
				So(Evaluate(client, cadmin, KindStandard, OpUpdate).Allowed, ShouldBeFalse)
				So(Evaluate(client, cadmin, KindClient, OpCreate).Allowed, ShouldBeFalse)
			})
		})

		Convey("Self-leave removes a membership without any other rights", func() {
			self := Relation{IsSelf: true}
			So(Evaluate(nobody, self, KindCoworker, OpDelete).Allowed, ShouldBeTrue)
			So(Evaluate(nobody, self, KindCoworker, OpUpdate).Allowed, ShouldBeFalse)
			So(Evaluate(nobody, Relation{}, KindCoworker, OpDelete).Allowed, ShouldBeFalse)
		})

		Convey("Default deny carries a readable reason", func() {
			d := Evaluate(nobody, Relation{}, KindProject, OpView)
			So(d.Allowed, ShouldBeFalse)
			So(d.Reason, ShouldEqual, "you do not have permission to view this project")
		})
	})
}

func TestMilestonePublicationGate(t *testing.T) {
	statuses := []model.MilestoneStatus{
		model.MilestoneNotStarted,
		model.MilestoneInProgress,
		model.MilestoneCompleted,
		model.MilestonePublished,
	}

	Convey("Given a milestone and an actor with otherwise valid access", t, func() {
		// A client coworker with viewer membership would normally see the
		// project's issues; the gate must hide them until publication.
		clientRel := Relation{CoworkerRole: model.CoworkerRoleViewer}

		cases := []struct {
			actor Actor
			rel   Relation
			want  map[model.MilestoneStatus]bool
		}{
			{
				actor: Actor{UserID: 10, Role: model.RoleClient},
				rel:   clientRel,
				want: map[model.MilestoneStatus]bool{
					model.MilestoneNotStarted: false,
					model.MilestoneInProgress: false,
					model.MilestoneCompleted:  false,
					model.MilestonePublished:  true,
				},
			},
			{
				actor: Actor{UserID: 11, Role: model.RoleStaff},
				want: map[model.MilestoneStatus]bool{
					model.MilestoneNotStarted: true,
					model.MilestoneInProgress: true,
					model.MilestoneCompleted:  true,
					model.MilestonePublished:  true,
				},
			},
			{
				actor: Actor{UserID: 12, Role: model.RoleAdmin},
				want: map[model.MilestoneStatus]bool{
					model.MilestoneNotStarted: true,
					model.MilestoneInProgress: true,
					model.MilestoneCompleted:  true,
					model.MilestonePublished:  true,
				},
			},
		}

		for _, c := range cases {
			for _, status := range statuses {
				name := fmt.Sprintf("%s sees a %s milestone: %v", c.actor.Role, status, c.want[status])
				Convey(name, func() {
					d := CanViewMilestoneIssues(c.actor, c.rel, status)
					So(d.Allowed, ShouldEqual, c.want[status])
				})
			}
		}

		Convey("A client-role point of contact is still gated", func() {
			poc := Actor{UserID: 13, Role: model.RoleClient}
			d := CanViewMilestoneIssues(poc, Relation{IsPointOfContact: true}, model.MilestoneCompleted)
			So(d.Allowed, ShouldBeFalse)
			So(d.Reason, ShouldEqual, "this milestone has not been published yet")
		})

		Convey("An assigned non-client user bypasses the gate", func() {
			d := CanViewMilestoneIssues(Actor{UserID: 14, Role: model.RoleUser}, Relation{IsAssignee: true}, model.MilestoneNotStarted)
			So(d.Allowed, ShouldBeTrue)
		})

		Convey("A client with no relation is denied even when published", func() {
			d := CanViewMilestoneIssues(Actor{UserID: 15, Role: model.RoleClient}, Relation{}, model.MilestonePublished)
			So(d.Allowed, ShouldBeFalse)
		})
	})
}
