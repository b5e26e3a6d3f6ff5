package alert

import (
	"context"
	"testing"

	"github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/pkg/config"
)

type fakeHandler struct {
	recipients [][]string
	subjects   []string
	bodies     []string
	err        error
}

func (f *fakeHandler) SendMessageTo(_ context.Context, recipients []string, subject, body string) error {
	f.recipients = append(f.recipients, recipients)
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return f.err
}

func TestSend(t *testing.T) {
	mockey.PatchConvey("Test best-effort send", t, func() {
		fake := &fakeHandler{}
		n := &notifyMgr{handler: fake}
		ctx := context.Background()

		Convey("Recipients are deduplicated and blanks dropped", func() {
			n.send(ctx, []string{"a@x.test", "", "a@x.test", "b@x.test"}, "s", "b")
			So(fake.recipients, ShouldHaveLength, 1)
			So(fake.recipients[0], ShouldResemble, []string{"a@x.test", "b@x.test"})
		})

		Convey("Nothing is sent without recipients", func() {
			n.send(ctx, []string{"", ""}, "s", "b")
			So(fake.recipients, ShouldBeEmpty)
		})

		Convey("A delivery failure is swallowed", func() {
			fake.err = context.DeadlineExceeded
			So(func() { n.send(ctx, []string{"a@x.test"}, "s", "b") }, ShouldNotPanic)
		})
	})
}

func TestDirectNotifications(t *testing.T) {
	mockey.PatchConvey("Test single-recipient notifications", t, func() {
		fake := &fakeHandler{}
		n := &notifyMgr{handler: fake}
		ctx := context.Background()

		actor := &model.User{Email: "staff@techopolis.test", FirstName: "Ada", LastName: "Param"}
		user := &model.User{Email: "dev@client.test", FirstName: "Kim"}

		Convey("Project assignment mails the assignee", func() {
			project := &model.Project{Name: "Storefront audit"}
			n.ProjectAssigned(ctx, project, user, actor)
			So(fake.recipients[0], ShouldResemble, []string{"dev@client.test"})
			So(fake.subjects[0], ShouldEqual, "You have been assigned to Storefront audit")
			So(fake.bodies[0], ShouldContainSubstring, "Ada Param")
		})

		Convey("Role change mails the affected user", func() {
			n.RoleChanged(ctx, user, model.RoleStaff, actor)
			So(fake.recipients[0], ShouldResemble, []string{"dev@client.test"})
			So(fake.bodies[0], ShouldContainSubstring, "staff")
		})

		Convey("Welcome mail greets by name", func() {
			n.Welcome(ctx, user)
			So(fake.bodies[0], ShouldContainSubstring, "Hello Kim")
		})

		Convey("A nil actor is rendered as someone", func() {
			n.RoleChanged(ctx, user, model.RoleAdmin, nil)
			So(fake.bodies[0], ShouldContainSubstring, "Someone changed")
		})
	})
}

func TestCoworkerInvited(t *testing.T) {
	mockey.PatchConvey("Test invitation mail", t, func() {
		mockey.Mock(config.GetConfig).Return(&config.Config{
			FrontendOrigin: "https://tracker.techopolis.test",
		}).Build()

		fake := &fakeHandler{}
		n := &notifyMgr{handler: fake}
		client := &model.Client{CompanyName: "Acme Retail"}
		inviter := &model.User{Email: "poc@acme.test", FirstName: "Ana"}

		n.CoworkerInvited(context.Background(), client, "new@acme.test", "0b26fd84-1111-2222-3333-444455556666", inviter)

		So(fake.recipients[0], ShouldResemble, []string{"new@acme.test"})
		So(fake.subjects[0], ShouldEqual, "You have been invited to Acme Retail")
		So(fake.bodies[0], ShouldContainSubstring,
			"https://tracker.techopolis.test/invitations/0b26fd84-1111-2222-3333-444455556666")
	})
}

func TestProjectAudienceNotifications(t *testing.T) {
	mockey.PatchConvey("Test notifications sent to the project audience", t, func() {
		mockey.Mock((*notifyMgr).projectRecipients).Return([]string{"team@techopolis.test"}).Build()

		fake := &fakeHandler{}
		n := &notifyMgr{handler: fake}
		ctx := context.Background()
		actor := &model.User{Email: "staff@techopolis.test", FirstName: "Ada", LastName: "Param"}

		Convey("Project creation and update mail the audience", func() {
			project := &model.Project{Name: "Storefront audit", Status: "in_progress"}
			n.ProjectCreated(ctx, project, actor)
			n.ProjectUpdated(ctx, project, actor)
			So(fake.subjects, ShouldResemble, []string{
				"New project: Storefront audit",
				"Project updated: Storefront audit",
			})
			So(fake.recipients[1], ShouldResemble, []string{"team@techopolis.test"})
			So(fake.bodies[1], ShouldContainSubstring, "in_progress")
		})

		Convey("An issue field update mails the audience", func() {
			issue := &model.Issue{Title: "Missing alt text"}
			n.IssueUpdated(ctx, issue, actor)
			So(fake.subjects[0], ShouldEqual, "Issue updated: Missing alt text")
			So(fake.bodies[0], ShouldContainSubstring, "Ada Param")
		})

		Convey("A milestone field update mails the audience", func() {
			milestone := &model.Milestone{Name: "Round one"}
			n.MilestoneUpdated(ctx, milestone, actor)
			So(fake.subjects[0], ShouldEqual, "Milestone updated: Round one")
		})
	})
}

func TestManagerChanged(t *testing.T) {
	mockey.PatchConvey("Test manager change mail", t, func() {
		fake := &fakeHandler{}
		n := &notifyMgr{handler: fake}
		ctx := context.Background()

		user := &model.User{Email: "dev@client.test", FirstName: "Kim"}
		actor := &model.User{Email: "admin@techopolis.test", FirstName: "Ada", LastName: "Param"}

		Convey("Assigning a manager mails the user and the manager", func() {
			manager := &model.User{Email: "lead@techopolis.test", FirstName: "Lou", LastName: "Vega"}
			n.ManagerChanged(ctx, user, manager, actor)
			So(fake.recipients[0], ShouldResemble, []string{"dev@client.test", "lead@techopolis.test"})
			So(fake.bodies[0], ShouldContainSubstring, "set Lou Vega as your manager")
		})

		Convey("Clearing the manager mails only the user", func() {
			n.ManagerChanged(ctx, user, nil, actor)
			So(fake.recipients[0], ShouldResemble, []string{"dev@client.test"})
			So(fake.bodies[0], ShouldContainSubstring, "removed your manager assignment")
		})
	})
}
