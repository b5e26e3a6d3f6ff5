package cronjob

import (
	"context"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/pkg/config"
)

type recordingNotifier struct {
	overdue []string
}

func (r *recordingNotifier) IssueCreated(context.Context, *model.Issue, *model.User) {}
func (r *recordingNotifier) IssueUpdated(context.Context, *model.Issue, *model.User) {}
func (r *recordingNotifier) IssueStatusChanged(context.Context, *model.Issue, *model.User, model.IssueStatus, model.IssueStatus) {
}
func (r *recordingNotifier) CommentAdded(context.Context, *model.Issue, *model.Comment, *model.User) {}
func (r *recordingNotifier) MilestoneCreated(context.Context, *model.Milestone, *model.User)         {}
func (r *recordingNotifier) MilestoneUpdated(context.Context, *model.Milestone, *model.User)         {}
func (r *recordingNotifier) MilestoneCompleted(context.Context, *model.Milestone, *model.User, bool) {}
func (r *recordingNotifier) MilestoneOverdue(_ context.Context, m *model.Milestone) {
	r.overdue = append(r.overdue, m.Name)
}
func (r *recordingNotifier) CoworkerInvited(context.Context, *model.Client, string, string, *model.User) {
}
func (r *recordingNotifier) CoworkerAccepted(context.Context, *model.Client, *model.User)          {}
func (r *recordingNotifier) ProjectCreated(context.Context, *model.Project, *model.User) {}
func (r *recordingNotifier) ProjectUpdated(context.Context, *model.Project, *model.User) {}
func (r *recordingNotifier) ProjectAssigned(context.Context, *model.Project, *model.User, *model.User) {
}
func (r *recordingNotifier) RoleChanged(context.Context, *model.User, model.RoleName, *model.User) {}
func (r *recordingNotifier) ManagerChanged(context.Context, *model.User, *model.User, *model.User) {}
func (r *recordingNotifier) PointOfContactChanged(context.Context, *model.Client, *model.User)     {}
func (r *recordingNotifier) Welcome(context.Context, *model.User)                                  {}

func TestRegisterJobs(t *testing.T) {
	Convey("RegisterJobs", t, func() {
		cm := NewCronJobManager(&recordingNotifier{})

		Convey("empty spec registers nothing", func() {
			conf := &config.Config{}
			So(cm.RegisterJobs(conf), ShouldBeNil)
			So(cm.cron.Entries(), ShouldBeEmpty)
		})

		Convey("valid spec registers the reminder", func() {
			conf := &config.Config{}
			conf.Reminder.MilestoneSpec = "0 9 * * *"
			So(cm.RegisterJobs(conf), ShouldBeNil)
			So(cm.cron.Entries(), ShouldHaveLength, 1)
		})

		Convey("invalid spec surfaces the parse error", func() {
			conf := &config.Config{}
			conf.Reminder.MilestoneSpec = "not a cron spec"
			So(cm.RegisterJobs(conf), ShouldNotBeNil)
		})
	})
}

func TestRemindOverdueMilestones(t *testing.T) {
	PatchConvey("RemindOverdueMilestones", t, func() {
		recorder := &recordingNotifier{}
		cm := NewCronJobManager(recorder)

		due := time.Now().AddDate(0, 0, -3)
		Mock((*CronJobManager).overdueMilestones).Return([]model.Milestone{
			{Name: "Audit round 1", DueDate: &due, Status: model.MilestoneInProgress},
			{Name: "Audit round 2", DueDate: &due, Status: model.MilestoneNotStarted},
		}, nil).Build()

		cm.RemindOverdueMilestones()
		So(recorder.overdue, ShouldResemble, []string{"Audit round 1", "Audit round 2"})
	})
}
