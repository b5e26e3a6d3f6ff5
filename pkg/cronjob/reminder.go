package cronjob

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
)

// RemindOverdueMilestones mails the project audience of every milestone
// whose due date has passed without reaching completed or published. It
// runs on the schedule in Reminder.MilestoneSpec.
func (cm *CronJobManager) RemindOverdueMilestones() {
	ctx := context.Background()
	milestones, err := cm.overdueMilestones(ctx)
	if err != nil {
		klog.Errorf("overdue milestone query failed: %v", err)
		return
	}
	if len(milestones) == 0 {
		return
	}
	klog.Infof("Sending reminders for %d overdue milestones", len(milestones))
	for i := range milestones {
		cm.notifier.MilestoneOverdue(ctx, &milestones[i])
	}
}

func (cm *CronJobManager) overdueMilestones(ctx context.Context) ([]model.Milestone, error) {
	var milestones []model.Milestone
	err := query.GetDB().WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Where("status NOT IN ?", []model.MilestoneStatus{model.MilestoneCompleted, model.MilestonePublished}).
		Order("due_date").
		Find(&milestones).Error
	return milestones, err
}
