package cronjob

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/config"
)

// CronJobManager owns the in-process scheduler for recurring maintenance
// jobs. Jobs are registered from configuration at startup; an empty spec
// disables the job.
type CronJobManager struct {
	notifier  alert.Notifier
	cron      *cron.Cron
	cronMutex sync.Mutex
	started   bool
}

func NewCronJobManager(notifier alert.Notifier) *CronJobManager {
	return &CronJobManager{
		notifier: notifier,
		cron:     cron.New(cron.WithLocation(time.Local)),
	}
}

// RegisterJobs wires the configured jobs into the scheduler.
func (cm *CronJobManager) RegisterJobs(conf *config.Config) error {
	if spec := conf.Reminder.MilestoneSpec; spec != "" {
		if _, err := cm.cron.AddFunc(spec, cm.RemindOverdueMilestones); err != nil {
			return err
		}
		klog.Infof("Registered cron job: overdue milestone reminder (%s)", spec)
	}
	return nil
}

func (cm *CronJobManager) Start() {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	if cm.started {
		return
	}
	cm.cron.Start()
	cm.started = true
}

// Stop halts scheduling and waits for running jobs to finish.
func (cm *CronJobManager) Stop() {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	if !cm.started {
		return
	}
	<-cm.cron.Stop().Done()
	cm.started = false
}
