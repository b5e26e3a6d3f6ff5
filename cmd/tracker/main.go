package main

import (
	"k8s.io/klog/v2"

	"github.com/techopolis/tracker/cmd/tracker/helper"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/cronjob"
)

// @title						Perspective Tracker API
// @version						1.0.0
// @description					API server for Perspective Tracker, a multi-tenant project and issue tracking platform for accessibility audits.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					Obtain a token via /auth/login, then send 'Bearer ${TOKEN}' to access protected endpoints
func main() {
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	registerConfig, err := configInit.InitializeRegisterConfig()
	if err != nil {
		klog.Fatalf("Failed to initialize dependencies: %s", err)
	}

	cronManager := cronjob.NewCronJobManager(alert.GetNotifier())
	if err := cronManager.RegisterJobs(backendConfig); err != nil {
		klog.Fatalf("Failed to register cron jobs: %s", err)
	}
	cronManager.Start()

	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.StartProbeServer()
	serverRunner.StartServer(registerConfig, cronManager.Stop)
}
