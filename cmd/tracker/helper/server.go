package helper

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/techopolis/tracker/internal"
	"github.com/techopolis/tracker/internal/handler"
	"github.com/techopolis/tracker/pkg/config"
)

// ServerRunner owns the HTTP lifecycle.
type ServerRunner struct {
	backendConfig *config.Config
}

func NewServerRunner(backendConfig *config.Config) *ServerRunner {
	return &ServerRunner{
		backendConfig: backendConfig,
	}
}

var (
	readHeaderTimeout = 10 * time.Second
	cancelTimeout     = 10 * time.Second
)

// StartProbeServer serves the liveness endpoint on its own port so probes
// keep answering while the API server drains.
func (sr *ServerRunner) StartProbeServer() {
	if sr.backendConfig.ProbeAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	probe := &http.Server{
		Addr:              sr.backendConfig.ProbeAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		if err := probe.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("probe server: %s", err)
		}
	}()
}

// StartServer runs the API server until SIGINT/SIGTERM, then drains it.
// onShutdown runs after the listener stops accepting, before exit.
func (sr *ServerRunner) StartServer(registerConfig *handler.RegisterConfig, onShutdown func()) {
	klog.Info("starting server")
	backend := internal.Register(registerConfig)

	// reference: https://gin-gonic.com/en/docs/examples/graceful-restart-or-stop
	srv := &http.Server{
		Addr:              sr.backendConfig.ServerAddr,
		Handler:           backend.R,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	klog.Info("Shutdown Gin Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		klog.Info("Gin Server Shutdown:", err)
	}
	if onShutdown != nil {
		onShutdown()
	}
	klog.Info("Gin Server exiting")
}
