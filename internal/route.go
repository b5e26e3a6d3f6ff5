package internal

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/techopolis/tracker/internal/handler"
	"github.com/techopolis/tracker/internal/middleware"
	"github.com/techopolis/tracker/pkg/config"
	"github.com/techopolis/tracker/pkg/metrics"
)

const apiPrefix = "/v1"

type Backend struct {
	R *gin.Engine
}

func Register(conf *handler.RegisterConfig) *Backend {
	s := new(Backend)
	s.R = gin.Default()

	// Health check for the load balancer
	s.R.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.R.GET("/metrics", metrics.Handler())

	s.registerService(conf)

	return s
}

func (b *Backend) registerService(conf *handler.RegisterConfig) {
	// Enable CORS for the dev frontend in debug mode
	if config.IsDebugMode() {
		origin := config.GetConfig().FrontendOrigin
		if origin != "" {
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{origin}
			corsConf.AllowHeaders = append(corsConf.AllowHeaders, "Authorization")
			b.R.Use(cors.New(corsConf))
		}
	}

	b.R.Use(metrics.RequestMetrics())

	managers := registerManagers(conf)

	publicRouter := b.R.Group(apiPrefix)

	protectedRouter := b.R.Group(apiPrefix)
	protectedRouter.Use(middleware.AuthProtected())

	adminRouter := b.R.Group(apiPrefix + "/admin")
	adminRouter.Use(middleware.AuthProtected(), middleware.AuthAdmin())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter.Group(mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group(mgr.GetName()))
		mgr.RegisterAdmin(adminRouter.Group(mgr.GetName()))
	}
}
