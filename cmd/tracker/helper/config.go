package helper

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imroc/req/v3"
	"github.com/joho/godotenv"

	"github.com/techopolis/tracker/dao"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/handler"
	"github.com/techopolis/tracker/pkg/config"
)

const identityTimeout = 10 * time.Second

// ConfigInitializer wires configuration into the runtime dependencies.
type ConfigInitializer struct {
	backendConfig *config.Config
}

func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment loads .debug.env in debug mode and lets it override
// the listen addresses for local development.
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	if be := os.Getenv("TRACKER_BE_PORT"); be != "" {
		ci.backendConfig.ServerAddr = ":" + be
	}
	if hp := os.Getenv("TRACKER_HP_PORT"); hp != "" {
		ci.backendConfig.ProbeAddr = ":" + hp
	}

	return nil
}

// InitializeRegisterConfig opens the database, applies pending migrations
// and builds the shared dependencies handed to the handlers.
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	registerConfig := &handler.RegisterConfig{}

	if err := dao.Migrate(query.GetDB()); err != nil {
		return nil, err
	}

	if ci.backendConfig.IdentityProvider.Enable {
		registerConfig.IdentityClient = req.C().SetTimeout(identityTimeout)
	}

	return registerConfig, nil
}
