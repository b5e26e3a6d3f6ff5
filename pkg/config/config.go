package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Host       string `yaml:"host"`       // The public domain name of the server, used in email links.
	ServerAddr string `yaml:"serverAddr"` // The address the API server binds to.
	ProbeAddr  string `yaml:"probeAddr"`  // The address the health probe endpoint binds to.

	// CORS origin allowed in debug mode (the dev frontend).
	FrontendOrigin string `yaml:"frontendOrigin"`

	Auth struct {
		AccessTokenSecret      string `yaml:"accessTokenSecret"`
		RefreshTokenSecret     string `yaml:"refreshTokenSecret"`
		AccessTokenExpiryHour  int    `yaml:"accessTokenExpiryHour"`
		RefreshTokenExpiryHour int    `yaml:"refreshTokenExpiryHour"`
	} `yaml:"auth"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		DBName   string `yaml:"dbname"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
		TimeZone string `yaml:"timeZone"`
		// Optional read replica, routed via dbresolver when set.
		ReplicaHost string `yaml:"replicaHost"`
		ReplicaPort string `yaml:"replicaPort"`
	} `yaml:"postgres"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	// Staff directory, optional second auth method for login.
	LDAP struct {
		Enable   bool   `yaml:"enable"`
		Address  string `yaml:"address"`
		UserName string `yaml:"userName"`
		Password string `yaml:"password"`
		SearchDN string `yaml:"searchDN"`
	} `yaml:"ldap"`

	// External identity provider (OIDC-style). The tracker only consumes the
	// resolved profile {email, given_name, family_name, roles[]}.
	IdentityProvider struct {
		Enable      bool   `yaml:"enable"`
		UserInfoURL string `yaml:"userInfoURL"`
	} `yaml:"identityProvider"`

	Reminder struct {
		// Cron spec for the overdue milestone reminder, empty disables it.
		MilestoneSpec string `yaml:"milestoneSpec"`
	} `yaml:"reminder"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file. In debug mode it reads
// ./etc/debug-config.yaml (overridable via TRACKER_DEBUG_CONFIG_PATH),
// otherwise the config.yaml mounted at /etc/config.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("TRACKER_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("TRACKER_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	err := readConfig(configPath, config)
	if err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}
