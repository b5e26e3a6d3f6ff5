package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/imroc/req/v3"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies handed to every manager at
// registration time.
type RegisterConfig struct {
	// HTTP client for the external identity provider's userinfo endpoint.
	IdentityClient *req.Client
}

type RegisterFunc func(config *RegisterConfig) Manager

// Registers is appended to by each manager's init.
var Registers []RegisterFunc
