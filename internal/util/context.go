package util

import (
	"github.com/gin-gonic/gin"

	"github.com/techopolis/tracker/dao/model"
)

const (
	UserIDKey       = "x-user-id"
	UserEmailKey    = "x-user-email"
	RolePlatformKey = "x-role-platform"
	SuperuserKey    = "x-superuser"
)

func SetJWTContext(c *gin.Context, msg JWTMessage) {
	c.Set(UserIDKey, msg.UserID)
	c.Set(UserEmailKey, msg.Email)
	c.Set(RolePlatformKey, msg.Role)
	c.Set(SuperuserKey, msg.IsSuperuser)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.UserID = ctx.GetUint(UserIDKey)
	msg.Email = ctx.GetString(UserEmailKey)
	msg.IsSuperuser = ctx.GetBool(SuperuserKey)

	role, _ := ctx.Get(RolePlatformKey)
	if r, ok := role.(model.RoleName); ok {
		msg.Role = r
	}
	return msg
}
