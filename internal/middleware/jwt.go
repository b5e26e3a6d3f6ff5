package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/util"
)

func AuthProtected() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		t := strings.Split(authHeader, " ")
		if len(t) < 2 || t[0] != "Bearer" {
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid token", resputil.TokenInvalid)
			c.Abort()
			return
		}

		authToken := t[1]
		token, err := util.GetTokenMgr().CheckToken(authToken)
		if err != nil {
			resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
			c.Abort()
			return
		}

		// For mutating methods, re-check the role against the database so a
		// demoted user cannot keep writing with a stale token.
		if c.Request.Method != http.MethodGet {
			var user model.User
			err := query.GetDB().WithContext(c).Preload("Role").
				First(&user, token.UserID).Error
			if err != nil {
				resputil.HTTPError(c, http.StatusUnauthorized, "User not found", resputil.TokenExpired)
				c.Abort()
				return
			}
			if user.RoleName() != token.Role || user.IsSuperuser != token.IsSuperuser {
				resputil.HTTPError(c, http.StatusUnauthorized, "Platform token not match", resputil.TokenExpired)
				c.Abort()
				return
			}
			if !user.IsActive {
				resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.TokenExpired)
				c.Abort()
				return
			}
		}

		// If request method is GET, use the user info from token.
		util.SetJWTContext(c, token)
		c.Next()
	}
}

func AuthAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.GetToken(c)
		if !token.IsSuperuser && token.Role != model.RoleAdmin {
			resputil.HTTPError(c, http.StatusForbidden, "Not Admin", resputil.PermissionDenied)
			c.Abort()
			return
		}
		c.Next()
	}
}
