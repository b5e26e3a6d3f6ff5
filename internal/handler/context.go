package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/util"
	"github.com/techopolis/tracker/pkg/accesscontrol"
)

// currentActor builds the evaluator's view of the authenticated user from
// the JWT context set by the middleware.
func currentActor(c *gin.Context) accesscontrol.Actor {
	token := util.GetToken(c)
	return accesscontrol.Actor{
		UserID:      token.UserID,
		IsSuperuser: token.IsSuperuser,
		Role:        token.Role,
	}
}

// currentUser loads the full user record for handlers that need more than
// the token claims (names for notifications, role promotion on accept).
func currentUser(c *gin.Context) (*model.User, error) {
	token := util.GetToken(c)
	var user model.User
	err := query.GetDB().WithContext(c).Preload("Role").First(&user, token.UserID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// firstOr404 loads dest by primary key, distinguishing missing rows from
// database failures for the caller.
func firstOr404(c *gin.Context, dest any, id uint, preloads ...string) (found bool, err error) {
	tx := query.GetDB().WithContext(c)
	for _, p := range preloads {
		tx = tx.Preload(p)
	}
	err = tx.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
