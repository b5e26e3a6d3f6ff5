package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/mockey"
	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/internal/util"
	"github.com/techopolis/tracker/pkg/accesscontrol"
)

func coworkerDeleteContext(userID uint) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/clients/1/coworkers/2", nil)
	c.Params = gin.Params{
		{Key: "id", Value: "1"},
		{Key: "coworkerId", Value: "2"},
	}
	util.SetJWTContext(c, util.JWTMessage{UserID: userID, Email: "dev@client.test", Role: model.RoleUser})
	return c, w
}

func TestRemoveCoworkerAuthorizationOrder(t *testing.T) {
	mockey.PatchConvey("Given a caller without client-scoped delete rights", t, func() {
		mgr := &ClientMgr{name: "clients", invitations: &service.InvitationService{}}

		mockey.Mock(query.GetDB).Return((*gorm.DB)(nil)).Build()
		mockey.Mock(service.BuildRelation).
			Return(accesscontrol.Relation{}, nil).Build()
		loadMocker := mockey.Mock((*ClientMgr).loadCoworker).
			Return(nil, false).Build()

		Convey("a foreign membership is answered with 403, not 404", func() {
			mockey.Mock((*ClientMgr).ownMembership).
				Return(nil, gorm.ErrRecordNotFound).Build()

			c, w := coworkerDeleteContext(99)
			mgr.RemoveCoworker(c)

			So(w.Code, ShouldEqual, http.StatusForbidden)
			// The general lookup must never run for a denied caller.
			So(loadMocker.Times(), ShouldEqual, 0)
		})

		Convey("the caller may still remove their own membership", func() {
			own := &model.ClientCoworker{ClientID: 1, UserID: 99}
			own.ID = 2
			mockey.Mock((*ClientMgr).ownMembership).
				Return(own, nil).Build()
			leaveMocker := mockey.Mock((*service.InvitationService).Leave).
				To(func(_ *service.InvitationService, _ context.Context, membership *model.ClientCoworker) error {
					So(membership.UserID, ShouldEqual, 99)
					return nil
				}).Build()

			c, w := coworkerDeleteContext(99)
			mgr.RemoveCoworker(c)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(leaveMocker.Times(), ShouldEqual, 1)
			So(loadMocker.Times(), ShouldEqual, 0)
		})
	})
}
