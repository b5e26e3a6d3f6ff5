package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/techopolis/tracker/dao/model"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := newTokenManager("access-secret", "refresh-secret", 1, 24)

	Convey("claims survive a create/check round trip", t, func() {
		msg := &JWTMessage{
			UserID:      42,
			Email:       "pat@techopolis.test",
			Role:        model.RoleStaff,
			IsSuperuser: false,
		}
		access, refresh, err := tm.CreateTokens(msg)
		So(err, ShouldBeNil)
		So(access, ShouldNotBeEmpty)
		So(refresh, ShouldNotBeEmpty)
		So(access, ShouldNotEqual, refresh)

		got, err := tm.CheckToken(access)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, *msg)

		got, err = tm.CheckRefreshToken(refresh)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, *msg)
	})

	Convey("the token kinds are not interchangeable", t, func() {
		access, refresh, err := tm.CreateTokens(&JWTMessage{UserID: 3, Role: model.RoleUser})
		So(err, ShouldBeNil)

		_, err = tm.CheckToken(refresh)
		So(err, ShouldNotBeNil)
		_, err = tm.CheckRefreshToken(access)
		So(err, ShouldNotBeNil)
	})

	Convey("a token signed with another secret is rejected", t, func() {
		other := newTokenManager("other-secret", "other-refresh", 1, 24)
		access, _, err := other.CreateTokens(&JWTMessage{UserID: 7, Role: model.RoleClient})
		So(err, ShouldBeNil)

		_, err = tm.CheckToken(access)
		So(err, ShouldNotBeNil)
	})

	Convey("garbage is rejected", t, func() {
		_, err := tm.CheckToken("not.a.token")
		So(err, ShouldNotBeNil)
	})
}
