package util

import (
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/pkg/config"
	"github.com/techopolis/tracker/pkg/logutils"
)

type (
	JWTClaims struct {
		UserID      uint           `json:"ui"`
		Email       string         `json:"em"`
		Role        model.RoleName `json:"ro"`
		IsSuperuser bool           `json:"su"`
		jwt.RegisteredClaims
	}
	JWTMessage struct {
		UserID      uint           `json:"userID"`
		Email       string         `json:"email"`
		Role        model.RoleName `json:"role"`        // Platform role (admin, staff, client, user)
		IsSuperuser bool           `json:"isSuperuser"` // Bypasses every permission check
	}
)

type TokenManager struct {
	accessSecret    string
	refreshSecret   string
	accessTokenTTL  int
	refreshTokenTTL int
}

var (
	once     sync.Once
	tokenMgr *TokenManager
)

func GetTokenMgr() *TokenManager {
	once.Do(func() {
		conf := config.GetConfig()
		tokenMgr = newTokenManager(conf.Auth.AccessTokenSecret,
			conf.Auth.RefreshTokenSecret,
			conf.Auth.AccessTokenExpiryHour,
			conf.Auth.RefreshTokenExpiryHour,
		)
	})
	return tokenMgr
}

func newTokenManager(accessSecret, refreshSecret string, accessTokenTTL, refreshTokenTTL int) *TokenManager {
	return &TokenManager{
		accessSecret,
		refreshSecret,
		accessTokenTTL,
		refreshTokenTTL,
	}
}

func (tm *TokenManager) createToken(msg *JWTMessage, secret string, ttl int) (string, error) {
	expiresAt := time.Now().Add(time.Hour * time.Duration(ttl))

	claims := &JWTClaims{
		UserID:      msg.UserID,
		Email:       msg.Email,
		Role:        msg.Role,
		IsSuperuser: msg.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// CreateTokens creates a new access token and a new refresh token. The two
// are signed with separate secrets so a refresh token can never pass as an
// access token.
func (tm *TokenManager) CreateTokens(msg *JWTMessage) (
	accessToken string, refreshToken string, err error) {
	accessToken, err = tm.createToken(msg, tm.accessSecret, tm.accessTokenTTL)
	if err != nil {
		logutils.Log.Error(err)
		return "", "", err
	}
	refreshToken, err = tm.createToken(msg, tm.refreshSecret, tm.refreshTokenTTL)
	if err != nil {
		logutils.Log.Error(err)
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (tm *TokenManager) checkToken(requestToken, secret string) (JWTMessage, error) {
	claims := JWTClaims{}
	_, err := jwt.ParseWithClaims(requestToken, &claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return JWTMessage{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Role:        claims.Role,
		IsSuperuser: claims.IsSuperuser,
	}, err
}

func (tm *TokenManager) CheckToken(requestToken string) (JWTMessage, error) {
	return tm.checkToken(requestToken, tm.accessSecret)
}

func (tm *TokenManager) CheckRefreshToken(requestToken string) (JWTMessage, error) {
	return tm.checkToken(requestToken, tm.refreshSecret)
}
