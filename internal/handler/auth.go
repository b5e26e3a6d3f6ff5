package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	ldap "github.com/go-ldap/ldap/v3"
	"github.com/imroc/req/v3"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/internal/util"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/config"
	"github.com/techopolis/tracker/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name           string
	identityClient *req.Client
	tokenMgr       *util.TokenManager
	invitations    *service.InvitationService
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:           "auth",
		identityClient: conf.IdentityClient,
		tokenMgr:       util.GetTokenMgr(),
		invitations:    service.NewInvitationService(),
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/login", mgr.Login)
	g.POST("/signup", mgr.Signup)
	g.POST("/refresh", mgr.RefreshToken)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/invitations/:token/accept", mgr.AcceptInvitation)
	g.POST("/invitations/:token/decline", mgr.DeclineInvitation)
}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	LoginReq struct {
		Email      string `json:"email" binding:"required"`
		Password   string `json:"password"`                // empty for the oidc method
		AuthMethod string `json:"auth" binding:"required"` // one of [normal, ldap, oidc]
		IDPToken   string `json:"idpToken"`                // identity provider access token, oidc only
	}

	LoginResp struct {
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
		Role         model.RoleName `json:"role"`
		IsSuperuser  bool           `json:"isSuperuser"`
	}
)

const (
	AuthMethodNormal = "normal"
	AuthMethodLDAP   = "ldap"
	AuthMethodOIDC   = "oidc"
)

// Login godoc
// @Summary User login
// @Description Verify credentials and issue a JWT token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq true "credentials"
// @Success 200 {object} resputil.Response[LoginResp] "token pair and platform role"
// @Failure 400 {object} resputil.Response[any] "invalid request"
// @Failure 401 {object} resputil.Response[any] "wrong email or password"
// @Router /login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var request LoginReq
	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	l := logutils.Log.WithFields(logutils.Fields{
		"email": request.Email,
		"auth":  request.AuthMethod,
	})

	switch request.AuthMethod {
	case AuthMethodNormal:
		if err := mgr.passwordAuth(c, request.Email, request.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	case AuthMethodLDAP:
		if err := mgr.ldapAuth(request.Email, request.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	case AuthMethodOIDC:
		if err := mgr.oidcAuth(c, request.Email, request.IDPToken); err != nil {
			l.Error("identity provider rejected: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	default:
		l.Error("invalid auth method: ", request.AuthMethod)
		resputil.HTTPError(c, http.StatusBadRequest, "Invalid auth method", resputil.InvalidRequest)
		return
	}

	var user model.User
	err := query.GetDB().WithContext(c).Preload("Role").
		Where("email = ?", request.Email).First(&user).Error
	if err != nil {
		l.Error(err)
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !user.IsActive {
		l.Error("user is not active")
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.InvalidCredentials)
		return
	}

	mgr.respondWithTokens(c, &user)
}

func (mgr *AuthMgr) respondWithTokens(c *gin.Context, user *model.User) {
	jwtMessage := util.JWTMessage{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.RoleName(),
		IsSuperuser: user.IsSuperuser,
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&jwtMessage)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         user.RoleName(),
		IsSuperuser:  user.IsSuperuser,
	})
}

func (mgr *AuthMgr) passwordAuth(c *gin.Context, email, password string) error {
	var user model.User
	err := query.GetDB().WithContext(c).Where("email = ?", email).First(&user).Error
	if err != nil {
		return fmt.Errorf("user not found")
	}
	if user.Password == nil {
		return fmt.Errorf("user does not have a password")
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)) != nil {
		return fmt.Errorf("wrong email or password")
	}
	return nil
}

// ldapAuth binds against the staff directory. Only consultancy accounts
// live there, so a directory login never creates client users.
func (mgr *AuthMgr) ldapAuth(email, password string) error {
	authConfig := config.GetConfig()
	if !authConfig.LDAP.Enable {
		return fmt.Errorf("ldap login is disabled")
	}
	l, err := ldap.DialURL(authConfig.LDAP.Address)
	if err != nil {
		return err
	}
	defer l.Close()

	if err = l.Bind(authConfig.LDAP.UserName, authConfig.LDAP.Password); err != nil {
		return err
	}

	searchRequest := ldap.NewSearchRequest(
		authConfig.LDAP.SearchDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(mail=%s)", email),
		[]string{"dn"},
		nil,
	)
	searchResult, err := l.Search(searchRequest)
	if err != nil {
		return err
	}
	if len(searchResult.Entries) != 1 {
		return fmt.Errorf("user not found or too many entries returned")
	}

	return l.Bind(searchResult.Entries[0].DN, password)
}

type userInfoResp struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// oidcAuth validates the provider token against the userinfo endpoint and
// provisions the account on first login.
func (mgr *AuthMgr) oidcAuth(c *gin.Context, email, idpToken string) error {
	idpConfig := config.GetConfig().IdentityProvider
	if !idpConfig.Enable {
		return fmt.Errorf("identity provider login is disabled")
	}
	if idpToken == "" {
		return fmt.Errorf("missing identity provider token")
	}

	var info userInfoResp
	resp, err := mgr.identityClient.R().
		SetContext(c.Request.Context()).
		SetBearerAuthToken(idpToken).
		SetSuccessResult(&info).
		Get(idpConfig.UserInfoURL)
	if err != nil {
		return err
	}
	if !resp.IsSuccessState() {
		return fmt.Errorf("userinfo returned %s", resp.Status)
	}
	if info.Email != email {
		return fmt.Errorf("token does not belong to %s", email)
	}

	db := query.GetDB().WithContext(c)
	var user model.User
	err = db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{
			Email:     info.Email,
			FirstName: info.GivenName,
			LastName:  info.FamilyName,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		alert.GetNotifier().Welcome(c.Request.Context(), &user)
		return nil
	}
	return err
}

type SignupReq struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Signup godoc
// @Summary Create an account
// @Description Register a password-based account with no platform role
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body SignupReq true "account details"
// @Success 200 {object} resputil.Response[LoginResp] "token pair for the new account"
// @Failure 400 {object} resputil.Response[any] "invalid request"
// @Failure 409 {object} resputil.Response[any] "email already registered"
// @Router /signup [post]
func (mgr *AuthMgr) Signup(c *gin.Context) {
	var request SignupReq
	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	password := string(hashed)
	user := model.User{
		Email:     request.Email,
		Password:  &password,
		FirstName: request.FirstName,
		LastName:  request.LastName,
	}
	if err := query.GetDB().WithContext(c).Create(&user).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict, "Email already registered", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	alert.GetNotifier().Welcome(c.Request.Context(), &user)
	mgr.respondWithTokens(c, &user)
}

type (
	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"` // without the `Bearer ` prefix
	}

	RefreshResp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
)

// RefreshToken godoc
// @Summary Refresh the token pair
// @Description Exchange a valid refresh token for a new pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RefreshReq true "refresh token"
// @Success 200 {object} resputil.Response[RefreshResp] "new token pair"
// @Failure 401 {object} resputil.Response[any] "refresh token invalid or expired"
// @Router /refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var request RefreshReq
	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	claims, err := mgr.tokenMgr.CheckRefreshToken(request.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid refresh token", resputil.TokenExpired)
		return
	}

	// Re-read the user so a role change invalidates stale claims.
	var user model.User
	err = query.GetDB().WithContext(c).Preload("Role").First(&user, claims.UserID).Error
	if err != nil || !user.IsActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "User not found", resputil.TokenExpired)
		return
	}

	jwtMessage := util.JWTMessage{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.RoleName(),
		IsSuperuser: user.IsSuperuser,
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&jwtMessage)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, RefreshResp{AccessToken: accessToken, RefreshToken: refreshToken})
}

type InvitationTokenReq struct {
	Token string `uri:"token" binding:"required,uuid"`
}

// AcceptInvitation godoc
// @Summary Accept a coworker invitation
// @Description Consume the single-use token and activate the membership
// @Tags Auth
// @Produce json
// @Security Bearer
// @Param token path string true "invitation token"
// @Success 200 {object} resputil.Response[any] "joined client"
// @Failure 404 {object} resputil.Response[any] "token unknown or already used"
// @Router /invitations/{token}/accept [post]
func (mgr *AuthMgr) AcceptInvitation(c *gin.Context) {
	var request InvitationTokenReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	user, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	client, err := mgr.invitations.Accept(c.Request.Context(), request.Token, user)
	switch {
	case errors.Is(err, service.ErrNotFound):
		// Same answer for unknown, consumed and misdirected tokens.
		resputil.NotFoundError(c, "Invitation not found")
	case errors.Is(err, service.ErrConflict):
		resputil.HTTPError(c, http.StatusConflict, "Already a coworker of this client", resputil.Conflict)
	case err != nil:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	default:
		resputil.Success(c, gin.H{"clientId": client.ID, "companyName": client.CompanyName})
	}
}

// DeclineInvitation godoc
// @Summary Decline a coworker invitation
// @Tags Auth
// @Produce json
// @Security Bearer
// @Param token path string true "invitation token"
// @Success 200 {object} resputil.Response[any] "declined"
// @Failure 404 {object} resputil.Response[any] "token unknown or already used"
// @Router /invitations/{token}/decline [post]
func (mgr *AuthMgr) DeclineInvitation(c *gin.Context) {
	var request InvitationTokenReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	err := mgr.invitations.Decline(c.Request.Context(), request.Token)
	switch {
	case errors.Is(err, service.ErrNotFound):
		resputil.NotFoundError(c, "Invitation not found")
	case err != nil:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	default:
		resputil.Success(c, gin.H{"status": model.CoworkerDeclined})
	}
}
