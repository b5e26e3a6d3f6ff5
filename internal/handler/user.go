package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name string
}

func NewUserMgr(_ *RegisterConfig) Manager {
	return &UserMgr{name: "users"}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.GetProfile)
	g.PUT("/me", mgr.UpdateProfile)
}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListUsers)
	g.GET("/:id", mgr.GetUser)
	g.PUT("/:id/role", mgr.UpdateRole)
	g.PUT("/:id/managers", mgr.UpdateManagers)
	g.PUT("/:id/active", mgr.SetActive)
}

type UserResp struct {
	ID          uint           `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	JobTitle    string         `json:"jobTitle"`
	Phone       string         `json:"phone"`
	Bio         string         `json:"bio"`
	Role        model.RoleName `json:"role"`
	IsSuperuser bool           `json:"isSuperuser"`
	IsActive    bool           `json:"isActive"`
	ManagerID   *uint          `json:"managerId"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toUserResp(u *model.User) UserResp {
	return UserResp{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		JobTitle:    u.JobTitle,
		Phone:       u.Phone,
		Bio:         u.Bio,
		Role:        u.RoleName(),
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		ManagerID:   u.ManagerID,
		CreatedAt:   u.CreatedAt,
	}
}

// GetProfile godoc
// @Summary Current user's profile
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserResp] "profile"
// @Router /users/me [get]
func (mgr *UserMgr) GetProfile(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

type UpdateProfileReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio" binding:"max=500"`
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body UpdateProfileReq true "profile fields"
// @Success 200 {object} resputil.Response[UserResp] "updated profile"
// @Router /users/me [put]
func (mgr *UserMgr) UpdateProfile(c *gin.Context) {
	var request UpdateProfileReq
	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	user, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	err = query.GetDB().WithContext(c).Model(user).Updates(map[string]any{
		"first_name": request.FirstName,
		"last_name":  request.LastName,
		"job_title":  request.JobTitle,
		"phone":      request.Phone,
		"bio":        request.Bio,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

// ListUsers godoc
// @Summary List all users
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UserResp] "all users"
// @Router /admin/users [get]
func (mgr *UserMgr) ListUsers(c *gin.Context) {
	var users []model.User
	err := query.GetDB().WithContext(c).Preload("Role").Order("email").Find(&users).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(users, func(u model.User, _ int) UserResp {
		return toUserResp(&u)
	}))
}

type UserIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

// GetUser godoc
// @Summary Get one user
// @Tags User
// @Produce json
// @Security Bearer
// @Param id path int true "user id"
// @Success 200 {object} resputil.Response[UserResp] "user detail"
// @Failure 404 {object} resputil.Response[any] "user not found"
// @Router /admin/users/{id} [get]
func (mgr *UserMgr) GetUser(c *gin.Context) {
	var request UserIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var user model.User
	found, err := firstOr404(c, &user, request.ID, "Role", "Manager", "AdditionalManagers")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "User not found")
		return
	}
	resputil.Success(c, toUserResp(&user))
}

type UpdateRoleReq struct {
	Role model.RoleName `json:"role" binding:"required,oneof=admin staff client user"`
}

// UpdateRole godoc
// @Summary Change a user's platform role
// @Description Sets the role and freezes identity-provider role sync for
// @Description this account from now on
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "user id"
// @Param data body UpdateRoleReq true "new role"
// @Success 200 {object} resputil.Response[UserResp] "updated user"
// @Failure 404 {object} resputil.Response[any] "user not found"
// @Router /admin/users/{id}/role [put]
func (mgr *UserMgr) UpdateRole(c *gin.Context) {
	var request UserIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateRoleReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var user model.User
	found, err := firstOr404(c, &user, request.ID, "Role")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "User not found")
		return
	}

	db := query.GetDB().WithContext(c)
	var role model.Role
	if err := db.Where("name = ?", body.Role).First(&role).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	err = db.Model(&user).Updates(map[string]any{
		"role_id":           role.ID,
		"is_staff":          body.Role == model.RoleAdmin || body.Role == model.RoleStaff,
		"manually_modified": true,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	user.Role = &role
	user.RoleID = &role.ID

	actor, actorErr := currentUser(c)
	if actorErr != nil {
		logutils.Log.Warnf("load actor for role change notification: %v", actorErr)
	}
	alert.GetNotifier().RoleChanged(c.Request.Context(), &user, body.Role, actor)
	resputil.Success(c, toUserResp(&user))
}

type UpdateManagersReq struct {
	ManagerID            *uint  `json:"managerId"`
	AdditionalManagerIDs []uint `json:"additionalManagerIds"`
}

// UpdateManagers godoc
// @Summary Set a user's manager hierarchy
// @Description Replaces the owning manager and the additional manager set.
// @Description Self-management is rejected; longer cycles are not checked.
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "user id"
// @Param data body UpdateManagersReq true "manager ids"
// @Success 200 {object} resputil.Response[UserResp] "updated user"
// @Failure 404 {object} resputil.Response[any] "user not found"
// @Router /admin/users/{id}/managers [put]
func (mgr *UserMgr) UpdateManagers(c *gin.Context) {
	var request UserIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateManagersReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if body.ManagerID != nil && *body.ManagerID == request.ID {
		resputil.BadRequestError(c, "A user cannot manage themselves")
		return
	}
	if lo.Contains(body.AdditionalManagerIDs, request.ID) {
		resputil.BadRequestError(c, "A user cannot manage themselves")
		return
	}

	var user model.User
	found, err := firstOr404(c, &user, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "User not found")
		return
	}

	db := query.GetDB().WithContext(c)
	var additional []model.User
	if len(body.AdditionalManagerIDs) > 0 {
		if err := db.Find(&additional, body.AdditionalManagerIDs).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
	}

	previousManagerID := user.ManagerID
	if err := db.Model(&user).Update("manager_id", body.ManagerID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if err := db.Model(&user).Association("AdditionalManagers").Replace(additional); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	user.ManagerID = body.ManagerID

	if managerDiffers(previousManagerID, body.ManagerID) {
		var manager *model.User
		if body.ManagerID != nil {
			var m model.User
			if err := db.First(&m, *body.ManagerID).Error; err == nil {
				manager = &m
			}
		}
		actor, actorErr := currentUser(c)
		if actorErr != nil {
			logutils.Log.Warnf("load actor for manager change notification: %v", actorErr)
		}
		alert.GetNotifier().ManagerChanged(c.Request.Context(), &user, manager, actor)
	}
	resputil.Success(c, toUserResp(&user))
}

func managerDiffers(previous, next *uint) bool {
	if previous == nil || next == nil {
		return previous != next
	}
	return *previous != *next
}

type SetActiveReq struct {
	IsActive bool `json:"isActive"`
}

// SetActive godoc
// @Summary Activate or deactivate an account
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "user id"
// @Param data body SetActiveReq true "active flag"
// @Success 200 {object} resputil.Response[UserResp] "updated user"
// @Failure 404 {object} resputil.Response[any] "user not found"
// @Router /admin/users/{id}/active [put]
func (mgr *UserMgr) SetActive(c *gin.Context) {
	var request UserIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body SetActiveReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var user model.User
	found, err := firstOr404(c, &user, request.ID, "Role")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "User not found")
		return
	}

	err = query.GetDB().WithContext(c).Model(&user).
		Update("is_active", body.IsActive).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(&user))
}
