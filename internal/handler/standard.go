package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/internal/util"
	"github.com/techopolis/tracker/pkg/accesscontrol"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewStandardMgr)
}

// StandardMgr serves the shared compliance catalog: standards and the
// violations that belong to them. The catalog is global, not scoped to a
// client, so writes are admin-only while any signed-in user may browse it.
type StandardMgr struct {
	name string
}

func NewStandardMgr(_ *RegisterConfig) Manager {
	return &StandardMgr{name: "standards"}
}

func (mgr *StandardMgr) GetName() string { return mgr.name }

func (mgr *StandardMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *StandardMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListStandards)
	g.GET("/:id", mgr.GetStandard)
	g.GET("/:id/violations", mgr.ListViolations)
}

func (mgr *StandardMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateStandard)
	g.PUT("/:id", mgr.UpdateStandard)
	g.DELETE("/:id", mgr.DeleteStandard)
	g.POST("/:id/violations", mgr.CreateViolation)
	g.PUT("/:id/violations/:violationId", mgr.UpdateViolation)
	g.DELETE("/:id/violations/:violationId", mgr.DeleteViolation)
}

type StandardResp struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toStandardResp(s *model.Standard) StandardResp {
	return StandardResp{
		ID:          s.ID,
		Name:        s.Name,
		Version:     s.Version,
		DisplayName: s.DisplayName(),
		Description: s.Description,
		URL:         s.URL,
		CreatedAt:   s.CreatedAt,
	}
}

type CatalogViolationResp struct {
	ID          uint   `json:"id"`
	StandardID  uint   `json:"standardId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func toCatalogViolationResp(v *model.Violation) CatalogViolationResp {
	return CatalogViolationResp{
		ID:          v.ID,
		StandardID:  v.StandardID,
		Name:        v.Name,
		Description: v.Description,
		URL:         v.URL,
	}
}

// ListStandards godoc
// @Summary List the compliance standards catalog
// @Tags Standard
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]StandardResp] "standards"
// @Router /standards [get]
func (mgr *StandardMgr) ListStandards(c *gin.Context) {
	if authorize(c, service.Scope{}, accesscontrol.KindStandard, accesscontrol.OpList) == nil {
		return
	}
	var standards []model.Standard
	err := query.GetDB().WithContext(c).Order("name, version").Find(&standards).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(standards, func(s model.Standard, _ int) StandardResp {
		return toStandardResp(&s)
	}))
}

type StandardIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

// GetStandard godoc
// @Summary Get one standard
// @Tags Standard
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Success 200 {object} resputil.Response[StandardResp] "standard detail"
// @Failure 404 {object} resputil.Response[any] "standard not found"
// @Router /standards/{id} [get]
func (mgr *StandardMgr) GetStandard(c *gin.Context) {
	var request StandardIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{}, accesscontrol.KindStandard, accesscontrol.OpView) == nil {
		return
	}
	var standard model.Standard
	found, err := firstOr404(c, &standard, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Standard not found")
		return
	}
	resputil.Success(c, toStandardResp(&standard))
}

// ListViolations godoc
// @Summary List a standard's violations
// @Tags Standard
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Success 200 {object} resputil.Response[[]CatalogViolationResp] "violations"
// @Router /standards/{id}/violations [get]
func (mgr *StandardMgr) ListViolations(c *gin.Context) {
	var request StandardIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{}, accesscontrol.KindViolation, accesscontrol.OpList) == nil {
		return
	}
	var violations []model.Violation
	err := query.GetDB().WithContext(c).
		Where("standard_id = ?", request.ID).Order("name").Find(&violations).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(violations, func(v model.Violation, _ int) CatalogViolationResp {
		return toCatalogViolationResp(&v)
	}))
}

type StandardBodyReq struct {
	Name        string `json:"name" binding:"required"`
	Version     string `json:"version"`
	Description string `json:"description"`
	URL         string `json:"url" binding:"omitempty,url"`
}

// CreateStandard godoc
// @Summary Add a standard to the catalog
// @Description Name plus version must be unique
// @Tags Standard
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body StandardBodyReq true "standard fields"
// @Success 200 {object} resputil.Response[StandardResp] "created standard"
// @Failure 409 {object} resputil.Response[any] "name and version already exist"
// @Router /admin/standards [post]
func (mgr *StandardMgr) CreateStandard(c *gin.Context) {
	var body StandardBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	standard := model.Standard{
		Name:        body.Name,
		Version:     body.Version,
		Description: body.Description,
		URL:         body.URL,
		CreatedByID: &token.UserID,
	}
	if err := query.GetDB().WithContext(c).Create(&standard).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, 409, "A standard with this name and version already exists", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toStandardResp(&standard))
}

// UpdateStandard godoc
// @Summary Update a catalog standard
// @Tags Standard
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Param data body StandardBodyReq true "standard fields"
// @Success 200 {object} resputil.Response[StandardResp] "updated standard"
// @Router /admin/standards/{id} [put]
func (mgr *StandardMgr) UpdateStandard(c *gin.Context) {
	var request StandardIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body StandardBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var standard model.Standard
	found, err := firstOr404(c, &standard, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Standard not found")
		return
	}
	err = query.GetDB().WithContext(c).Model(&standard).Updates(map[string]any{
		"name":        body.Name,
		"version":     body.Version,
		"description": body.Description,
		"url":         body.URL,
	}).Error
	if err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, 409, "A standard with this name and version already exists", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toStandardResp(&standard))
}

// DeleteStandard godoc
// @Summary Remove a standard from the catalog
// @Description Refused while any project still has the standard attached
// @Tags Standard
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 409 {object} resputil.Response[any] "standard still attached to projects"
// @Router /admin/standards/{id} [delete]
func (mgr *StandardMgr) DeleteStandard(c *gin.Context) {
	var request StandardIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	db := query.GetDB().WithContext(c)
	var attached int64
	err := db.Model(&model.ProjectStandard{}).
		Where("standard_id = ?", request.ID).Count(&attached).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if attached > 0 {
		resputil.HTTPError(c, 409, "Standard is attached to one or more projects", resputil.ResourceInUse)
		return
	}
	result := db.Delete(&model.Standard{}, request.ID)
	if result.Error != nil {
		resputil.Error(c, result.Error.Error(), resputil.NotSpecified)
		return
	}
	if result.RowsAffected == 0 {
		resputil.NotFoundError(c, "Standard not found")
		return
	}
	resputil.Success(c, nil)
}

type ViolationBodyReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	URL         string `json:"url" binding:"omitempty,url"`
}

// CreateViolation godoc
// @Summary Add a violation to a standard
// @Description Violation names are unique within their standard
// @Tags Standard
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Param data body ViolationBodyReq true "violation fields"
// @Success 200 {object} resputil.Response[CatalogViolationResp] "created violation"
// @Failure 409 {object} resputil.Response[any] "name already used in this standard"
// @Router /admin/standards/{id}/violations [post]
func (mgr *StandardMgr) CreateViolation(c *gin.Context) {
	var request StandardIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ViolationBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var standard model.Standard
	found, err := firstOr404(c, &standard, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Standard not found")
		return
	}
	token := util.GetToken(c)
	violation := model.Violation{
		StandardID:  standard.ID,
		Name:        body.Name,
		Description: body.Description,
		URL:         body.URL,
		CreatedByID: &token.UserID,
	}
	if err := query.GetDB().WithContext(c).Create(&violation).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, 409, "A violation with this name already exists in this standard", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toCatalogViolationResp(&violation))
}

type CatalogViolationIDReq struct {
	ID          uint `uri:"id" binding:"required"`
	ViolationID uint `uri:"violationId" binding:"required"`
}

// UpdateViolation godoc
// @Summary Update a catalog violation
// @Tags Standard
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Param violationId path int true "violation id"
// @Param data body ViolationBodyReq true "violation fields"
// @Success 200 {object} resputil.Response[CatalogViolationResp] "updated violation"
// @Router /admin/standards/{id}/violations/{violationId} [put]
func (mgr *StandardMgr) UpdateViolation(c *gin.Context) {
	var request CatalogViolationIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ViolationBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	db := query.GetDB().WithContext(c)
	var violation model.Violation
	err := db.Where("id = ? AND standard_id = ?", request.ViolationID, request.ID).
		First(&violation).Error
	if err != nil {
		resputil.NotFoundError(c, "Violation not found")
		return
	}
	err = db.Model(&violation).Updates(map[string]any{
		"name":        body.Name,
		"description": body.Description,
		"url":         body.URL,
	}).Error
	if err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, 409, "A violation with this name already exists in this standard", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toCatalogViolationResp(&violation))
}

// DeleteViolation godoc
// @Summary Remove a violation from a standard
// @Description Refused while any project references it
// @Tags Standard
// @Produce json
// @Security Bearer
// @Param id path int true "standard id"
// @Param violationId path int true "violation id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 409 {object} resputil.Response[any] "violation referenced by projects"
// @Router /admin/standards/{id}/violations/{violationId} [delete]
func (mgr *StandardMgr) DeleteViolation(c *gin.Context) {
	var request CatalogViolationIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	db := query.GetDB().WithContext(c)
	var referenced int64
	err := db.Model(&model.ProjectViolation{}).
		Where("violation_id = ?", request.ViolationID).Count(&referenced).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if referenced > 0 {
		resputil.HTTPError(c, 409, "Violation is referenced by one or more projects", resputil.ResourceInUse)
		return
	}
	result := db.Where("standard_id = ?", request.ID).Delete(&model.Violation{}, request.ViolationID)
	if result.Error != nil {
		resputil.Error(c, result.Error.Error(), resputil.NotSpecified)
		return
	}
	if result.RowsAffected == 0 {
		resputil.NotFoundError(c, "Violation not found")
		return
	}
	resputil.Success(c, nil)
}
