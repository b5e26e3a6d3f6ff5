package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/pkg/accesscontrol"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewPageMgr)
}

type PageMgr struct {
	name string
}

func NewPageMgr(_ *RegisterConfig) Manager {
	return &PageMgr{name: "pages"}
}

func (mgr *PageMgr) GetName() string { return mgr.name }

func (mgr *PageMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *PageMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListPages)
	g.POST("", mgr.CreatePage)
	g.GET("/:id", mgr.GetPage)
	g.PUT("/:id", mgr.UpdatePage)
}

func (mgr *PageMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type PageResp struct {
	ID          uint           `json:"id"`
	ProjectID   uint           `json:"projectId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PageType    model.PageType `json:"pageType"`
	URL         string         `json:"url"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toPageResp(p *model.Page) PageResp {
	return PageResp{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Name:        p.Name,
		Description: p.Description,
		PageType:    p.PageType,
		URL:         p.URL,
		CreatedAt:   p.CreatedAt,
	}
}

type PageListReq struct {
	ProjectID uint `form:"projectId" binding:"required"`
}

// ListPages godoc
// @Summary List a project's pages
// @Tags Page
// @Produce json
// @Security Bearer
// @Param projectId query int true "project id"
// @Success 200 {object} resputil.Response[[]PageResp] "pages"
// @Router /pages [get]
func (mgr *PageMgr) ListPages(c *gin.Context) {
	var request PageListReq
	if err := c.ShouldBindQuery(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ProjectID},
		accesscontrol.KindPage, accesscontrol.OpList) == nil {
		return
	}

	var pages []model.Page
	err := query.GetDB().WithContext(c).
		Where("project_id = ?", request.ProjectID).Order("name").Find(&pages).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(pages, func(p model.Page, _ int) PageResp {
		return toPageResp(&p)
	}))
}

type CreatePageReq struct {
	ProjectID   uint           `json:"projectId" binding:"required"`
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	PageType    model.PageType `json:"pageType" binding:"omitempty,oneof=web mobile other"`
	URL         string         `json:"url"`
}

// CreatePage godoc
// @Summary Add a page to a project
// @Description Page names are unique within a project
// @Tags Page
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreatePageReq true "page fields"
// @Success 200 {object} resputil.Response[PageResp] "created page"
// @Failure 409 {object} resputil.Response[any] "name already used in this project"
// @Router /pages [post]
func (mgr *PageMgr) CreatePage(c *gin.Context) {
	var body CreatePageReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ProjectID: body.ProjectID},
		accesscontrol.KindPage, accesscontrol.OpCreate)
	if actor == nil {
		return
	}

	pageType := body.PageType
	if pageType == "" {
		pageType = model.PageWeb
	}
	page := model.Page{
		ProjectID:   body.ProjectID,
		Name:        body.Name,
		Description: body.Description,
		PageType:    pageType,
		URL:         body.URL,
		CreatedByID: &actor.UserID,
	}
	if err := query.GetDB().WithContext(c).Create(&page).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict,
				"A page with this name already exists in the project", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toPageResp(&page))
}

type PageIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

// GetPage godoc
// @Summary Get one page
// @Tags Page
// @Produce json
// @Security Bearer
// @Param id path int true "page id"
// @Success 200 {object} resputil.Response[PageResp] "page detail"
// @Failure 404 {object} resputil.Response[any] "page not found"
// @Router /pages/{id} [get]
func (mgr *PageMgr) GetPage(c *gin.Context) {
	var request PageIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var page model.Page
	found, err := firstOr404(c, &page, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Page not found")
		return
	}
	if authorize(c, service.Scope{ProjectID: page.ProjectID},
		accesscontrol.KindPage, accesscontrol.OpView) == nil {
		return
	}
	resputil.Success(c, toPageResp(&page))
}

type UpdatePageReq struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	PageType    model.PageType `json:"pageType" binding:"omitempty,oneof=web mobile other"`
	URL         string         `json:"url"`
}

// UpdatePage godoc
// @Summary Update a page
// @Tags Page
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "page id"
// @Param data body UpdatePageReq true "page fields"
// @Success 200 {object} resputil.Response[PageResp] "updated page"
// @Failure 409 {object} resputil.Response[any] "name already used in this project"
// @Router /pages/{id} [put]
func (mgr *PageMgr) UpdatePage(c *gin.Context) {
	var request PageIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdatePageReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var page model.Page
	found, err := firstOr404(c, &page, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Page not found")
		return
	}
	if authorize(c, service.Scope{ProjectID: page.ProjectID},
		accesscontrol.KindPage, accesscontrol.OpUpdate) == nil {
		return
	}

	updates := map[string]any{
		"name":        body.Name,
		"description": body.Description,
		"url":         body.URL,
	}
	if body.PageType != "" {
		updates["page_type"] = body.PageType
	}
	if err := query.GetDB().WithContext(c).Model(&page).Updates(updates).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict,
				"A page with this name already exists in the project", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toPageResp(&page))
}
