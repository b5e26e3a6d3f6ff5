package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/pkg/accesscontrol"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/choices"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMilestoneMgr)
}

type MilestoneMgr struct {
	name       string
	milestones *service.MilestoneService
}

func NewMilestoneMgr(_ *RegisterConfig) Manager {
	return &MilestoneMgr{
		name:       "milestones",
		milestones: service.NewMilestoneService(),
	}
}

func (mgr *MilestoneMgr) GetName() string { return mgr.name }

func (mgr *MilestoneMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *MilestoneMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMilestones)
	g.POST("", mgr.CreateMilestone)
	g.GET("/:id", mgr.GetMilestone)
	g.PUT("/:id", mgr.UpdateMilestone)
	g.PUT("/:id/status", mgr.ChangeStatus)
	g.GET("/:id/issues", mgr.ListMilestoneIssues)
	g.GET("/:id/history", mgr.GetHistory)
}

func (mgr *MilestoneMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type MilestoneResp struct {
	ID            uint                  `json:"id"`
	ProjectID     uint                  `json:"projectId"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	MilestoneType string                `json:"milestoneType"`
	TypeLabel     string                `json:"typeLabel"`
	Status        model.MilestoneStatus `json:"status"`
	DueDate       *time.Time            `json:"dueDate"`
	CompletedDate *time.Time            `json:"completedDate"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func toMilestoneResp(m *model.Milestone) MilestoneResp {
	return MilestoneResp{
		ID:            m.ID,
		ProjectID:     m.ProjectID,
		Name:          m.Name,
		Description:   m.Description,
		MilestoneType: m.MilestoneType,
		TypeLabel:     m.TypeLabel(),
		Status:        m.Status,
		DueDate:       m.DueDate,
		CompletedDate: m.CompletedDate,
		CreatedAt:     m.CreatedAt,
	}
}

type MilestoneListReq struct {
	ProjectID uint `form:"projectId" binding:"required"`
}

// ListMilestones godoc
// @Summary List a project's milestones
// @Tags Milestone
// @Produce json
// @Security Bearer
// @Param projectId query int true "project id"
// @Success 200 {object} resputil.Response[[]MilestoneResp] "milestones"
// @Router /milestones [get]
func (mgr *MilestoneMgr) ListMilestones(c *gin.Context) {
	var request MilestoneListReq
	if err := c.ShouldBindQuery(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpList) == nil {
		return
	}

	var milestones []model.Milestone
	err := query.GetDB().WithContext(c).Preload("Project.ProjectType").
		Where("project_id = ?", request.ProjectID).Order("due_date").Find(&milestones).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(milestones, func(m model.Milestone, _ int) MilestoneResp {
		return toMilestoneResp(&m)
	}))
}

type CreateMilestoneReq struct {
	ProjectID     uint       `json:"projectId" binding:"required"`
	Name          string     `json:"name" binding:"required"`
	Description   string     `json:"description"`
	MilestoneType string     `json:"milestoneType"`
	DueDate       *time.Time `json:"dueDate"`
}

// validMilestoneType checks the key against the project type's milestone
// choices when the type defines any. Writes the error reply on failure.
func (mgr *MilestoneMgr) validMilestoneType(c *gin.Context, project *model.Project, key string) bool {
	if key == "" || project.ProjectType == nil {
		return true
	}
	list := project.ProjectType.MilestoneChoices.Data()
	if len(list) == 0 || choices.HasKey(list, key) {
		return true
	}
	resputil.HTTPError(c, http.StatusUnprocessableEntity,
		fmt.Sprintf("Milestone type %q is not defined for project type %s",
			key, project.ProjectType.Name),
		resputil.ValidationFailed)
	return false
}

// CreateMilestone godoc
// @Summary Create a milestone
// @Description The milestone type key must belong to the project type's
// @Description milestone choice set
// @Tags Milestone
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateMilestoneReq true "milestone fields"
// @Success 200 {object} resputil.Response[MilestoneResp] "created milestone"
// @Failure 422 {object} resputil.Response[any] "unknown milestone type key"
// @Router /milestones [post]
func (mgr *MilestoneMgr) CreateMilestone(c *gin.Context) {
	var body CreateMilestoneReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: body.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpCreate) == nil {
		return
	}

	var project model.Project
	found, err := firstOr404(c, &project, body.ProjectID, "ProjectType")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Project not found")
		return
	}
	if !mgr.validMilestoneType(c, &project, body.MilestoneType) {
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	milestone := model.Milestone{
		ProjectID:     body.ProjectID,
		Name:          body.Name,
		Description:   body.Description,
		MilestoneType: body.MilestoneType,
		DueDate:       body.DueDate,
		CreatedByID:   &actor.ID,
	}
	if err := mgr.milestones.Create(c.Request.Context(), &milestone, actor); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	milestone.Project = &project
	resputil.Success(c, toMilestoneResp(&milestone))
}

type MilestoneIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

func (mgr *MilestoneMgr) loadMilestone(c *gin.Context, id uint) (*model.Milestone, bool) {
	var milestone model.Milestone
	found, err := firstOr404(c, &milestone, id, "Project.ProjectType")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil, false
	}
	if !found {
		resputil.NotFoundError(c, "Milestone not found")
		return nil, false
	}
	return &milestone, true
}

// GetMilestone godoc
// @Summary Get one milestone
// @Tags Milestone
// @Produce json
// @Security Bearer
// @Param id path int true "milestone id"
// @Success 200 {object} resputil.Response[MilestoneResp] "milestone detail"
// @Failure 404 {object} resputil.Response[any] "milestone not found"
// @Router /milestones/{id} [get]
func (mgr *MilestoneMgr) GetMilestone(c *gin.Context) {
	var request MilestoneIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	milestone, ok := mgr.loadMilestone(c, request.ID)
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: milestone.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpView) == nil {
		return
	}
	resputil.Success(c, toMilestoneResp(milestone))
}

type UpdateMilestoneReq struct {
	Name          string     `json:"name" binding:"required"`
	Description   string     `json:"description"`
	MilestoneType string     `json:"milestoneType"`
	DueDate       *time.Time `json:"dueDate"`
}

// UpdateMilestone godoc
// @Summary Update a milestone's fields
// @Description Status changes go through the status endpoint instead
// @Tags Milestone
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "milestone id"
// @Param data body UpdateMilestoneReq true "milestone fields"
// @Success 200 {object} resputil.Response[MilestoneResp] "updated milestone"
// @Failure 422 {object} resputil.Response[any] "unknown milestone type key"
// @Router /milestones/{id} [put]
func (mgr *MilestoneMgr) UpdateMilestone(c *gin.Context) {
	var request MilestoneIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateMilestoneReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	milestone, ok := mgr.loadMilestone(c, request.ID)
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: milestone.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpUpdate) == nil {
		return
	}
	if milestone.Project != nil && !mgr.validMilestoneType(c, milestone.Project, body.MilestoneType) {
		return
	}

	err := query.GetDB().WithContext(c).Model(milestone).Updates(map[string]any{
		"name":           body.Name,
		"description":    body.Description,
		"milestone_type": body.MilestoneType,
		"due_date":       body.DueDate,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	if actor, err := currentUser(c); err == nil {
		alert.GetNotifier().MilestoneUpdated(c.Request.Context(), milestone, actor)
	}
	resputil.Success(c, toMilestoneResp(milestone))
}

type ChangeMilestoneStatusReq struct {
	Status model.MilestoneStatus `json:"status" binding:"required,oneof=not_started in_progress completed published"`
}

// ChangeStatus godoc
// @Summary Move a milestone through its lifecycle
// @Description Publishing opens the milestone's issues to the client's
// @Description users and notifies them
// @Tags Milestone
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "milestone id"
// @Param data body ChangeMilestoneStatusReq true "new status"
// @Success 200 {object} resputil.Response[MilestoneResp] "updated milestone"
// @Failure 404 {object} resputil.Response[any] "milestone not found"
// @Router /milestones/{id}/status [put]
func (mgr *MilestoneMgr) ChangeStatus(c *gin.Context) {
	var request MilestoneIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ChangeMilestoneStatusReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	milestone, ok := mgr.loadMilestone(c, request.ID)
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: milestone.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpUpdate) == nil {
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	if err := mgr.milestones.ChangeStatus(c.Request.Context(), milestone, actor, body.Status); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toMilestoneResp(milestone))
}

// ListMilestoneIssues godoc
// @Summary List a milestone's issues
// @Description Client-role users only see issues of published milestones;
// @Description staff, admins and assigned staff are not gated
// @Tags Milestone
// @Produce json
// @Security Bearer
// @Param id path int true "milestone id"
// @Success 200 {object} resputil.Response[[]IssueResp] "issues"
// @Failure 403 {object} resputil.Response[any] "milestone not published"
// @Router /milestones/{id}/issues [get]
func (mgr *MilestoneMgr) ListMilestoneIssues(c *gin.Context) {
	var request MilestoneIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	milestone, ok := mgr.loadMilestone(c, request.ID)
	if !ok {
		return
	}

	actor := currentActor(c)
	rel, err := service.BuildRelation(c.Request.Context(), query.GetDB(), actor,
		service.Scope{ProjectID: milestone.ProjectID})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if decision := accesscontrol.CanViewMilestoneIssues(actor, rel, milestone.Status); !decision.Allowed {
		resputil.Forbidden(c, decision.Reason)
		return
	}

	var issues []model.Issue
	err = query.GetDB().WithContext(c).
		Preload("Page").Preload("AssignedTo").
		Where("milestone_id = ?", request.ID).Order("created_at desc").Find(&issues).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(issues, func(i model.Issue, _ int) IssueResp {
		return toIssueResp(&i)
	}))
}

// GetHistory godoc
// @Summary Audit trail of a milestone
// @Tags Milestone
// @Produce json
// @Security Bearer
// @Param id path int true "milestone id"
// @Success 200 {object} resputil.Response[[]ModificationResp] "audit entries"
// @Router /milestones/{id}/history [get]
func (mgr *MilestoneMgr) GetHistory(c *gin.Context) {
	var request MilestoneIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	milestone, ok := mgr.loadMilestone(c, request.ID)
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: milestone.ProjectID},
		accesscontrol.KindMilestone, accesscontrol.OpView) == nil {
		return
	}

	var entries []model.IssueModification
	err := query.GetDB().WithContext(c).Preload("Actor").
		Where("milestone_id = ?", request.ID).Order("created_at").Find(&entries).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(entries, func(e model.IssueModification, _ int) ModificationResp {
		return toModificationResp(&e)
	}))
}
