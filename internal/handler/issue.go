package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/pkg/accesscontrol"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/fieldspec"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewIssueMgr)
}

type IssueMgr struct {
	name   string
	issues *service.IssueService
}

func NewIssueMgr(_ *RegisterConfig) Manager {
	return &IssueMgr{
		name:   "issues",
		issues: service.NewIssueService(),
	}
}

func (mgr *IssueMgr) GetName() string { return mgr.name }

func (mgr *IssueMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *IssueMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListIssues)
	g.POST("", mgr.CreateIssue)
	g.GET("/:id", mgr.GetIssue)
	g.PUT("/:id", mgr.UpdateIssue)
	g.PUT("/:id/status", mgr.ChangeStatus)
	g.GET("/:id/comments", mgr.ListComments)
	g.POST("/:id/comments", mgr.AddComment)
	g.GET("/:id/history", mgr.GetHistory)
}

func (mgr *IssueMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type IssueResp struct {
	ID                uint              `json:"id"`
	ProjectID         uint              `json:"projectId"`
	MilestoneID       uint              `json:"milestoneId"`
	PageID            uint              `json:"pageId"`
	Page              string            `json:"page"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	ReproductionSteps string            `json:"reproductionSteps"`
	ToolOrMethod      string            `json:"toolOrMethod"`
	UserImpact        string            `json:"userImpact"`
	Workarounds       string            `json:"workarounds"`
	Attachment        string            `json:"attachment"`
	Status            model.IssueStatus `json:"status"`
	DynamicFields     map[string]any    `json:"dynamicFields"`
	AssignedTo        string            `json:"assignedTo"`
	CreatedAt         time.Time         `json:"createdAt"`
}

func toIssueResp(i *model.Issue) IssueResp {
	resp := IssueResp{
		ID:                i.ID,
		ProjectID:         i.ProjectID,
		MilestoneID:       i.MilestoneID,
		PageID:            i.PageID,
		Title:             i.Title,
		Description:       i.Description,
		ReproductionSteps: i.ReproductionSteps,
		ToolOrMethod:      i.ToolOrMethod,
		UserImpact:        i.UserImpact,
		Workarounds:       i.Workarounds,
		Attachment:        i.Attachment,
		Status:            i.Status,
		DynamicFields:     i.DynamicFields,
		CreatedAt:         i.CreatedAt,
	}
	if i.Page != nil {
		resp.Page = i.Page.Name
	}
	if i.AssignedTo != nil {
		resp.AssignedTo = i.AssignedTo.FullName()
	}
	return resp
}

type IssueListReq struct {
	ProjectID   uint `form:"projectId" binding:"required"`
	MilestoneID uint `form:"milestoneId"`
	PageID      uint `form:"pageId"`
}

// ListIssues godoc
// @Summary List a project's issues
// @Description Client-role users only see issues whose milestone has been
// @Description published
// @Tags Issue
// @Produce json
// @Security Bearer
// @Param projectId query int true "project id"
// @Param milestoneId query int false "filter by milestone"
// @Param pageId query int false "filter by page"
// @Success 200 {object} resputil.Response[[]IssueResp] "issues"
// @Router /issues [get]
func (mgr *IssueMgr) ListIssues(c *gin.Context) {
	var request IssueListReq
	if err := c.ShouldBindQuery(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ProjectID: request.ProjectID},
		accesscontrol.KindIssue, accesscontrol.OpList)
	if actor == nil {
		return
	}

	db := query.GetDB().WithContext(c)
	tx := db.Preload("Page").Preload("AssignedTo").
		Where("issues.project_id = ?", request.ProjectID).
		Order("issues.created_at desc")
	if request.MilestoneID != 0 {
		tx = tx.Where("issues.milestone_id = ?", request.MilestoneID)
	}
	if request.PageID != 0 {
		tx = tx.Where("issues.page_id = ?", request.PageID)
	}
	// The publication gate, applied in bulk: client-role actors only see
	// issues whose milestone is published.
	if actor.Role == model.RoleClient && !actor.IsSuperuser {
		tx = tx.Joins("JOIN milestones ON milestones.id = issues.milestone_id").
			Where("milestones.status = ?", model.MilestonePublished)
	}

	var issues []model.Issue
	if err := tx.Find(&issues).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(issues, func(i model.Issue, _ int) IssueResp {
		return toIssueResp(&i)
	}))
}

type CreateIssueReq struct {
	ProjectID         uint              `json:"projectId" binding:"required"`
	MilestoneID       uint              `json:"milestoneId" binding:"required"`
	PageID            uint              `json:"pageId" binding:"required"`
	ViolationID       *uint             `json:"violationId"`
	Title             string            `json:"title" binding:"required"`
	Description       string            `json:"description"`
	ReproductionSteps string            `json:"reproductionSteps"`
	ToolOrMethod      string            `json:"toolOrMethod"`
	UserImpact        string            `json:"userImpact"`
	Workarounds       string            `json:"workarounds"`
	Attachment        string            `json:"attachment"` // stored filename only
	Status            model.IssueStatus `json:"status" binding:"omitempty,oneof=pass fail qa in_remediation ready_for_testing"`
	AssignedToID      *uint             `json:"assignedToId"`
	DynamicFields     map[string]any    `json:"dynamicFields"`
}

// CreateIssue godoc
// @Summary Report an issue
// @Description Dynamic fields are validated against the project type's
// @Description schema in force right now; stale keys on older issues are
// @Description left untouched
// @Tags Issue
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateIssueReq true "issue fields"
// @Success 200 {object} resputil.Response[IssueResp] "created issue"
// @Failure 422 {object} resputil.Response[any] "dynamic field validation failed"
// @Router /issues [post]
func (mgr *IssueMgr) CreateIssue(c *gin.Context) {
	var body CreateIssueReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: body.ProjectID},
		accesscontrol.KindIssue, accesscontrol.OpCreate) == nil {
		return
	}

	db := query.GetDB().WithContext(c)
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

	// Milestone and page must belong to the same project.
	var owned int64
	err = db.Model(&model.Milestone{}).
		Where("id = ? AND project_id = ?", body.MilestoneID, body.ProjectID).Count(&owned).Error
	if err != nil || owned == 0 {
		resputil.BadRequestError(c, "Milestone does not belong to this project")
		return
	}
	err = db.Model(&model.Page{}).
		Where("id = ? AND project_id = ?", body.PageID, body.ProjectID).Count(&owned).Error
	if err != nil || owned == 0 {
		resputil.BadRequestError(c, "Page does not belong to this project")
		return
	}

	bag, ok := mgr.buildBag(c, &project, body.DynamicFields)
	if !ok {
		return
	}

	status := body.Status
	if status == "" {
		status = model.IssueFail
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	issue := model.Issue{
		ProjectID:         body.ProjectID,
		MilestoneID:       body.MilestoneID,
		PageID:            body.PageID,
		ViolationID:       body.ViolationID,
		Title:             body.Title,
		Description:       body.Description,
		ReproductionSteps: body.ReproductionSteps,
		ToolOrMethod:      body.ToolOrMethod,
		UserImpact:        body.UserImpact,
		Workarounds:       body.Workarounds,
		Attachment:        body.Attachment,
		Status:            status,
		DynamicFields:     datatypes.JSONMap(bag),
		CreatedByID:       &actor.ID,
		AssignedToID:      body.AssignedToID,
	}
	if err := mgr.issues.Create(c.Request.Context(), &issue, actor); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toIssueResp(&issue))
}

// buildBag validates the submitted dynamic fields against the project
// type's current schema. Writes the error reply on failure.
func (mgr *IssueMgr) buildBag(c *gin.Context, project *model.Project, raw map[string]any) (map[string]any, bool) {
	var schema []fieldspec.Descriptor
	if project.ProjectType != nil {
		schema = project.ProjectType.IssueFields.Data()
	}
	bag, err := fieldspec.ParseSubmission(schema, raw)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnprocessableEntity, err.Error(), resputil.ValidationFailed)
		return nil, false
	}
	return bag, true
}

type IssueIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

func (mgr *IssueMgr) loadIssue(c *gin.Context, id uint, preloads ...string) (*model.Issue, bool) {
	var issue model.Issue
	found, err := firstOr404(c, &issue, id, preloads...)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil, false
	}
	if !found {
		resputil.NotFoundError(c, "Issue not found")
		return nil, false
	}
	return &issue, true
}

// gateIssueView applies the milestone publication gate to a single issue.
func (mgr *IssueMgr) gateIssueView(c *gin.Context, issue *model.Issue) bool {
	actor := currentActor(c)
	rel, err := service.BuildRelation(c.Request.Context(), query.GetDB(), actor,
		service.Scope{ProjectID: issue.ProjectID})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return false
	}
	status := model.MilestoneNotStarted
	if issue.Milestone != nil {
		status = issue.Milestone.Status
	}
	if decision := accesscontrol.CanViewMilestoneIssues(actor, rel, status); !decision.Allowed {
		resputil.Forbidden(c, decision.Reason)
		return false
	}
	return true
}

// GetIssue godoc
// @Summary Get one issue
// @Tags Issue
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Success 200 {object} resputil.Response[IssueResp] "issue detail"
// @Failure 403 {object} resputil.Response[any] "milestone not published"
// @Failure 404 {object} resputil.Response[any] "issue not found"
// @Router /issues/{id} [get]
func (mgr *IssueMgr) GetIssue(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Milestone", "Page", "AssignedTo")
	if !ok {
		return
	}
	if !mgr.gateIssueView(c, issue) {
		return
	}
	resputil.Success(c, toIssueResp(issue))
}

type UpdateIssueReq struct {
	Title             string         `json:"title" binding:"required"`
	Description       string         `json:"description"`
	ReproductionSteps string         `json:"reproductionSteps"`
	ToolOrMethod      string         `json:"toolOrMethod"`
	UserImpact        string         `json:"userImpact"`
	Workarounds       string         `json:"workarounds"`
	Attachment        string         `json:"attachment"`
	AssignedToID      *uint          `json:"assignedToId"`
	DynamicFields     map[string]any `json:"dynamicFields"`
}

// UpdateIssue godoc
// @Summary Update an issue's fields
// @Description Status changes go through the status endpoint instead.
// @Description Dynamic fields are re-validated against the schema in force.
// @Tags Issue
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Param data body UpdateIssueReq true "issue fields"
// @Success 200 {object} resputil.Response[IssueResp] "updated issue"
// @Failure 422 {object} resputil.Response[any] "dynamic field validation failed"
// @Router /issues/{id} [put]
func (mgr *IssueMgr) UpdateIssue(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateIssueReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Project.ProjectType", "Milestone", "Page")
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: issue.ProjectID},
		accesscontrol.KindIssue, accesscontrol.OpUpdate) == nil {
		return
	}

	bag, ok := mgr.buildBag(c, issue.Project, body.DynamicFields)
	if !ok {
		return
	}

	err := query.GetDB().WithContext(c).Model(issue).Updates(map[string]any{
		"title":              body.Title,
		"description":        body.Description,
		"reproduction_steps": body.ReproductionSteps,
		"tool_or_method":     body.ToolOrMethod,
		"user_impact":        body.UserImpact,
		"workarounds":        body.Workarounds,
		"attachment":         body.Attachment,
		"assigned_to_id":     body.AssignedToID,
		"dynamic_fields":     datatypes.JSONMap(bag),
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	issue.DynamicFields = datatypes.JSONMap(bag)

	if actor, err := currentUser(c); err == nil {
		alert.GetNotifier().IssueUpdated(c.Request.Context(), issue, actor)
	}
	resputil.Success(c, toIssueResp(issue))
}

type ChangeIssueStatusReq struct {
	Status model.IssueStatus `json:"status" binding:"required,oneof=pass fail qa in_remediation ready_for_testing"`
}

// ChangeStatus godoc
// @Summary Move an issue through its lifecycle
// @Description Writes an audit entry and notifies the project's audience
// @Tags Issue
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Param data body ChangeIssueStatusReq true "new status"
// @Success 200 {object} resputil.Response[IssueResp] "updated issue"
// @Failure 404 {object} resputil.Response[any] "issue not found"
// @Router /issues/{id}/status [put]
func (mgr *IssueMgr) ChangeStatus(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ChangeIssueStatusReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Milestone", "Page")
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: issue.ProjectID},
		accesscontrol.KindIssue, accesscontrol.OpUpdate) == nil {
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	if err := mgr.issues.ChangeStatus(c.Request.Context(), issue, actor, body.Status); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toIssueResp(issue))
}

type CommentResp struct {
	ID          uint              `json:"id"`
	Author      string            `json:"author"`
	CommentType model.CommentType `json:"commentType"`
	Content     string            `json:"content"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toCommentResp(cm *model.Comment) CommentResp {
	resp := CommentResp{
		ID:          cm.ID,
		CommentType: cm.CommentType,
		Content:     cm.Content,
		CreatedAt:   cm.CreatedAt,
	}
	if cm.Author != nil {
		resp.Author = cm.Author.FullName()
	}
	return resp
}

// ListComments godoc
// @Summary List an issue's comments
// @Description Internal comments are only included for staff and admins
// @Tags Issue
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Success 200 {object} resputil.Response[[]CommentResp] "comments"
// @Router /issues/{id}/comments [get]
func (mgr *IssueMgr) ListComments(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Milestone")
	if !ok {
		return
	}
	if !mgr.gateIssueView(c, issue) {
		return
	}

	actor := currentActor(c)
	tx := query.GetDB().WithContext(c).Preload("Author").
		Where("issue_id = ?", request.ID).Order("created_at")
	if !actor.IsSuperuser && actor.Role != model.RoleAdmin && actor.Role != model.RoleStaff {
		tx = tx.Where("comment_type = ?", model.CommentExternal)
	}

	var comments []model.Comment
	if err := tx.Find(&comments).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(comments, func(cm model.Comment, _ int) CommentResp {
		return toCommentResp(&cm)
	}))
}

type AddCommentReq struct {
	Content     string            `json:"content" binding:"required"`
	CommentType model.CommentType `json:"commentType" binding:"omitempty,oneof=internal external"`
}

// AddComment godoc
// @Summary Comment on an issue
// @Description Internal comments are restricted to staff and admins
// @Tags Issue
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Param data body AddCommentReq true "comment"
// @Success 200 {object} resputil.Response[CommentResp] "created comment"
// @Failure 403 {object} resputil.Response[any] "internal comment not permitted"
// @Router /issues/{id}/comments [post]
func (mgr *IssueMgr) AddComment(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body AddCommentReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Project", "Milestone")
	if !ok {
		return
	}
	if authorize(c, service.Scope{ProjectID: issue.ProjectID},
		accesscontrol.KindComment, accesscontrol.OpCreate) == nil {
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	commentType := body.CommentType
	if commentType == "" {
		commentType = model.CommentExternal
	}
	comment, err := mgr.issues.AddComment(c.Request.Context(), issue, actor, commentType, body.Content)
	if errors.Is(err, service.ErrForbidden) {
		resputil.Forbidden(c, "Internal comments are restricted to staff")
		return
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	comment.Author = actor
	resputil.Success(c, toCommentResp(comment))
}

type ModificationResp struct {
	ID            uint                   `json:"id"`
	Kind          model.ModificationKind `json:"kind"`
	PreviousValue string                 `json:"previousValue"`
	NewValue      string                 `json:"newValue"`
	Actor         string                 `json:"actor"`
	CreatedAt     time.Time              `json:"createdAt"`
}

func toModificationResp(e *model.IssueModification) ModificationResp {
	resp := ModificationResp{
		ID:            e.ID,
		Kind:          e.Kind,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		CreatedAt:     e.CreatedAt,
	}
	if e.Actor != nil {
		resp.Actor = e.Actor.FullName()
	}
	return resp
}

// GetHistory godoc
// @Summary Audit trail of an issue
// @Tags Issue
// @Produce json
// @Security Bearer
// @Param id path int true "issue id"
// @Success 200 {object} resputil.Response[[]ModificationResp] "audit entries"
// @Router /issues/{id}/history [get]
func (mgr *IssueMgr) GetHistory(c *gin.Context) {
	var request IssueIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	issue, ok := mgr.loadIssue(c, request.ID, "Milestone")
	if !ok {
		return
	}
	if !mgr.gateIssueView(c, issue) {
		return
	}

	var entries []model.IssueModification
	err := query.GetDB().WithContext(c).Preload("Actor").
		Where("issue_id = ?", request.ID).Order("created_at").Find(&entries).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(entries, func(e model.IssueModification, _ int) ModificationResp {
		return toModificationResp(&e)
	}))
}
