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
	Registers = append(Registers, NewProjectMgr)
}

type ProjectMgr struct {
	name string
}

func NewProjectMgr(_ *RegisterConfig) Manager {
	return &ProjectMgr{name: "projects"}
}

func (mgr *ProjectMgr) GetName() string { return mgr.name }

func (mgr *ProjectMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ProjectMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListProjects)
	g.POST("", mgr.CreateProject)
	g.GET("/:id", mgr.GetProject)
	g.PUT("/:id", mgr.UpdateProject)
	g.DELETE("/:id", mgr.DeleteProject)
	g.PUT("/:id/assignees", mgr.UpdateAssignees)

	g.PUT("/:id/standard", mgr.SetStandard)
	g.DELETE("/:id/standard", mgr.RemoveStandard)

	g.GET("/:id/violations", mgr.ListViolations)
	g.POST("/:id/violations", mgr.CreateViolation)
	g.PUT("/:id/violations/:violationId", mgr.UpdateViolation)
}

func (mgr *ProjectMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type ProjectIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

type ProjectResp struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	ClientID      uint      `json:"clientId"`
	ClientName    string    `json:"clientName"`
	ProjectTypeID uint      `json:"projectTypeId"`
	ProjectType   string    `json:"projectType"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"statusLabel"`
	Notes         string    `json:"notes"`
	Assignees     []string  `json:"assignees"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toProjectResp(p *model.Project) ProjectResp {
	resp := ProjectResp{
		ID:            p.ID,
		Name:          p.Name,
		ClientID:      p.ClientID,
		ProjectTypeID: p.ProjectTypeID,
		Status:        p.Status,
		StatusLabel:   p.StatusLabel(),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		Assignees: lo.Map(p.AssignedTo, func(u model.User, _ int) string {
			return u.FullName()
		}),
	}
	if p.Client != nil {
		resp.ClientName = p.Client.CompanyName
	}
	if p.ProjectType != nil {
		resp.ProjectType = p.ProjectType.Name
	}
	return resp
}

// ListProjects godoc
// @Summary List visible projects
// @Description Staff and admins see every project, everyone else only
// @Description projects they are assigned to or belong to via their client
// @Tags Project
// @Produce json
// @Security Bearer
// @Param clientId query int false "filter by client"
// @Success 200 {object} resputil.Response[[]ProjectResp] "projects"
// @Router /projects [get]
func (mgr *ProjectMgr) ListProjects(c *gin.Context) {
	actor := currentActor(c)
	db := query.GetDB().WithContext(c)

	tx := db.Preload("Client").Preload("ProjectType").Preload("AssignedTo").Order("name")
	if clientID := c.Query("clientId"); clientID != "" {
		tx = tx.Where("client_id = ?", clientID)
	}
	if decision := accesscontrol.Evaluate(actor, accesscontrol.Relation{},
		accesscontrol.KindProject, accesscontrol.OpList); !decision.Allowed {
		tx = tx.Where(
			"id IN (?) OR client_id IN (?) OR client_id IN (?)",
			db.Table("project_assignments").Select("project_id").
				Where("user_id = ?", actor.UserID),
			db.Model(&model.ClientCoworker{}).Select("client_id").
				Where("user_id = ? AND status = ?", actor.UserID, model.CoworkerActive),
			db.Model(&model.Client{}).Select("id").
				Where("point_of_contact_id = ?", actor.UserID),
		)
	}

	var projects []model.Project
	if err := tx.Find(&projects).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(projects, func(p model.Project, _ int) ProjectResp {
		return toProjectResp(&p)
	}))
}

type CreateProjectReq struct {
	Name          string `json:"name" binding:"required"`
	ClientID      uint   `json:"clientId" binding:"required"`
	ProjectTypeID uint   `json:"projectTypeId" binding:"required"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

// CreateProject godoc
// @Summary Create a project
// @Description The status key must belong to the project type's choice set
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateProjectReq true "project fields"
// @Success 200 {object} resputil.Response[ProjectResp] "created project"
// @Failure 422 {object} resputil.Response[any] "unknown status key"
// @Router /projects [post]
func (mgr *ProjectMgr) CreateProject(c *gin.Context) {
	var body CreateProjectReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ClientID: body.ClientID},
		accesscontrol.KindProject, accesscontrol.OpCreate)
	if actor == nil {
		return
	}

	var projectType model.ProjectType
	found, err := firstOr404(c, &projectType, body.ProjectTypeID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Project type not found")
		return
	}

	status := body.Status
	if status == "" {
		status = "not_started"
	}
	if !mgr.validStatus(c, &projectType, status) {
		return
	}

	project := model.Project{
		Name:          body.Name,
		ClientID:      body.ClientID,
		ProjectTypeID: body.ProjectTypeID,
		Status:        status,
		Notes:         body.Notes,
		CreatedByID:   &actor.UserID,
	}
	if err := query.GetDB().WithContext(c).Create(&project).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	project.ProjectType = &projectType

	if creator, err := currentUser(c); err == nil {
		alert.GetNotifier().ProjectCreated(c.Request.Context(), &project, creator)
	}
	resputil.Success(c, toProjectResp(&project))
}

// validStatus checks the key against the type's choice set and writes the
// error reply on failure.
func (mgr *ProjectMgr) validStatus(c *gin.Context, projectType *model.ProjectType, status string) bool {
	if choices.HasKey(projectType.StatusChoiceList(), status) {
		return true
	}
	resputil.HTTPError(c, http.StatusUnprocessableEntity,
		fmt.Sprintf("Status %q is not defined for project type %s", status, projectType.Name),
		resputil.ValidationFailed)
	return false
}

func (mgr *ProjectMgr) loadProject(c *gin.Context, id uint, preloads ...string) (*model.Project, bool) {
	var project model.Project
	found, err := firstOr404(c, &project, id, preloads...)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil, false
	}
	if !found {
		resputil.NotFoundError(c, "Project not found")
		return nil, false
	}
	return &project, true
}

// GetProject godoc
// @Summary Get one project
// @Tags Project
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Success 200 {object} resputil.Response[ProjectResp] "project detail"
// @Failure 404 {object} resputil.Response[any] "project not found"
// @Router /projects/{id} [get]
func (mgr *ProjectMgr) GetProject(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProject, accesscontrol.OpView) == nil {
		return
	}
	project, ok := mgr.loadProject(c, request.ID, "Client", "ProjectType", "AssignedTo")
	if !ok {
		return
	}
	resputil.Success(c, toProjectResp(project))
}

type UpdateProjectReq struct {
	Name   string `json:"name" binding:"required"`
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateProject godoc
// @Summary Update a project
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Param data body UpdateProjectReq true "project fields"
// @Success 200 {object} resputil.Response[ProjectResp] "updated project"
// @Failure 422 {object} resputil.Response[any] "unknown status key"
// @Router /projects/{id} [put]
func (mgr *ProjectMgr) UpdateProject(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateProjectReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProject, accesscontrol.OpUpdate) == nil {
		return
	}
	project, ok := mgr.loadProject(c, request.ID, "Client", "ProjectType", "AssignedTo")
	if !ok {
		return
	}
	if !mgr.validStatus(c, project.ProjectType, body.Status) {
		return
	}

	err := query.GetDB().WithContext(c).Model(project).Updates(map[string]any{
		"name":   body.Name,
		"status": body.Status,
		"notes":  body.Notes,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	if actor, err := currentUser(c); err == nil {
		alert.GetNotifier().ProjectUpdated(c.Request.Context(), project, actor)
	}
	resputil.Success(c, toProjectResp(project))
}

// DeleteProject godoc
// @Summary Delete a project and everything under it
// @Tags Project
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 403 {object} resputil.Response[any] "permission denied"
// @Router /projects/{id} [delete]
func (mgr *ProjectMgr) DeleteProject(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProject, accesscontrol.OpDelete) == nil {
		return
	}

	err := query.GetDB().WithContext(c).Delete(&model.Project{}, request.ID).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"deleted": request.ID})
}

type UpdateAssigneesReq struct {
	UserIDs []uint `json:"userIds"`
}

// UpdateAssignees godoc
// @Summary Replace the project's assignee set
// @Description Newly added assignees are notified
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Param data body UpdateAssigneesReq true "assignee user ids"
// @Success 200 {object} resputil.Response[ProjectResp] "updated project"
// @Router /projects/{id}/assignees [put]
func (mgr *ProjectMgr) UpdateAssignees(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateAssigneesReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProject, accesscontrol.OpUpdate) == nil {
		return
	}
	project, ok := mgr.loadProject(c, request.ID, "AssignedTo")
	if !ok {
		return
	}

	db := query.GetDB().WithContext(c)
	var assignees []model.User
	if len(body.UserIDs) > 0 {
		if err := db.Find(&assignees, body.UserIDs).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
	}

	previous := lo.Map(project.AssignedTo, func(u model.User, _ int) uint { return u.ID })
	if err := db.Model(project).Association("AssignedTo").Replace(assignees); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	project.AssignedTo = assignees

	actor, err := currentUser(c)
	if err == nil {
		for i := range assignees {
			if !lo.Contains(previous, assignees[i].ID) {
				alert.GetNotifier().ProjectAssigned(c.Request.Context(), project, &assignees[i], actor)
			}
		}
	}
	resputil.Success(c, toProjectResp(project))
}

type SetStandardReq struct {
	StandardID uint `json:"standardId" binding:"required"`
}

// SetStandard godoc
// @Summary Attach a compliance standard to the project
// @Description A project holds at most one standard; the database enforces
// @Description it even under concurrent requests
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Param data body SetStandardReq true "standard id"
// @Success 200 {object} resputil.Response[any] "attached"
// @Failure 409 {object} resputil.Response[any] "project already has a standard"
// @Failure 422 {object} resputil.Response[any] "project type does not support standards"
// @Router /projects/{id}/standard [put]
func (mgr *ProjectMgr) SetStandard(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body SetStandardReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProjectStandard, accesscontrol.OpCreate)
	if actor == nil {
		return
	}
	project, ok := mgr.loadProject(c, request.ID, "ProjectType")
	if !ok {
		return
	}
	if project.ProjectType != nil && !project.ProjectType.SupportsStandards {
		resputil.HTTPError(c, http.StatusUnprocessableEntity,
			"This project type does not support standards", resputil.ValidationFailed)
		return
	}

	link := model.ProjectStandard{
		ProjectID:   request.ID,
		StandardID:  body.StandardID,
		CreatedByID: &actor.UserID,
	}
	if err := query.GetDB().WithContext(c).Create(&link).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict,
				"Project already has a standard attached", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"projectId": request.ID, "standardId": body.StandardID})
}

// RemoveStandard godoc
// @Summary Detach the project's standard
// @Tags Project
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Success 200 {object} resputil.Response[any] "detached"
// @Failure 404 {object} resputil.Response[any] "no standard attached"
// @Router /projects/{id}/standard [delete]
func (mgr *ProjectMgr) RemoveStandard(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProjectStandard, accesscontrol.OpUpdate) == nil {
		return
	}

	res := query.GetDB().WithContext(c).
		Where("project_id = ?", request.ID).Delete(&model.ProjectStandard{})
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.NotFoundError(c, "No standard attached")
		return
	}
	resputil.Success(c, gin.H{"projectId": request.ID})
}

type ViolationResp struct {
	ID         uint                  `json:"id"`
	Violation  string                `json:"violation"`
	Standard   string                `json:"standard"`
	Status     model.ViolationStatus `json:"status"`
	Notes      string                `json:"notes"`
	Location   string                `json:"location"`
	Screenshot string                `json:"screenshot"`
	AssignedTo string                `json:"assignedTo"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func toViolationResp(v *model.ProjectViolation) ViolationResp {
	resp := ViolationResp{
		ID:         v.ID,
		Status:     v.Status,
		Notes:      v.Notes,
		Location:   v.Location,
		Screenshot: v.Screenshot,
		CreatedAt:  v.CreatedAt,
	}
	if v.Violation != nil {
		resp.Violation = v.Violation.Name
		if v.Violation.Standard != nil {
			resp.Standard = v.Violation.Standard.DisplayName()
		}
	}
	if v.AssignedTo != nil {
		resp.AssignedTo = v.AssignedTo.FullName()
	}
	return resp
}

// ListViolations godoc
// @Summary List violation occurrences in a project
// @Tags Project
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Success 200 {object} resputil.Response[[]ViolationResp] "violations"
// @Router /projects/{id}/violations [get]
func (mgr *ProjectMgr) ListViolations(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProjectViolation, accesscontrol.OpList) == nil {
		return
	}

	var violations []model.ProjectViolation
	err := query.GetDB().WithContext(c).
		Preload("Violation.Standard").Preload("AssignedTo").
		Where("project_id = ?", request.ID).Order("created_at desc").
		Find(&violations).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(violations, func(v model.ProjectViolation, _ int) ViolationResp {
		return toViolationResp(&v)
	}))
}

type CreateViolationReq struct {
	ViolationID  uint   `json:"violationId" binding:"required"`
	Notes        string `json:"notes"`
	Location     string `json:"location"`
	Screenshot   string `json:"screenshot"` // stored filename only
	AssignedToID *uint  `json:"assignedToId"`
}

// CreateViolation godoc
// @Summary Record a violation occurrence in a project
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Param data body CreateViolationReq true "violation occurrence"
// @Success 200 {object} resputil.Response[ViolationResp] "created occurrence"
// @Router /projects/{id}/violations [post]
func (mgr *ProjectMgr) CreateViolation(c *gin.Context) {
	var request ProjectIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body CreateViolationReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProjectViolation, accesscontrol.OpCreate)
	if actor == nil {
		return
	}

	occurrence := model.ProjectViolation{
		ProjectID:    request.ID,
		ViolationID:  body.ViolationID,
		Notes:        body.Notes,
		Location:     body.Location,
		Screenshot:   body.Screenshot,
		AssignedToID: body.AssignedToID,
		CreatedByID:  &actor.UserID,
	}
	db := query.GetDB().WithContext(c)
	if err := db.Create(&occurrence).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if err := db.Preload("Violation.Standard").Preload("AssignedTo").
		First(&occurrence, occurrence.ID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toViolationResp(&occurrence))
}

type ViolationIDReq struct {
	ID          uint `uri:"id" binding:"required"`
	ViolationID uint `uri:"violationId" binding:"required"`
}

type UpdateViolationReq struct {
	Status       model.ViolationStatus `json:"status" binding:"required,oneof=open in_progress fixed wont_fix not_applicable"`
	Notes        string                `json:"notes"`
	Location     string                `json:"location"`
	AssignedToID *uint                 `json:"assignedToId"`
}

// UpdateViolation godoc
// @Summary Update a violation occurrence
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project id"
// @Param violationId path int true "occurrence id"
// @Param data body UpdateViolationReq true "occurrence fields"
// @Success 200 {object} resputil.Response[ViolationResp] "updated occurrence"
// @Failure 404 {object} resputil.Response[any] "occurrence not found"
// @Router /projects/{id}/violations/{violationId} [put]
func (mgr *ProjectMgr) UpdateViolation(c *gin.Context) {
	var request ViolationIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateViolationReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ProjectID: request.ID},
		accesscontrol.KindProjectViolation, accesscontrol.OpUpdate) == nil {
		return
	}

	db := query.GetDB().WithContext(c)
	var occurrence model.ProjectViolation
	err := db.Preload("Violation.Standard").Preload("AssignedTo").
		Where("project_id = ?", request.ID).First(&occurrence, request.ViolationID).Error
	if err != nil {
		resputil.NotFoundError(c, "Violation occurrence not found")
		return
	}

	err = db.Model(&occurrence).Updates(map[string]any{
		"status":         body.Status,
		"notes":          body.Notes,
		"location":       body.Location,
		"assigned_to_id": body.AssignedToID,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toViolationResp(&occurrence))
}
