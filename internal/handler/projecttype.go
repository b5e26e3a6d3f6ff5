package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/pkg/accesscontrol"
	"github.com/techopolis/tracker/pkg/choices"
	"github.com/techopolis/tracker/pkg/fieldspec"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewProjectTypeMgr)
}

type ProjectTypeMgr struct {
	name string
}

func NewProjectTypeMgr(_ *RegisterConfig) Manager {
	return &ProjectTypeMgr{name: "project-types"}
}

func (mgr *ProjectTypeMgr) GetName() string { return mgr.name }

func (mgr *ProjectTypeMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ProjectTypeMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListProjectTypes)
	g.GET("/:id", mgr.GetProjectType)
}

func (mgr *ProjectTypeMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateProjectType)
	g.PUT("/:id", mgr.UpdateProjectType)
	g.DELETE("/:id", mgr.DeleteProjectType)
}

type ProjectTypeResp struct {
	ID                uint              `json:"id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description"`
	SupportsStandards bool              `json:"supportsStandards"`
	StatusChoices     choices.List      `json:"statusChoices"`
	MilestoneChoices  choices.List      `json:"milestoneChoices"`
	IssueFields       []fieldspec.Field `json:"issueFields"`
	StatusChoicesText string            `json:"statusChoicesText"`
}

func toProjectTypeResp(t *model.ProjectType) (ProjectTypeResp, error) {
	fields, err := fieldspec.MaterializeAll(t.IssueFields.Data())
	if err != nil {
		return ProjectTypeResp{}, err
	}
	return ProjectTypeResp{
		ID:                t.ID,
		Name:              t.Name,
		Slug:              t.Slug,
		Description:       t.Description,
		SupportsStandards: t.SupportsStandards,
		StatusChoices:     t.StatusChoiceList(),
		MilestoneChoices:  t.MilestoneChoices.Data(),
		IssueFields:       fields,
		StatusChoicesText: choices.Format(t.StatusChoiceList()),
	}, nil
}

// ListProjectTypes godoc
// @Summary List project types
// @Tags ProjectType
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ProjectTypeResp] "project types"
// @Router /project-types [get]
func (mgr *ProjectTypeMgr) ListProjectTypes(c *gin.Context) {
	actor := currentActor(c)
	if decision := accesscontrol.Evaluate(actor, accesscontrol.Relation{},
		accesscontrol.KindProjectType, accesscontrol.OpList); !decision.Allowed {
		resputil.Forbidden(c, decision.Reason)
		return
	}

	var types []model.ProjectType
	err := query.GetDB().WithContext(c).Order("name").Find(&types).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]ProjectTypeResp, 0, len(types))
	for i := range types {
		r, err := toProjectTypeResp(&types[i])
		if err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
		resp = append(resp, r)
	}
	resputil.Success(c, resp)
}

type ProjectTypeIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

// GetProjectType godoc
// @Summary Get one project type
// @Tags ProjectType
// @Produce json
// @Security Bearer
// @Param id path int true "project type id"
// @Success 200 {object} resputil.Response[ProjectTypeResp] "project type"
// @Failure 404 {object} resputil.Response[any] "project type not found"
// @Router /project-types/{id} [get]
func (mgr *ProjectTypeMgr) GetProjectType(c *gin.Context) {
	var request ProjectTypeIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := currentActor(c)
	if decision := accesscontrol.Evaluate(actor, accesscontrol.Relation{},
		accesscontrol.KindProjectType, accesscontrol.OpView); !decision.Allowed {
		resputil.Forbidden(c, decision.Reason)
		return
	}

	var projectType model.ProjectType
	found, err := firstOr404(c, &projectType, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Project type not found")
		return
	}
	resp, err := toProjectTypeResp(&projectType)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, resp)
}

type ProjectTypeBodyReq struct {
	Name              string `json:"name" binding:"required"`
	Slug              string `json:"slug" binding:"required"`
	Description       string `json:"description"`
	SupportsStandards bool   `json:"supportsStandards"`
	// One "key, Display Name" pair per line.
	StatusChoicesText    string                 `json:"statusChoicesText"`
	MilestoneChoicesText string                 `json:"milestoneChoicesText"`
	IssueFields          []fieldspec.Descriptor `json:"issueFields"`
}

// parseBody validates the choice texts and the field schema, aggregating
// every problem into one reply instead of stopping at the first.
func (mgr *ProjectTypeMgr) parseBody(c *gin.Context, body *ProjectTypeBodyReq) (statuses, milestones choices.List, ok bool) {
	var problems []string

	statuses, err := choices.Parse(body.StatusChoicesText)
	if err != nil {
		var vErr *choices.ValidationError
		if errors.As(err, &vErr) {
			problems = append(problems, vErr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	milestones, err = choices.Parse(body.MilestoneChoicesText)
	if err != nil {
		var vErr *choices.ValidationError
		if errors.As(err, &vErr) {
			problems = append(problems, vErr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	if _, err := fieldspec.MaterializeAll(body.IssueFields); err != nil {
		var sErr *fieldspec.SchemaError
		if errors.As(err, &sErr) {
			problems = append(problems, sErr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		resputil.HTTPError(c, http.StatusUnprocessableEntity,
			strings.Join(problems, "; "), resputil.ValidationFailed)
		return nil, nil, false
	}
	return statuses, milestones, true
}

// CreateProjectType godoc
// @Summary Create a project type
// @Description Choice lists are submitted as "key, Display Name" lines and
// @Description validated together with the dynamic issue field schema
// @Tags ProjectType
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ProjectTypeBodyReq true "project type definition"
// @Success 200 {object} resputil.Response[ProjectTypeResp] "created project type"
// @Failure 422 {object} resputil.Response[any] "invalid definition"
// @Router /admin/project-types [post]
func (mgr *ProjectTypeMgr) CreateProjectType(c *gin.Context) {
	var body ProjectTypeBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	statuses, milestones, ok := mgr.parseBody(c, &body)
	if !ok {
		return
	}

	projectType := model.ProjectType{
		Name:              body.Name,
		Slug:              body.Slug,
		Description:       body.Description,
		SupportsStandards: body.SupportsStandards,
		StatusChoices:     datatypes.NewJSONType(statuses),
		MilestoneChoices:  datatypes.NewJSONType(milestones),
		IssueFields:       datatypes.NewJSONType(body.IssueFields),
	}
	if err := query.GetDB().WithContext(c).Create(&projectType).Error; err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict, "Name or slug already in use", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp, err := toProjectTypeResp(&projectType)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, resp)
}

// UpdateProjectType godoc
// @Summary Update a project type
// @Description Existing projects keep their stored keys; removed keys
// @Description render as raw keys from now on
// @Tags ProjectType
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "project type id"
// @Param data body ProjectTypeBodyReq true "project type definition"
// @Success 200 {object} resputil.Response[ProjectTypeResp] "updated project type"
// @Failure 422 {object} resputil.Response[any] "invalid definition"
// @Router /admin/project-types/{id} [put]
func (mgr *ProjectTypeMgr) UpdateProjectType(c *gin.Context) {
	var request ProjectTypeIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ProjectTypeBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	statuses, milestones, ok := mgr.parseBody(c, &body)
	if !ok {
		return
	}

	var projectType model.ProjectType
	found, err := firstOr404(c, &projectType, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Project type not found")
		return
	}

	err = query.GetDB().WithContext(c).Model(&projectType).Updates(map[string]any{
		"name":               body.Name,
		"slug":               body.Slug,
		"description":        body.Description,
		"supports_standards": body.SupportsStandards,
		"status_choices":     datatypes.NewJSONType(statuses),
		"milestone_choices":  datatypes.NewJSONType(milestones),
		"issue_fields":       datatypes.NewJSONType(body.IssueFields),
	}).Error
	if err != nil {
		if query.IsUniqueViolation(err) {
			resputil.HTTPError(c, http.StatusConflict, "Name or slug already in use", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp, err := toProjectTypeResp(&projectType)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, resp)
}

// DeleteProjectType godoc
// @Summary Delete a project type
// @Description Refused while any project references the type
// @Tags ProjectType
// @Produce json
// @Security Bearer
// @Param id path int true "project type id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 409 {object} resputil.Response[any] "type is in use"
// @Router /admin/project-types/{id} [delete]
func (mgr *ProjectTypeMgr) DeleteProjectType(c *gin.Context) {
	var request ProjectTypeIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	db := query.GetDB().WithContext(c)
	var inUse int64
	err := db.Model(&model.Project{}).
		Where("project_type_id = ?", request.ID).Count(&inUse).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if inUse > 0 {
		resputil.HTTPError(c, http.StatusConflict,
			"Project type is referenced by existing projects", resputil.ResourceInUse)
		return
	}

	if err := db.Delete(&model.ProjectType{}, request.ID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"deleted": request.ID})
}
