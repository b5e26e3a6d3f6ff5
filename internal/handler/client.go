package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/internal/resputil"
	"github.com/techopolis/tracker/internal/service"
	"github.com/techopolis/tracker/internal/util"
	"github.com/techopolis/tracker/pkg/accesscontrol"
	"github.com/techopolis/tracker/pkg/alert"
	"github.com/techopolis/tracker/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewClientMgr)
}

type ClientMgr struct {
	name        string
	invitations *service.InvitationService
}

func NewClientMgr(_ *RegisterConfig) Manager {
	return &ClientMgr{
		name:        "clients",
		invitations: service.NewInvitationService(),
	}
}

func (mgr *ClientMgr) GetName() string { return mgr.name }

func (mgr *ClientMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ClientMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListClients)
	g.POST("", mgr.CreateClient)
	g.GET("/:id", mgr.GetClient)
	g.PUT("/:id", mgr.UpdateClient)
	g.DELETE("/:id", mgr.DeleteClient)

	g.GET("/:id/notes", mgr.ListNotes)
	g.POST("/:id/notes", mgr.CreateNote)
	g.PUT("/:id/notes/:noteId", mgr.UpdateNote)
	g.DELETE("/:id/notes/:noteId", mgr.DeleteNote)

	g.GET("/:id/coworkers", mgr.ListCoworkers)
	g.POST("/:id/coworkers", mgr.InviteCoworker)
	g.POST("/:id/coworkers/:coworkerId/resend", mgr.ResendInvitation)
	g.PUT("/:id/coworkers/:coworkerId", mgr.UpdateCoworker)
	g.DELETE("/:id/coworkers/:coworkerId", mgr.RemoveCoworker)
}

func (mgr *ClientMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type ClientIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

// authorize runs the relation load and the evaluation in one step. A nil
// return means the reply was already written.
func authorize(c *gin.Context, scope service.Scope, kind accesscontrol.Kind, op accesscontrol.Operation) *accesscontrol.Actor {
	actor := currentActor(c)
	rel, err := service.BuildRelation(c.Request.Context(), query.GetDB(), actor, scope)
	if errors.Is(err, service.ErrNotFound) {
		resputil.NotFoundError(c, "Resource not found")
		return nil
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil
	}
	if decision := accesscontrol.Evaluate(actor, rel, kind, op); !decision.Allowed {
		logutils.WithActor(util.GetToken(c).Email).
			Debugf("denied %s on %s: %s", op, kind, decision.Reason)
		resputil.Forbidden(c, decision.Reason)
		return nil
	}
	return &actor
}

type ClientResp struct {
	ID               uint      `json:"id"`
	CompanyName      string    `json:"companyName"`
	ContactName      string    `json:"contactName"`
	Email            string    `json:"email"`
	Website          string    `json:"website"`
	PointOfContactID *uint     `json:"pointOfContactId"`
	PointOfContact   string    `json:"pointOfContact"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toClientResp(client *model.Client) ClientResp {
	resp := ClientResp{
		ID:               client.ID,
		CompanyName:      client.CompanyName,
		ContactName:      client.ContactName,
		Email:            client.Email,
		Website:          client.Website,
		PointOfContactID: client.PointOfContactID,
		CreatedAt:        client.CreatedAt,
	}
	if client.PointOfContact != nil {
		resp.PointOfContact = client.PointOfContact.FullName()
	}
	return resp
}

// ListClients godoc
// @Summary List visible clients
// @Description Staff and admins see every client, everyone else only the
// @Description clients they belong to
// @Tags Client
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ClientResp] "clients"
// @Router /clients [get]
func (mgr *ClientMgr) ListClients(c *gin.Context) {
	actor := currentActor(c)
	db := query.GetDB().WithContext(c)

	tx := db.Preload("PointOfContact").Order("company_name")
	if decision := accesscontrol.Evaluate(actor, accesscontrol.Relation{},
		accesscontrol.KindClient, accesscontrol.OpList); !decision.Allowed {
		// Scope the listing to the actor's own memberships instead of
		// denying outright.
		tx = tx.Where(
			"point_of_contact_id = ? OR id IN (?)",
			actor.UserID,
			db.Model(&model.ClientCoworker{}).Select("client_id").
				Where("user_id = ? AND status = ?", actor.UserID, model.CoworkerActive),
		)
	}

	var clients []model.Client
	if err := tx.Find(&clients).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(clients, func(cl model.Client, _ int) ClientResp {
		return toClientResp(&cl)
	}))
}

type ClientBodyReq struct {
	CompanyName      string `json:"companyName" binding:"required"`
	ContactName      string `json:"contactName"`
	Email            string `json:"email"`
	Website          string `json:"website"`
	PointOfContactID *uint  `json:"pointOfContactId"`
}

// CreateClient godoc
// @Summary Create a client
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ClientBodyReq true "client fields"
// @Success 200 {object} resputil.Response[ClientResp] "created client"
// @Failure 403 {object} resputil.Response[any] "permission denied"
// @Router /clients [post]
func (mgr *ClientMgr) CreateClient(c *gin.Context) {
	var request ClientBodyReq
	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := currentActor(c)
	if decision := accesscontrol.Evaluate(actor, accesscontrol.Relation{},
		accesscontrol.KindClient, accesscontrol.OpCreate); !decision.Allowed {
		resputil.Forbidden(c, decision.Reason)
		return
	}

	client := model.Client{
		CompanyName: request.CompanyName,
		ContactName: request.ContactName,
		Email:       request.Email,
		Website:     request.Website,
	}
	if request.PointOfContactID != nil {
		if !mgr.setPointOfContact(c, &client, *request.PointOfContactID) {
			return
		}
	}

	if err := query.GetDB().WithContext(c).Create(&client).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if client.PointOfContact != nil {
		alert.GetNotifier().PointOfContactChanged(c.Request.Context(), &client, client.PointOfContact)
	}
	resputil.Success(c, toClientResp(&client))
}

// setPointOfContact validates that the nominated user is on the platform
// side. Writes the error reply itself on failure.
func (mgr *ClientMgr) setPointOfContact(c *gin.Context, client *model.Client, userID uint) bool {
	var poc model.User
	found, err := firstOr404(c, &poc, userID, "Role")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return false
	}
	if !found {
		resputil.NotFoundError(c, "Point of contact user not found")
		return false
	}
	if !poc.IsPlatformStaff() {
		resputil.BadRequestError(c, "Point of contact must be a staff or admin user")
		return false
	}
	client.PointOfContactID = &poc.ID
	client.PointOfContact = &poc
	return true
}

// GetClient godoc
// @Summary Get one client
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Success 200 {object} resputil.Response[ClientResp] "client detail"
// @Failure 404 {object} resputil.Response[any] "client not found"
// @Router /clients/{id} [get]
func (mgr *ClientMgr) GetClient(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClient, accesscontrol.OpView) == nil {
		return
	}

	var client model.Client
	found, err := firstOr404(c, &client, request.ID, "PointOfContact")
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Client not found")
		return
	}
	resputil.Success(c, toClientResp(&client))
}

// UpdateClient godoc
// @Summary Update a client
// @Description Changing the point of contact notifies the new contact
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param data body ClientBodyReq true "client fields"
// @Success 200 {object} resputil.Response[ClientResp] "updated client"
// @Failure 404 {object} resputil.Response[any] "client not found"
// @Router /clients/{id} [put]
func (mgr *ClientMgr) UpdateClient(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body ClientBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClient, accesscontrol.OpUpdate) == nil {
		return
	}

	var client model.Client
	found, err := firstOr404(c, &client, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Client not found")
		return
	}

	pocChanged := body.PointOfContactID != nil &&
		(client.PointOfContactID == nil || *client.PointOfContactID != *body.PointOfContactID)
	if pocChanged {
		if !mgr.setPointOfContact(c, &client, *body.PointOfContactID) {
			return
		}
	}

	err = query.GetDB().WithContext(c).Model(&client).Updates(map[string]any{
		"company_name":        body.CompanyName,
		"contact_name":        body.ContactName,
		"email":               body.Email,
		"website":             body.Website,
		"point_of_contact_id": client.PointOfContactID,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if pocChanged && client.PointOfContact != nil {
		alert.GetNotifier().PointOfContactChanged(c.Request.Context(), &client, client.PointOfContact)
	}
	resputil.Success(c, toClientResp(&client))
}

// DeleteClient godoc
// @Summary Delete a client and everything under it
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 403 {object} resputil.Response[any] "permission denied"
// @Router /clients/{id} [delete]
func (mgr *ClientMgr) DeleteClient(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClient, accesscontrol.OpDelete) == nil {
		return
	}

	err := query.GetDB().WithContext(c).Delete(&model.Client{}, request.ID).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"deleted": request.ID})
}

type NoteResp struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toNoteResp(note *model.ClientNote) NoteResp {
	resp := NoteResp{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
	if note.Author != nil {
		resp.Author = note.Author.FullName()
	}
	return resp
}

// ListNotes godoc
// @Summary List a client's notes
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Success 200 {object} resputil.Response[[]NoteResp] "notes"
// @Router /clients/{id}/notes [get]
func (mgr *ClientMgr) ListNotes(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClientNote, accesscontrol.OpList) == nil {
		return
	}

	var notes []model.ClientNote
	err := query.GetDB().WithContext(c).Preload("Author").
		Where("client_id = ?", request.ID).Order("created_at desc").Find(&notes).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(notes, func(n model.ClientNote, _ int) NoteResp {
		return toNoteResp(&n)
	}))
}

type NoteBodyReq struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

// CreateNote godoc
// @Summary Add a note to a client
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param data body NoteBodyReq true "note fields"
// @Success 200 {object} resputil.Response[NoteResp] "created note"
// @Router /clients/{id}/notes [post]
func (mgr *ClientMgr) CreateNote(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body NoteBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClientNote, accesscontrol.OpCreate)
	if actor == nil {
		return
	}

	note := model.ClientNote{
		ClientID: request.ID,
		AuthorID: &actor.UserID,
		Title:    body.Title,
		Content:  body.Content,
	}
	if err := query.GetDB().WithContext(c).Create(&note).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toNoteResp(&note))
}

type NoteIDReq struct {
	ID     uint `uri:"id" binding:"required"`
	NoteID uint `uri:"noteId" binding:"required"`
}

// UpdateNote godoc
// @Summary Update a client note
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param noteId path int true "note id"
// @Param data body NoteBodyReq true "note fields"
// @Success 200 {object} resputil.Response[NoteResp] "updated note"
// @Failure 404 {object} resputil.Response[any] "note not found"
// @Router /clients/{id}/notes/{noteId} [put]
func (mgr *ClientMgr) UpdateNote(c *gin.Context) {
	var request NoteIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body NoteBodyReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClientNote, accesscontrol.OpUpdate) == nil {
		return
	}

	note, ok := mgr.loadNote(c, request)
	if !ok {
		return
	}
	err := query.GetDB().WithContext(c).Model(note).Updates(map[string]any{
		"title":   body.Title,
		"content": body.Content,
	}).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toNoteResp(note))
}

// DeleteNote godoc
// @Summary Delete a client note
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param noteId path int true "note id"
// @Success 200 {object} resputil.Response[any] "deleted"
// @Failure 404 {object} resputil.Response[any] "note not found"
// @Router /clients/{id}/notes/{noteId} [delete]
func (mgr *ClientMgr) DeleteNote(c *gin.Context) {
	var request NoteIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClientNote, accesscontrol.OpDelete) == nil {
		return
	}

	note, ok := mgr.loadNote(c, request)
	if !ok {
		return
	}
	if err := query.GetDB().WithContext(c).Delete(note).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"deleted": note.ID})
}

func (mgr *ClientMgr) loadNote(c *gin.Context, request NoteIDReq) (*model.ClientNote, bool) {
	var note model.ClientNote
	err := query.GetDB().WithContext(c).Preload("Author").
		Where("client_id = ?", request.ID).First(&note, request.NoteID).Error
	if err != nil {
		resputil.NotFoundError(c, "Note not found")
		return nil, false
	}
	return &note, true
}

type CoworkerResp struct {
	ID             uint                 `json:"id"`
	UserID         uint                 `json:"userId"`
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	Role           model.CoworkerRole   `json:"role"`
	Status         model.CoworkerStatus `json:"status"`
	InvitationSent *time.Time           `json:"invitationSent"`
}

// ListCoworkers godoc
// @Summary List a client's coworkers
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Success 200 {object} resputil.Response[[]CoworkerResp] "memberships"
// @Router /clients/{id}/coworkers [get]
func (mgr *ClientMgr) ListCoworkers(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindClient, accesscontrol.OpView) == nil {
		return
	}

	var coworkers []model.ClientCoworker
	err := query.GetDB().WithContext(c).Preload("User").
		Where("client_id = ?", request.ID).Find(&coworkers).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(coworkers, func(cw model.ClientCoworker, _ int) CoworkerResp {
		resp := CoworkerResp{
			ID:             cw.ID,
			UserID:         cw.UserID,
			Role:           cw.Role,
			Status:         cw.Status,
			InvitationSent: cw.InvitationSent,
		}
		if cw.User != nil {
			resp.Email = cw.User.Email
			resp.Name = cw.User.FullName()
		}
		return resp
	}))
}

type InviteCoworkerReq struct {
	Email string             `json:"email" binding:"required,email"`
	Role  model.CoworkerRole `json:"role" binding:"required,oneof=admin editor viewer"`
}

// InviteCoworker godoc
// @Summary Invite a coworker by email
// @Description Sends a single-use invitation token. Addresses without an
// @Description account are remembered and promoted on signup.
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param data body InviteCoworkerReq true "email and client-scoped role"
// @Success 200 {object} resputil.Response[any] "invitation sent"
// @Failure 409 {object} resputil.Response[any] "already invited or member"
// @Router /clients/{id}/coworkers [post]
func (mgr *ClientMgr) InviteCoworker(c *gin.Context) {
	var request ClientIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body InviteCoworkerReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindCoworker, accesscontrol.OpCreate) == nil {
		return
	}

	var client model.Client
	found, err := firstOr404(c, &client, request.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if !found {
		resputil.NotFoundError(c, "Client not found")
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	err = mgr.invitations.Invite(c.Request.Context(), &client, actor, body.Email, body.Role)
	switch {
	case errors.Is(err, service.ErrConflict):
		resputil.HTTPError(c, http.StatusConflict, "Already invited or a member", resputil.Conflict)
	case err != nil:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	default:
		resputil.Success(c, gin.H{"email": body.Email, "status": model.CoworkerPending})
	}
}

type CoworkerIDReq struct {
	ID         uint `uri:"id" binding:"required"`
	CoworkerID uint `uri:"coworkerId" binding:"required"`
}

func (mgr *ClientMgr) loadCoworker(c *gin.Context, request CoworkerIDReq) (*model.ClientCoworker, bool) {
	var membership model.ClientCoworker
	err := query.GetDB().WithContext(c).Preload("User").
		Where("client_id = ?", request.ID).First(&membership, request.CoworkerID).Error
	if err != nil {
		resputil.NotFoundError(c, "Coworker not found")
		return nil, false
	}
	return &membership, true
}

// ResendInvitation godoc
// @Summary Resend a pending invitation
// @Description Issues a new token; the previous one stops working
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param coworkerId path int true "membership id"
// @Success 200 {object} resputil.Response[any] "invitation resent"
// @Failure 409 {object} resputil.Response[any] "membership is not pending"
// @Router /clients/{id}/coworkers/{coworkerId}/resend [post]
func (mgr *ClientMgr) ResendInvitation(c *gin.Context) {
	var request CoworkerIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindCoworker, accesscontrol.OpUpdate) == nil {
		return
	}

	var client model.Client
	found, err := firstOr404(c, &client, request.ID)
	if err != nil || !found {
		resputil.NotFoundError(c, "Client not found")
		return
	}
	membership, ok := mgr.loadCoworker(c, request)
	if !ok {
		return
	}
	actor, err := currentUser(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	err = mgr.invitations.Resend(c.Request.Context(), &client, membership, actor)
	switch {
	case errors.Is(err, service.ErrConflict):
		resputil.HTTPError(c, http.StatusConflict, "Invitation is not pending", resputil.Conflict)
	case err != nil:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	default:
		resputil.Success(c, gin.H{"status": model.CoworkerPending})
	}
}

type UpdateCoworkerReq struct {
	Role model.CoworkerRole `json:"role" binding:"required,oneof=admin editor viewer"`
}

// UpdateCoworker godoc
// @Summary Change a coworker's client-scoped role
// @Tags Client
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param coworkerId path int true "membership id"
// @Param data body UpdateCoworkerReq true "new role"
// @Success 200 {object} resputil.Response[any] "updated membership"
// @Failure 404 {object} resputil.Response[any] "coworker not found"
// @Router /clients/{id}/coworkers/{coworkerId} [put]
func (mgr *ClientMgr) UpdateCoworker(c *gin.Context) {
	var request CoworkerIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var body UpdateCoworkerReq
	if err := c.ShouldBind(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if authorize(c, service.Scope{ClientID: request.ID},
		accesscontrol.KindCoworker, accesscontrol.OpUpdate) == nil {
		return
	}

	membership, ok := mgr.loadCoworker(c, request)
	if !ok {
		return
	}
	err := query.GetDB().WithContext(c).Model(membership).
		Update("role", body.Role).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"id": membership.ID, "role": body.Role})
}

// RemoveCoworker godoc
// @Summary Remove a coworker
// @Description Client-side admins remove anyone; every user may remove
// @Description their own membership
// @Tags Client
// @Produce json
// @Security Bearer
// @Param id path int true "client id"
// @Param coworkerId path int true "membership id"
// @Success 200 {object} resputil.Response[any] "removed"
// @Failure 404 {object} resputil.Response[any] "coworker not found"
// @Router /clients/{id}/coworkers/{coworkerId} [delete]
func (mgr *ClientMgr) RemoveCoworker(c *gin.Context) {
	var request CoworkerIDReq
	if err := c.ShouldBindUri(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	actor := currentActor(c)
	rel, err := service.BuildRelation(c.Request.Context(), query.GetDB(), actor,
		service.Scope{ClientID: request.ID})
	if errors.Is(err, service.ErrNotFound) {
		resputil.NotFoundError(c, "Resource not found")
		return
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	var membership *model.ClientCoworker
	decision := accesscontrol.Evaluate(actor, rel, accesscontrol.KindCoworker, accesscontrol.OpDelete)
	if decision.Allowed {
		m, ok := mgr.loadCoworker(c, request)
		if !ok {
			return
		}
		membership = m
	} else {
		// Self-leave. The lookup is scoped to the caller's own membership,
		// so a denied caller cannot learn whether other memberships exist.
		m, err := mgr.ownMembership(c, request, actor.UserID)
		if err != nil {
			resputil.Forbidden(c, decision.Reason)
			return
		}
		membership = m
	}

	if err := mgr.invitations.Leave(c.Request.Context(), membership); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, gin.H{"deleted": membership.ID})
}

func (mgr *ClientMgr) ownMembership(c *gin.Context, request CoworkerIDReq, userID uint) (*model.ClientCoworker, error) {
	var membership model.ClientCoworker
	err := query.GetDB().WithContext(c).Preload("User").
		Where("client_id = ? AND user_id = ?", request.ID, userID).
		First(&membership, request.CoworkerID).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}
