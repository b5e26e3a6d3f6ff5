// Package accesscontrol centralizes every permission decision of the
// tracker. All entry points call Evaluate once at the boundary with an
// explicit actor instead of re-deriving role checks per view. Denials are
// ordinary results carrying a human-readable reason, never errors.
package accesscontrol

import (
	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
)

// Operation on a target resource or collection.
type Operation string

const (
	OpList   Operation = "list"
	OpView   Operation = "view"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Kind of the target resource.
type Kind string

const (
	KindClient           Kind = "client"
	KindClientNote       Kind = "client_note"
	KindCoworker         Kind = "coworker"
	KindProject          Kind = "project"
	KindPage             Kind = "page"
	KindMilestone        Kind = "milestone"
	KindIssue            Kind = "issue"
	KindComment          Kind = "comment"
	KindProjectViolation Kind = "project_violation"
	KindProjectStandard  Kind = "project_standard"
	KindProjectType      Kind = "project_type"
	KindStandard         Kind = "standard"
	KindViolation        Kind = "violation"
)

// Actor is the authenticated user as seen by the evaluator.
type Actor struct {
	UserID      uint
	IsSuperuser bool
	Role        model.RoleName
}

// Relation is the actor's relationship to the target's client/project
// scope, loaded by the caller before evaluation.
type Relation struct {
	// Actor is the point of contact of the target's client.
	IsPointOfContact bool
	// Actor is listed in the target project's assignments.
	IsAssignee bool
	// Actor's active coworker role on the target's client; empty when the
	// actor has no active membership.
	CoworkerRole model.CoworkerRole
	// The target is the actor's own record (used for coworker self-leave).
	IsSelf bool
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Resources scoped to a project that platform staff manage outright.
var projectScoped = []Kind{
	KindProject, KindMilestone, KindPage, KindIssue, KindComment,
	KindProjectViolation, KindProjectStandard,
}

// Resources a client-side membership can reach at all.
var clientScoped = []Kind{
	KindClient, KindClientNote, KindProject, KindPage, KindMilestone,
	KindIssue, KindComment, KindProjectViolation,
}

// Evaluate decides whether actor may perform op on a target of the given
// kind, using rel as the actor's relationship to the target's scope. Rules
// are checked in precedence order; the first match wins.
func Evaluate(actor Actor, rel Relation, kind Kind, op Operation) Decision {
	// 1. Superusers may do anything.
	if actor.IsSuperuser {
		return Allow()
	}

	// 2. Platform admins may do anything.
	if actor.Role == model.RoleAdmin {
		return Allow()
	}

	// 3. Platform staff manage project-scoped resources, read the
	// standards catalog and project types, and read clients. Managing the
	// catalog and project types stays admin-only.
	if actor.Role == model.RoleStaff {
		switch {
		case lo.Contains(projectScoped, kind) && op != OpDelete:
			return Allow()
		case (kind == KindStandard || kind == KindViolation || kind == KindProjectType) &&
			(op == OpView || op == OpList):
			return Allow()
		case kind == KindClient && (op == OpView || op == OpList):
			return Allow()
		}
	}

	// 4. Client POC and project assignees hold view/update rights on that
	// client/project subtree, but no delete and no catalog or project type
	// management.
	if rel.IsPointOfContact || rel.IsAssignee {
		if lo.Contains(clientScoped, kind) && (op == OpView || op == OpList || op == OpUpdate) {
			return Allow()
		}
	}

	// 5. Active coworker membership, in its own namespace: a client-side
	// admin holds no platform-wide rights.
	switch rel.CoworkerRole {
	case model.CoworkerRoleViewer:
		if lo.Contains(clientScoped, kind) && (op == OpView || op == OpList) {
			return Allow()
		}
	case model.CoworkerRoleEditor:
		if lo.Contains(clientScoped, kind) && (op == OpView || op == OpList) {
			return Allow()
		}
		if (kind == KindClientNote || kind == KindIssue || kind == KindComment) &&
			(op == OpCreate || op == OpUpdate) {
			return Allow()
		}
	case model.CoworkerRoleAdmin:
		if lo.Contains(clientScoped, kind) && (op == OpView || op == OpList) {
			return Allow()
		}
		if (kind == KindClientNote || kind == KindIssue || kind == KindComment) &&
			(op == OpCreate || op == OpUpdate) {
			return Allow()
		}
		// Manage coworkers and delete notes, for this client only.
		if kind == KindCoworker || (kind == KindClientNote && op == OpDelete) {
			return Allow()
		}
	}

	// 6. A user may always leave a client themselves.
	if kind == KindCoworker && op == OpDelete && rel.IsSelf {
		return Allow()
	}

	// 7. Default deny.
	return Deny("you do not have permission to " + string(op) + " this " + string(kind))
}

// CanViewMilestoneIssues layers the publication gate on top of Evaluate:
// client-role actors see a milestone's issues only once it is published,
// while admin, staff and assigned staff bypass the gate unconditionally.
func CanViewMilestoneIssues(actor Actor, rel Relation, status model.MilestoneStatus) Decision {
	if actor.IsSuperuser || actor.Role == model.RoleAdmin || actor.Role == model.RoleStaff {
		return Allow()
	}
	if rel.IsAssignee && actor.Role != model.RoleClient {
		return Allow()
	}
	if actor.Role == model.RoleClient && status != model.MilestonePublished {
		return Deny("this milestone has not been published yet")
	}
	return Evaluate(actor, rel, KindIssue, OpView)
}
