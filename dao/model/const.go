// Shared enum vocabularies. Statuses are stored as strings because project
// status and milestone type keys are free text validated against the owning
// ProjectType's choice lists, and the fixed lifecycles read better in the
// database as words than as integers.
package model

// RoleName is the platform-wide permission tier. The four roles are seeded
// at migration time and never change.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleStaff  RoleName = "staff"
	RoleClient RoleName = "client"
	RoleUser   RoleName = "user"
)

// CoworkerRole is the client-scoped role of a coworker. It is a separate
// namespace from RoleName: a client-side admin has no platform rights.
type CoworkerRole string

const (
	CoworkerRoleAdmin  CoworkerRole = "admin"
	CoworkerRoleEditor CoworkerRole = "editor"
	CoworkerRoleViewer CoworkerRole = "viewer"
)

// CoworkerStatus is the invitation lifecycle of a ClientCoworker.
type CoworkerStatus string

const (
	CoworkerPending  CoworkerStatus = "pending"
	CoworkerActive   CoworkerStatus = "active"
	CoworkerDeclined CoworkerStatus = "declined"
	// Used only by the email-keyed shadow Coworker record.
	CoworkerInactive CoworkerStatus = "inactive"
)

// MilestoneStatus lifecycle. Published is the terminal gate that makes the
// milestone's issues visible to client-role users.
type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestonePublished  MilestoneStatus = "published"
)

// IssueStatus lifecycle.
type IssueStatus string

const (
	IssuePass            IssueStatus = "pass"
	IssueFail            IssueStatus = "fail"
	IssueQA              IssueStatus = "qa"
	IssueInRemediation   IssueStatus = "in_remediation"
	IssueReadyForTesting IssueStatus = "ready_for_testing"
)

// ViolationStatus is the lifecycle of a violation occurrence in a project.
type ViolationStatus string

const (
	ViolationOpen          ViolationStatus = "open"
	ViolationInProgress    ViolationStatus = "in_progress"
	ViolationFixed         ViolationStatus = "fixed"
	ViolationWontFix       ViolationStatus = "wont_fix"
	ViolationNotApplicable ViolationStatus = "not_applicable"
)

// CommentType controls comment visibility: internal comments are shown to
// admin/staff only, external to everyone with issue access.
type CommentType string

const (
	CommentInternal CommentType = "internal"
	CommentExternal CommentType = "external"
)

// PageType of a project page.
type PageType string

const (
	PageWeb    PageType = "web"
	PageMobile PageType = "mobile"
	PageOther  PageType = "other"
)

// ModificationKind of an audit trail entry.
type ModificationKind string

const (
	ModificationCreation     ModificationKind = "creation"
	ModificationStatusChange ModificationKind = "status_change"
	ModificationComment      ModificationKind = "comment"
)
