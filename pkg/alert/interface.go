package alert

import (
	"context"

	"github.com/techopolis/tracker/dao/model"
)

// Notifier is the outbound notification component. Every method is
// best-effort: failures are logged and swallowed so a broken mail server
// never fails the request that triggered the notification.
//
// Covered scenarios:
//  1. issue created / updated / status changed / commented
//  2. milestone created, updated and completed (with issue stats)
//  3. milestone published, fanned out to the client's active coworkers
//  4. coworker invitation and acceptance
//  5. project created, updated and assigned
//  6. role change, manager change, point of contact change
//  7. welcome mail on signup
type Notifier interface {
	IssueCreated(ctx context.Context, issue *model.Issue, actor *model.User)
	IssueUpdated(ctx context.Context, issue *model.Issue, actor *model.User)
	IssueStatusChanged(ctx context.Context, issue *model.Issue, actor *model.User, from, to model.IssueStatus)
	CommentAdded(ctx context.Context, issue *model.Issue, comment *model.Comment, actor *model.User)

	MilestoneCreated(ctx context.Context, milestone *model.Milestone, actor *model.User)
	MilestoneUpdated(ctx context.Context, milestone *model.Milestone, actor *model.User)
	MilestoneCompleted(ctx context.Context, milestone *model.Milestone, actor *model.User, published bool)
	MilestoneOverdue(ctx context.Context, milestone *model.Milestone)

	CoworkerInvited(ctx context.Context, client *model.Client, email, token string, inviter *model.User)
	CoworkerAccepted(ctx context.Context, client *model.Client, member *model.User)

	ProjectCreated(ctx context.Context, project *model.Project, actor *model.User)
	ProjectUpdated(ctx context.Context, project *model.Project, actor *model.User)
	ProjectAssigned(ctx context.Context, project *model.Project, assignee *model.User, actor *model.User)
	RoleChanged(ctx context.Context, user *model.User, role model.RoleName, actor *model.User)
	ManagerChanged(ctx context.Context, user *model.User, manager *model.User, actor *model.User)
	PointOfContactChanged(ctx context.Context, client *model.Client, poc *model.User)
	Welcome(ctx context.Context, user *model.User)
}

// handlerInterface is what a concrete delivery channel implements. SMTP is
// the production handler; tests plug in a recording fake and deployments
// without mail configuration fall back to a log-only handler.
type handlerInterface interface {
	SendMessageTo(ctx context.Context, recipients []string, subject, body string) error
}
