package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/techopolis/tracker/dao/model"
	"github.com/techopolis/tracker/dao/query"
	"github.com/techopolis/tracker/pkg/config"
	"github.com/techopolis/tracker/pkg/logutils"
)

type notifyMgr struct {
	handler handlerInterface
}

var (
	once     sync.Once
	notifier *notifyMgr
)

func GetNotifier() Notifier {
	once.Do(func() {
		notifier = &notifyMgr{handler: initHandler()}
	})
	return notifier
}

func initHandler() handlerInterface {
	// SMTP when configured, otherwise log-only so development setups work
	// without a mail server.
	if config.GetConfig().SMTP.Host != "" {
		return newSMTPHandler()
	}
	logutils.Log.Info("SMTP not configured, notifications will only be logged")
	return &logHandler{}
}

// send delivers best-effort. Delivery errors are logged and dropped so the
// triggering request never fails because of the mail server.
func (n *notifyMgr) send(ctx context.Context, recipients []string, subject, body string) {
	recipients = lo.Uniq(lo.Filter(recipients, func(r string, _ int) bool { return r != "" }))
	if len(recipients) == 0 {
		return
	}
	if err := n.handler.SendMessageTo(ctx, recipients, subject, body); err != nil {
		logutils.Log.Errorf("failed to send %q to %v: %v", subject, recipients, err)
	}
}

// projectRecipients is the staff-facing audience of a project: its
// assignees plus the client's point of contact.
func (n *notifyMgr) projectRecipients(ctx context.Context, projectID uint) []string {
	db := query.GetDB()
	var project model.Project
	if err := db.WithContext(ctx).
		Preload("AssignedTo").
		Preload("Client.PointOfContact").
		First(&project, projectID).Error; err != nil {
		logutils.Log.Errorf("load project %d for notification: %v", projectID, err)
		return nil
	}
	recipients := lo.Map(project.AssignedTo, func(u model.User, _ int) string { return u.Email })
	if project.Client != nil && project.Client.PointOfContact != nil {
		recipients = append(recipients, project.Client.PointOfContact.Email)
	}
	return recipients
}

// clientRecipients is the client-facing audience: active coworkers of the
// project's client.
func (n *notifyMgr) clientRecipients(ctx context.Context, clientID uint) []string {
	db := query.GetDB()
	var coworkers []model.ClientCoworker
	if err := db.WithContext(ctx).
		Preload("User").
		Where("client_id = ? AND status = ?", clientID, model.CoworkerActive).
		Find(&coworkers).Error; err != nil {
		logutils.Log.Errorf("load coworkers of client %d for notification: %v", clientID, err)
		return nil
	}
	return lo.FilterMap(coworkers, func(c model.ClientCoworker, _ int) (string, bool) {
		if c.User == nil {
			return "", false
		}
		return c.User.Email, true
	})
}

func (n *notifyMgr) IssueCreated(ctx context.Context, issue *model.Issue, actor *model.User) {
	subject := fmt.Sprintf("New issue: %s", issue.Title)
	body := fmt.Sprintf("%s reported a new issue %q (status: %s).", actorName(actor), issue.Title, issue.Status)
	n.send(ctx, n.projectRecipients(ctx, issue.ProjectID), subject, body)
}

func (n *notifyMgr) IssueUpdated(ctx context.Context, issue *model.Issue, actor *model.User) {
	subject := fmt.Sprintf("Issue updated: %s", issue.Title)
	body := fmt.Sprintf("%s updated issue %q.", actorName(actor), issue.Title)
	n.send(ctx, n.projectRecipients(ctx, issue.ProjectID), subject, body)
}

func (n *notifyMgr) IssueStatusChanged(ctx context.Context, issue *model.Issue, actor *model.User, from, to model.IssueStatus) {
	subject := fmt.Sprintf("Issue status changed: %s", issue.Title)
	body := fmt.Sprintf("%s moved issue %q from %s to %s.", actorName(actor), issue.Title, from, to)
	n.send(ctx, n.projectRecipients(ctx, issue.ProjectID), subject, body)
}

func (n *notifyMgr) CommentAdded(ctx context.Context, issue *model.Issue, comment *model.Comment, actor *model.User) {
	subject := fmt.Sprintf("New comment on issue: %s", issue.Title)
	body := fmt.Sprintf("%s commented on %q:\n\n%s", actorName(actor), issue.Title, comment.Content)
	recipients := n.projectRecipients(ctx, issue.ProjectID)
	// Internal comments stay on the staff side.
	if comment.CommentType == model.CommentExternal && issue.Milestone != nil &&
		issue.Milestone.IsPublished() && issue.Project != nil {
		recipients = append(recipients, n.clientRecipients(ctx, issue.Project.ClientID)...)
	}
	n.send(ctx, recipients, subject, body)
}

func (n *notifyMgr) MilestoneCreated(ctx context.Context, milestone *model.Milestone, actor *model.User) {
	subject := fmt.Sprintf("New milestone: %s", milestone.Name)
	body := fmt.Sprintf("%s created milestone %q.", actorName(actor), milestone.Name)
	n.send(ctx, n.projectRecipients(ctx, milestone.ProjectID), subject, body)
}

func (n *notifyMgr) MilestoneUpdated(ctx context.Context, milestone *model.Milestone, actor *model.User) {
	subject := fmt.Sprintf("Milestone updated: %s", milestone.Name)
	body := fmt.Sprintf("%s updated milestone %q.", actorName(actor), milestone.Name)
	n.send(ctx, n.projectRecipients(ctx, milestone.ProjectID), subject, body)
}

func (n *notifyMgr) MilestoneCompleted(ctx context.Context, milestone *model.Milestone, actor *model.User, published bool) {
	verb := "completed"
	if published {
		verb = "published"
	}
	subject := fmt.Sprintf("Milestone %s: %s", verb, milestone.Name)
	body := fmt.Sprintf("%s marked milestone %q as %s.\n\n%s",
		actorName(actor), milestone.Name, verb, n.milestoneStats(ctx, milestone.ID))

	recipients := n.projectRecipients(ctx, milestone.ProjectID)
	if published {
		db := query.GetDB()
		var project model.Project
		if err := db.WithContext(ctx).First(&project, milestone.ProjectID).Error; err == nil {
			recipients = append(recipients, n.clientRecipients(ctx, project.ClientID)...)
		}
	}
	n.send(ctx, recipients, subject, body)
}

func (n *notifyMgr) MilestoneOverdue(ctx context.Context, milestone *model.Milestone) {
	subject := fmt.Sprintf("Milestone overdue: %s", milestone.Name)
	due := ""
	if milestone.DueDate != nil {
		due = milestone.DueDate.Format("2006-01-02")
	}
	body := fmt.Sprintf("Milestone %q was due on %s and is still %s.", milestone.Name, due, milestone.Status)
	n.send(ctx, n.projectRecipients(ctx, milestone.ProjectID), subject, body)
}

// milestoneStats summarizes the milestone's issues by status for completion
// mails.
func (n *notifyMgr) milestoneStats(ctx context.Context, milestoneID uint) string {
	db := query.GetDB()
	var rows []struct {
		Status model.IssueStatus
		Count  int64
	}
	err := db.WithContext(ctx).Model(&model.Issue{}).
		Select("status, count(*) as count").
		Where("milestone_id = ?", milestoneID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		logutils.Log.Errorf("milestone %d issue stats: %v", milestoneID, err)
		return ""
	}
	var total int64
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		total += row.Count
		parts = append(parts, fmt.Sprintf("%s: %d", row.Status, row.Count))
	}
	return fmt.Sprintf("Issues: %d (%s)", total, strings.Join(parts, ", "))
}

func (n *notifyMgr) CoworkerInvited(ctx context.Context, client *model.Client, email, token string, inviter *model.User) {
	subject := fmt.Sprintf("You have been invited to %s", client.CompanyName)
	link := fmt.Sprintf("%s/invitations/%s", config.GetConfig().FrontendOrigin, token)
	body := fmt.Sprintf("%s invited you to join %s on Perspective Tracker.\n\nAccept the invitation: %s",
		actorName(inviter), client.CompanyName, link)
	n.send(ctx, []string{email}, subject, body)
}

func (n *notifyMgr) CoworkerAccepted(ctx context.Context, client *model.Client, member *model.User) {
	subject := fmt.Sprintf("%s joined %s", member.FullName(), client.CompanyName)
	body := fmt.Sprintf("%s (%s) accepted their invitation to %s.", member.FullName(), member.Email, client.CompanyName)
	var recipients []string
	if client.PointOfContact != nil {
		recipients = append(recipients, client.PointOfContact.Email)
	}
	n.send(ctx, recipients, subject, body)
}

func (n *notifyMgr) ProjectCreated(ctx context.Context, project *model.Project, actor *model.User) {
	subject := fmt.Sprintf("New project: %s", project.Name)
	body := fmt.Sprintf("%s created project %q.", actorName(actor), project.Name)
	n.send(ctx, n.projectRecipients(ctx, project.ID), subject, body)
}

func (n *notifyMgr) ProjectUpdated(ctx context.Context, project *model.Project, actor *model.User) {
	subject := fmt.Sprintf("Project updated: %s", project.Name)
	body := fmt.Sprintf("%s updated project %q (status: %s).", actorName(actor), project.Name, project.Status)
	n.send(ctx, n.projectRecipients(ctx, project.ID), subject, body)
}

func (n *notifyMgr) ProjectAssigned(ctx context.Context, project *model.Project, assignee *model.User, actor *model.User) {
	subject := fmt.Sprintf("You have been assigned to %s", project.Name)
	body := fmt.Sprintf("%s assigned you to project %q.", actorName(actor), project.Name)
	n.send(ctx, []string{assignee.Email}, subject, body)
}

func (n *notifyMgr) RoleChanged(ctx context.Context, user *model.User, role model.RoleName, actor *model.User) {
	subject := "Your role has changed"
	body := fmt.Sprintf("%s changed your platform role to %s.", actorName(actor), role)
	n.send(ctx, []string{user.Email}, subject, body)
}

// ManagerChanged mails the affected user and, when one is set, the new
// manager. A nil manager means the user no longer reports to anyone.
func (n *notifyMgr) ManagerChanged(ctx context.Context, user *model.User, manager *model.User, actor *model.User) {
	subject := "Your manager has changed"
	body := fmt.Sprintf("%s removed your manager assignment.", actorName(actor))
	recipients := []string{user.Email}
	if manager != nil {
		body = fmt.Sprintf("%s set %s as your manager.", actorName(actor), manager.FullName())
		recipients = append(recipients, manager.Email)
	}
	n.send(ctx, recipients, subject, body)
}

func (n *notifyMgr) PointOfContactChanged(ctx context.Context, client *model.Client, poc *model.User) {
	subject := fmt.Sprintf("You are now the point of contact for %s", client.CompanyName)
	body := fmt.Sprintf("You have been set as the point of contact for %s.", client.CompanyName)
	n.send(ctx, []string{poc.Email}, subject, body)
}

func (n *notifyMgr) Welcome(ctx context.Context, user *model.User) {
	subject := "Welcome to Perspective Tracker"
	body := fmt.Sprintf("Hello %s, your account has been created.", user.FullName())
	n.send(ctx, []string{user.Email}, subject, body)
}

func actorName(u *model.User) string {
	if u == nil {
		return "Someone"
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}
