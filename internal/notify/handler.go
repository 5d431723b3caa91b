// Package notify turns domain events into mail and activity log lines.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"issuetracker/internal/events"
	"issuetracker/internal/mail"
	"issuetracker/internal/repository"
)

type Handler struct {
	users     repository.UserStore
	sender    mail.Sender
	publicURL string
	logger    *slog.Logger
}

var _ events.Handler = (*Handler)(nil)

func NewHandler(users repository.UserStore, sender mail.Sender, publicURL string, logger *slog.Logger) *Handler {
	return &Handler{
		users:     users,
		sender:    sender,
		publicURL: publicURL,
		logger:    logger.With("component", "notify"),
	}
}

func (h *Handler) Handle(ctx context.Context, ev events.Event) error {
	h.logActivity(ev)

	switch ev.Type {
	case events.UserRegistered:
		return h.sender.Send(ctx, mail.Message{
			To:      ev.Payload["email"],
			Subject: "Welcome to Bug Tracker",
			Body: fmt.Sprintf("Hi %s,\n\nYour account is ready. Sign in at %s to create your first project.\n",
				ev.Payload["name"], h.publicURL),
		})

	case events.UserPasswordResetRequested:
		link := fmt.Sprintf("%s/reset-password?token=%s", h.publicURL, url.QueryEscape(ev.Payload["token"]))
		return h.sender.Send(ctx, mail.Message{
			To:      ev.Payload["email"],
			Subject: "Reset your password",
			Body: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\nIf you did not ask for this, ignore this mail.\n",
				ev.Payload["name"], ev.Payload["expires_in"], link),
		})

	case events.IssueAssigned:
		return h.mailUser(ctx, ev, "assignee_id",
			"You were assigned: "+ev.Payload["title"],
			"%s assigned you the issue %q in %s.\n")

	case events.ProjectMemberAdded:
		return h.mailUser(ctx, ev, "member_id",
			"You were added to "+ev.Payload["project_name"],
			"%s added you to the project %[3]s.\n")
	}
	return nil
}

// mailUser mails the user whose id is stored under key, unless that user is
// the actor. format receives the actor name, the issue title and the project
// name.
func (h *Handler) mailUser(ctx context.Context, ev events.Event, key, subject, format string) error {
	id, err := uuid.Parse(ev.Payload[key])
	if err != nil {
		return fmt.Errorf("%s payload %q: %w", ev.Type, key, err)
	}
	if id == ev.ActorID {
		return nil
	}
	recipient, err := h.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}

	actor := "Someone"
	if u, err := h.users.GetByID(ctx, ev.ActorID); err == nil {
		actor = u.Name
	}

	return h.sender.Send(ctx, mail.Message{
		To:      recipient.Email,
		Subject: subject,
		Body:    fmt.Sprintf(format, actor, ev.Payload["title"], ev.Payload["project_name"]),
	})
}

func (h *Handler) logActivity(ev events.Event) {
	attrs := []any{"type", ev.Type, "event_id", ev.ID, "actor_id", ev.ActorID}
	if ev.ProjectID != nil {
		attrs = append(attrs, "project_id", *ev.ProjectID)
	}
	if ev.IssueID != nil {
		attrs = append(attrs, "issue_id", *ev.IssueID)
	}
	h.logger.Info("activity", attrs...)
}
