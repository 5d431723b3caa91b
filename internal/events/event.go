// Package events carries domain events from the services to whatever reacts
// to them: the notification handler in-process, or a RabbitMQ queue drained
// by a consumer.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	IssueCreated               Type = "issue.created"
	IssueUpdated               Type = "issue.updated"
	IssueMoved                 Type = "issue.moved"
	IssueAssigned              Type = "issue.assigned"
	IssueDeleted               Type = "issue.deleted"
	CommentCreated             Type = "comment.created"
	CommentDeleted             Type = "comment.deleted"
	ProjectCreated             Type = "project.created"
	ProjectDeleted             Type = "project.deleted"
	ProjectMemberAdded         Type = "project.member_added"
	UserRegistered             Type = "user.registered"
	UserPasswordResetRequested Type = "user.password_reset_requested"
	UserPasswordChanged        Type = "user.password_changed"
)

type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    uuid.UUID         `json:"actor_id"`
	ProjectID  *uuid.UUID        `json:"project_id,omitempty"`
	IssueID    *uuid.UUID        `json:"issue_id,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}

func New(t Type, actorID uuid.UUID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
	}
}

func (e Event) WithProject(id uuid.UUID) Event {
	e.ProjectID = &id
	return e
}

func (e Event) WithIssue(id uuid.UUID) Event {
	e.IssueID = &id
	return e
}

// With returns a copy of e with key set in the payload.
func (e Event) With(key, value string) Event {
	payload := make(map[string]string, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value
	e.Payload = payload
	return e
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
