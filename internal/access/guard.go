// Package access decides who may touch a project and the issues and comments
// nested under it. Membership is the baseline: the project creator, or any
// user in the member set.
package access

import (
	"github.com/google/uuid"

	"issuetracker/internal/model"
)

// IsOwner reports whether userID created the project. Only the owner manages
// members and deletes the project.
func IsOwner(p *model.Project, userID uuid.UUID) bool {
	return p.CreatedBy == userID
}

// IsMember holds for the owner even when the owner is missing from Members.
func IsMember(p *model.Project, userID uuid.UUID) bool {
	if IsOwner(p, userID) {
		return true
	}
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// IsAssignable reports whether userID may be set as an issue's assignee.
// It is checked at assignment time only.
func IsAssignable(p *model.Project, userID uuid.UUID) bool {
	return IsMember(p, userID)
}

// CanDeleteIssue allows the issue's creator and the project owner.
func CanDeleteIssue(p *model.Project, issue *model.Issue, userID uuid.UUID) bool {
	return issue.CreatedBy == userID || IsOwner(p, userID)
}

func CanDeleteComment(c *model.Comment, userID uuid.UUID) bool {
	return c.AuthorID == userID
}
