package repository

import (
	"github.com/google/uuid"

	"issuetracker/internal/model"
)

// Issue sort fields. Values are column names.
const (
	SortByOrder     = "order_index"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByPriority  = "priority"
	SortByStatus    = "status"
	SortByTitle     = "title"
	SortByDueDate   = "due_date"
)

type SortField struct {
	Field string
	Desc  bool
}

// BoardSort is the Kanban ordering used inside one project.
var BoardSort = []SortField{{Field: SortByOrder}, {Field: SortByCreatedAt, Desc: true}}

// RecentSort is used wherever order has no meaning (across projects).
var RecentSort = []SortField{{Field: SortByUpdatedAt, Desc: true}}

// IssueFilter narrows issue queries. Zero values mean "no constraint",
// except ProjectIDs: a non-nil empty slice matches nothing.
type IssueFilter struct {
	ProjectID  *uuid.UUID
	ProjectIDs []uuid.UUID
	Status     *model.IssueStatus
	Priority   *model.Priority
	Type       *model.IssueType
	AssigneeID *uuid.UUID
	Unassigned bool
	CreatedBy  *uuid.UUID
	Search     string

	Sort   []SortField
	Offset int
	Limit  int
}

// OrderShift moves every issue of a column whose order lies in [From, To]
// by Delta. To < 0 means no upper bound.
type OrderShift struct {
	ProjectID uuid.UUID
	Status    model.IssueStatus
	From      int
	To        int
	Delta     int
}
