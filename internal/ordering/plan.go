// Package ordering keeps the order of issues inside each Kanban column dense.
//
// A column is the set of issues sharing a (project, status) pair. Orders in a
// column run 0..N-1. Moving an issue shifts the siblings between its old and
// new slot by one so the sequence stays contiguous. Deletes are the only
// operation allowed to leave a gap.
package ordering

import (
	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

// Position is a slot on the board.
type Position struct {
	Status model.IssueStatus
	Order  int
}

// Plan returns the sibling shifts that move an issue of projectID from one
// slot to another. The moving issue is never inside a returned range, so the
// shifts can run before its own row is rewritten.
func Plan(projectID uuid.UUID, from, to Position) []repository.OrderShift {
	if from == to {
		return nil
	}

	if from.Status == to.Status {
		if to.Order > from.Order {
			return []repository.OrderShift{{
				ProjectID: projectID,
				Status:    from.Status,
				From:      from.Order + 1,
				To:        to.Order,
				Delta:     -1,
			}}
		}
		return []repository.OrderShift{{
			ProjectID: projectID,
			Status:    from.Status,
			From:      to.Order,
			To:        from.Order - 1,
			Delta:     1,
		}}
	}

	return []repository.OrderShift{
		{ProjectID: projectID, Status: from.Status, From: from.Order + 1, To: -1, Delta: -1},
		{ProjectID: projectID, Status: to.Status, From: to.Order, To: -1, Delta: 1},
	}
}

// clamp resolves a requested order against the highest slot available.
// A nil request means the last slot.
func clamp(requested *int, last int) int {
	if requested == nil || *requested > last {
		return last
	}
	if *requested < 0 {
		return 0
	}
	return *requested
}
