package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/lock"
	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

var (
	// ErrBusy means another reorder held the project for longer than the engine waits.
	ErrBusy = errors.New("another reorder of this project is in progress")

	ErrInvalidOrder = errors.New("order must be a non-negative integer")
)

// MoveRequest leaves Status or Order nil to keep the current column or to
// append to the destination column.
type MoveRequest struct {
	Status *model.IssueStatus
	Order  *int
}

type Move struct {
	IssueID   uuid.UUID
	ProjectID uuid.UUID
	From      Position
	To        Position
}

func (m Move) Changed() bool {
	return m.From != m.To
}

// Engine applies moves one project at a time. Every move runs under the
// project's lock and inside a single store transaction, so readers never
// observe a half-shifted column.
type Engine struct {
	issues  repository.IssueStore
	locker  lock.Locker
	lockTTL time.Duration
	wait    time.Duration
}

func NewEngine(issues repository.IssueStore, locker lock.Locker, lockTTL, wait time.Duration) *Engine {
	return &Engine{
		issues:  issues,
		locker:  locker,
		lockTTL: lockTTL,
		wait:    wait,
	}
}

// Move places the issue at req's target. In its own column the target is
// clamped to the last slot. In another column it may also take the slot
// right after the last one, which is the default.
func (e *Engine) Move(ctx context.Context, issueID uuid.UUID, req MoveRequest) (Move, error) {
	if req.Order != nil && *req.Order < 0 {
		return Move{}, ErrInvalidOrder
	}

	// The project never changes, so it can be read before locking.
	current, err := e.issues.GetByID(ctx, issueID)
	if err != nil {
		return Move{}, err
	}

	move := Move{IssueID: issueID, ProjectID: current.ProjectID}
	err = e.withProjectLock(ctx, current.ProjectID, func() error {
		return e.issues.WithTx(ctx, func(tx repository.IssueStore) error {
			issue, err := tx.LockByID(ctx, issueID)
			if err != nil {
				return err
			}
			move.From = Position{Status: issue.Status, Order: issue.Order}

			target := issue.Status
			if req.Status != nil {
				target = *req.Status
			}
			highest, err := tx.MaxOrder(ctx, issue.ProjectID, target)
			if err != nil {
				return err
			}
			last := highest + 1
			if target == issue.Status {
				last = highest
			}
			move.To = Position{Status: target, Order: clamp(req.Order, last)}

			if !move.Changed() {
				return nil
			}
			for _, shift := range Plan(issue.ProjectID, move.From, move.To) {
				if _, err := tx.ShiftOrders(ctx, shift); err != nil {
					return fmt.Errorf("shift %s orders: %w", shift.Status, err)
				}
			}
			return tx.SetPosition(ctx, issueID, move.To.Status, move.To.Order)
		})
	})
	if err != nil {
		return Move{}, err
	}
	return move, nil
}

// Insert creates issue in its column. With a nil order it is appended,
// otherwise the issues from that slot on move down by one.
func (e *Engine) Insert(ctx context.Context, issue *model.Issue, order *int) error {
	if order != nil && *order < 0 {
		return ErrInvalidOrder
	}
	return e.withProjectLock(ctx, issue.ProjectID, func() error {
		return e.issues.WithTx(ctx, func(tx repository.IssueStore) error {
			highest, err := tx.MaxOrder(ctx, issue.ProjectID, issue.Status)
			if err != nil {
				return err
			}
			issue.Order = clamp(order, highest+1)
			if issue.Order <= highest {
				shift := repository.OrderShift{
					ProjectID: issue.ProjectID,
					Status:    issue.Status,
					From:      issue.Order,
					To:        -1,
					Delta:     1,
				}
				if _, err := tx.ShiftOrders(ctx, shift); err != nil {
					return fmt.Errorf("shift %s orders: %w", shift.Status, err)
				}
			}
			return tx.Create(ctx, issue)
		})
	})
}

func (e *Engine) withProjectLock(ctx context.Context, projectID uuid.UUID, fn func() error) error {
	lease, err := e.locker.Obtain(ctx, "reorder:"+projectID.String(), e.lockTTL, e.wait)
	if errors.Is(err, lock.ErrNotObtained) {
		return ErrBusy
	}
	if err != nil {
		return fmt.Errorf("obtain project lock: %w", err)
	}
	defer lease.Release(context.WithoutCancel(ctx))

	return fn()
}
