package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"issuetracker/internal/model"
)

type IssueRepository struct {
	db *gorm.DB
}

var _ IssueStore = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// WithTx runs fn against a repository bound to a single database transaction
func (r *IssueRepository) WithTx(ctx context.Context, fn func(tx IssueStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&IssueRepository{db: tx})
	})
}

// Create adds a new issue to the database
func (r *IssueRepository) Create(ctx context.Context, issue *model.Issue) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(issue).Error
}

// GetByID retrieves an issue with its creator, assignee and project
func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error) {
	var issue model.Issue
	result := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Assignee").
		Preload("Project").
		First(&issue, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, result.Error
	}
	return &issue, nil
}

func (r *IssueRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Issue, error) {
	var issue model.Issue
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&issue, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, result.Error
	}
	return &issue, nil
}

// Update writes everything except project, creator, status and order
func (r *IssueRepository) Update(ctx context.Context, issue *model.Issue) error {
	result := r.db.WithContext(ctx).Model(issue).
		Select("title", "description", "type", "priority", "assignee_id", "due_date").
		Updates(issue)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIssueNotFound
	}
	return nil
}

// Delete removes an issue and its comments. The column keeps the gap.
func (r *IssueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Issue{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrIssueNotFound
		}
		return nil
	})
}

func (r *IssueRepository) List(ctx context.Context, filter IssueFilter) ([]model.Issue, error) {
	var issues []model.Issue
	q := r.filtered(ctx, filter).
		Preload("Creator").
		Preload("Assignee").
		Preload("Project")
	for _, s := range filter.Sort {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *IssueRepository) Count(ctx context.Context, filter IssueFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *IssueRepository) MaxOrder(ctx context.Context, projectID uuid.UUID, status model.IssueStatus) (int, error) {
	var result struct {
		Max int
	}
	err := r.db.WithContext(ctx).Model(&model.Issue{}).
		Select("COALESCE(MAX(order_index), -1) AS max").
		Where("project_id = ? AND status = ?", projectID, status).
		Scan(&result).Error
	return result.Max, err
}

// ShiftOrders increments order_index of a column range by shift.Delta
func (r *IssueRepository) ShiftOrders(ctx context.Context, shift OrderShift) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Issue{}).
		Where("project_id = ? AND status = ? AND order_index >= ?", shift.ProjectID, shift.Status, shift.From)
	if shift.To >= 0 {
		q = q.Where("order_index <= ?", shift.To)
	}
	result := q.UpdateColumn("order_index", gorm.Expr("order_index + ?", shift.Delta))
	return result.RowsAffected, result.Error
}

func (r *IssueRepository) SetPosition(ctx context.Context, id uuid.UUID, status model.IssueStatus, order int) error {
	result := r.db.WithContext(ctx).Model(&model.Issue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"order_index": order,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (r *IssueRepository) filtered(ctx context.Context, f IssueFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Issue{})
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.ProjectIDs != nil {
		q = q.Where("project_id IN ?", f.ProjectIDs)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Unassigned {
		q = q.Where("assignee_id IS NULL")
	} else if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	return q
}
