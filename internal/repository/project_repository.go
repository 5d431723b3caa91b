package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"issuetracker/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

var _ ProjectStore = (*ProjectRepository)(nil)

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// WithTx runs fn against a repository bound to a single database transaction
func (r *ProjectRepository) WithTx(ctx context.Context, fn func(tx ProjectStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProjectRepository{db: tx})
	})
}

// Create inserts the project and its member rows in one transaction.
// project.Members only needs ids.
func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	memberIDs := project.MemberIDs()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		return insertMembers(tx, project.ID, memberIDs)
	})
}

// GetByID loads the project with creator, lead and members
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Lead").
		Preload("Members").
		First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListForUser returns projects the user created or belongs to, most recently updated first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Members").
		Where("created_by = ? OR id IN (SELECT project_id FROM project_members WHERE user_id = ?)", userID, userID).
		Order("updated_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) IDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("created_by = ? OR id IN (SELECT project_id FROM project_members WHERE user_id = ?)", userID, userID).
		Pluck("id", &ids).Error
	return ids, err
}

// Update writes the scalar fields. Members are managed separately.
func (r *ProjectRepository) Update(ctx context.Context, project *model.Project) error {
	result := r.db.WithContext(ctx).Model(project).
		Select("name", "description", "status", "priority", "start_date", "end_date", "lead_id").
		Updates(project)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) ReplaceMembers(ctx context.Context, projectID uuid.UUID, memberIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := insertMembers(tx, projectID, memberIDs); err != nil {
			return err
		}
		return touchProject(tx, projectID)
	})
}

// AddMember returns ErrAlreadyMember when the user is already listed.
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMember
		}
		if err := tx.Create(&model.ProjectMember{ProjectID: projectID, UserID: userID}).Error; err != nil {
			return err
		}
		return touchProject(tx, projectID)
	})
}

// Delete removes the project together with its issues, their comments and the member set
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id IN (?)", tx.Model(&model.Issue{}).Select("id").Where("project_id = ?", id)).
			Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Issue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}

func insertMembers(tx *gorm.DB, projectID uuid.UUID, memberIDs []uuid.UUID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	rows := make([]model.ProjectMember, 0, len(memberIDs))
	seen := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, model.ProjectMember{ProjectID: projectID, UserID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func touchProject(tx *gorm.DB, projectID uuid.UUID) error {
	return tx.Model(&model.Project{}).Where("id = ?", projectID).Update("updated_at", gorm.Expr("NOW()")).Error
}
