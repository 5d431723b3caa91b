package model

import (
	"time"

	"github.com/google/uuid"
)

// Issue.Order is the position inside the (ProjectID, Status) column.
type Issue struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string      `gorm:"not null"`
	Description string
	Type        IssueType   `gorm:"not null;default:bug"`
	Status      IssueStatus `gorm:"not null;default:open;index:idx_issues_column,priority:2"`
	Priority    Priority    `gorm:"not null;default:medium"`
	ProjectID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_issues_column,priority:1"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid;not null"`
	AssigneeID  *uuid.UUID  `gorm:"type:uuid"`
	Order       int         `gorm:"column:order_index;not null;default:0"`
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Project  Project `gorm:"foreignKey:ProjectID"`
	Creator  User    `gorm:"foreignKey:CreatedBy"`
	Assignee *User   `gorm:"foreignKey:AssigneeID"`
}
