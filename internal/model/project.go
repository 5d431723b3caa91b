package model

import (
	"time"

	"github.com/google/uuid"
)

// Project owns its issues by reference. CreatedBy is the owner and always
// counts as a member, even when absent from Members.
type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string        `gorm:"not null"`
	Description string
	Status      ProjectStatus `gorm:"not null;default:planning"`
	Priority    Priority      `gorm:"not null;default:medium"`
	StartDate   *time.Time
	EndDate     *time.Time
	LeadID      *uuid.UUID    `gorm:"type:uuid"`
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Creator User   `gorm:"foreignKey:CreatedBy"`
	Lead    *User  `gorm:"foreignKey:LeadID"`
	Members []User `gorm:"many2many:project_members"`
}

// MemberIDs returns the ids of the explicit member set.
func (p *Project) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Members))
	for i, m := range p.Members {
		ids[i] = m.ID
	}
	return ids
}

// ProjectMember is a row of the explicit member set.
type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
