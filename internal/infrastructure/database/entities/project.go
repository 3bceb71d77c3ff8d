package entities

import (
	"time"

	"gorm.io/datatypes"

	"tramway-server/internal/domain/project"
)

// Project represents the database schema for projects
type Project struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID    string            `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name        string            `gorm:"type:varchar(256);not null"`
	Description string            `gorm:"type:text"`
	Settings    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedBy   string            `gorm:"type:varchar(64)"`
}

// TableName specifies the table name for Project.
func (Project) TableName() string {
	return "projects"
}

// EtoD converts database entity to domain model
func (p *Project) EtoD() *project.Project {
	return &project.Project{
		ID:          p.PublicID,
		Name:        p.Name,
		Description: p.Description,
		Settings:    map[string]any(p.Settings),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		CreatedBy:   p.CreatedBy,
	}
}

// NewSchemaProject creates a database entity from domain model
func NewSchemaProject(p *project.Project) *Project {
	return &Project{
		PublicID:    p.ID,
		Name:        p.Name,
		Description: p.Description,
		Settings:    datatypes.JSONMap(p.Settings),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
