package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

// Client is the contracting party that owns one or more projects.
type Client struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Document  string         `gorm:"column:document"`
	Contact   types.Metadata `gorm:"column:contact;type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Project is a construction or engineering site owned by a client.
type Project struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID    uuid.UUID      `gorm:"column:client_id;type:uuid;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	Location    types.Metadata `gorm:"column:location;type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
