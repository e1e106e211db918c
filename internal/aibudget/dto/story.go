package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
)

type EpicLight struct {
	Id       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Status   string             `json:"status"`
	Priority types.TaskPriority `json:"priority"`
}

type Epic struct {
	EpicLight

	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Stories     []StoryLight `json:"stories,omitempty"`
}

type StoryLight struct {
	Id       uuid.UUID         `json:"id"`
	Title    string            `json:"title"`
	Status   types.StoryStatus `json:"status"`
	Points   int               `json:"points"`
	IsReady  bool              `json:"is_ready"`
	SprintId *uuid.UUID        `json:"sprint_id,omitempty" extensions:"x-nullable"`
}

type Story struct {
	StoryLight

	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
	Epic        *EpicLight   `json:"epic,omitempty"`
	Sprint      *SprintLight `json:"sprint,omitempty" extensions:"x-nullable"`
}
