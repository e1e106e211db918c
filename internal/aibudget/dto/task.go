package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
)

type TaskLight struct {
	Id         uuid.UUID          `json:"id"`
	SequenceId int                `json:"sequence_id"`
	Title      string             `json:"title"`
	Status     types.TaskStatus   `json:"status"`
	Priority   types.TaskPriority `json:"priority"`
	Type       types.TaskType     `json:"type"`
}

type Task struct {
	TaskLight

	Description    string     `json:"description,omitempty"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`

	Story    *StoryLight `json:"story,omitempty" extensions:"x-nullable"`
	Assignee *UserLight  `json:"assignee,omitempty" extensions:"x-nullable"`
	Reporter *UserLight  `json:"reporter,omitempty" extensions:"x-nullable"`

	Dependencies []TaskDependency `json:"dependencies,omitempty"`
	Labels       []Label          `json:"labels,omitempty"`
}

type TaskDependency struct {
	Id     uuid.UUID            `json:"id"`
	Type   types.DependencyType `json:"type"`
	Target *TaskLight           `json:"target"`
}

type Label struct {
	Id    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}
