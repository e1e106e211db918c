package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
)

type SprintLight struct {
	Id         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	SequenceId int                `json:"sequence_id"`
	Goal       string             `json:"goal,omitempty"`
	Status     types.SprintStatus `json:"status"`
	IsLocked   bool               `json:"is_locked"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Stats *SprintStats `json:"stats,omitempty"`
}

type Sprint struct {
	SprintLight

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	CreatedBy *UserLight   `json:"created_by,omitempty"`
	Board     *BoardLight  `json:"board,omitempty"`
	Stories   []StoryLight `json:"stories,omitempty"`
}

type SprintStats struct {
	AllStories  int `json:"all_stories"`
	ToDo        int `json:"to_do"`
	InProgress  int `json:"in_progress"`
	Review      int `json:"review"`
	Done        int `json:"done"`
	TotalPoints int `json:"total_points"`
}
