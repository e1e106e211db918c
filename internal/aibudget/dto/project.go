package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
)

type ClientLight struct {
	Id    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

type Client struct {
	ClientLight

	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ProjectLight struct {
	Id         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Identifier string            `json:"identifier"`
	Type       types.ProjectType `json:"type"`
	Status     string            `json:"status"`
}

type Project struct {
	ProjectLight

	TotalBudget float64   `json:"total_budget"`
	UsedBudget  float64   `json:"used_budget"`
	CreatedAt   time.Time `json:"created_at"`

	Owner   *UserLight      `json:"owner,omitempty"`
	Client  *ClientLight    `json:"client,omitempty" extensions:"x-nullable"`
	Members []ProjectMember `json:"members,omitempty"`
}

type ProjectMember struct {
	Id       uuid.UUID  `json:"id"`
	Role     types.Role `json:"role"`
	Member   *UserLight `json:"member"`
	JoinedAt time.Time  `json:"joined_at"`
}

type BoardLight struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Board struct {
	BoardLight

	Filters   map[string]interface{} `json:"filters,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Sprints   []SprintLight          `json:"sprints,omitempty"`
}
