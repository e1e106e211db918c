package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
)

type UserLight struct {
	Id        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      types.Role `json:"role"`
}

type User struct {
	UserLight

	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}
