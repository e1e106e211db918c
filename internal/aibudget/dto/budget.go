package dto

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
)

type BudgetItem struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type Expense struct {
	Id            uuid.UUID           `json:"id"`
	Amount        float64             `json:"amount"`
	Category      string              `json:"category,omitempty"`
	Description   string              `json:"description,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	PaymentStatus types.ExpenseStatus `json:"payment_status"`
	Tags          []string            `json:"tags,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`

	BudgetItem  *BudgetItem `json:"budget_item,omitempty" extensions:"x-nullable"`
	SubmittedBy *UserLight  `json:"submitted_by,omitempty"`
	ApprovedBy  *UserLight  `json:"approved_by,omitempty" extensions:"x-nullable"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty" extensions:"x-nullable"`
}

// BudgetSummary - агрегат бюджета проекта, пересчитывается на каждый запрос.
type BudgetSummary struct {
	ProjectId   uuid.UUID `json:"project_id"`
	TotalBudget float64   `json:"total_budget"`
	Spent       float64   `json:"spent"`
	Pending     float64   `json:"pending"`
	Remaining   float64   `json:"remaining"`
	AtRisk      bool      `json:"at_risk"`

	Items []BudgetItemSummary `json:"items,omitempty"`
}

type BudgetItemSummary struct {
	Item      BudgetItem `json:"item"`
	Spent     float64    `json:"spent"`
	Remaining float64    `json:"remaining"`
}
