package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type BudgetItem struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProjectId uuid.UUID `gorm:"type:uuid;index"`

	Name     string  `json:"name"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`

	Project *Project `gorm:"foreignKey:ProjectId"`
}

func (BudgetItem) TableName() string { return "budget_items" }

// BeforeDelete отвязывает расходы от статьи бюджета, сами расходы остаются.
func (bi *BudgetItem) BeforeDelete(tx *gorm.DB) error {
	return tx.Model(&Expense{}).
		Where("budget_item_id = ?", bi.Id).
		Update("budget_item_id", nil).Error
}

func (bi *BudgetItem) ToDTO() *dto.BudgetItem {
	if bi == nil {
		return nil
	}
	return &dto.BudgetItem{
		Id:        bi.Id,
		Name:      bi.Name,
		Category:  bi.Category,
		Amount:    bi.Amount,
		CreatedAt: bi.CreatedAt,
	}
}

type Expense struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProjectId    uuid.UUID     `gorm:"type:uuid;index"`
	BudgetItemId uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`

	Amount        float64             `json:"amount"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus types.ExpenseStatus `json:"payment_status" gorm:"default:Pending"`
	Tags          pq.StringArray      `json:"tags" gorm:"type:text[]"`

	SubmittedById string
	ApprovedById  *string    `extensions:"x-nullable"`
	ApprovedAt    *time.Time `extensions:"x-nullable"`

	Project     *Project    `gorm:"foreignKey:ProjectId"`
	BudgetItem  *BudgetItem `gorm:"foreignKey:BudgetItemId"`
	SubmittedBy *User       `gorm:"foreignKey:SubmittedById"`
	ApprovedBy  *User       `gorm:"foreignKey:ApprovedById"`
}

func (Expense) TableName() string { return "expenses" }

func (e *Expense) ToDTO() *dto.Expense {
	if e == nil {
		return nil
	}
	return &dto.Expense{
		Id:            e.Id,
		Amount:        e.Amount,
		Category:      e.Category,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		PaymentStatus: e.PaymentStatus,
		Tags:          e.Tags,
		CreatedAt:     e.CreatedAt,
		BudgetItem:    e.BudgetItem.ToDTO(),
		SubmittedBy:   e.SubmittedBy.ToLightDTO(),
		ApprovedBy:    e.ApprovedBy.ToLightDTO(),
		ApprovedAt:    e.ApprovedAt,
	}
}
