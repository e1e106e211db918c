package business

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"gorm.io/gorm"
)

// GetBudgetSummary собирает сводку бюджета проекта: суммы одобренных и
// ожидающих расходов, остаток и признак риска. Агрегация выполняется на
// стороне БД и пересчитывается на каждый запрос, поле used_budget проекта
// в расчете не участвует.
func (b *Business) GetBudgetSummary(project dao.Project) (*dto.BudgetSummary, error) {
	summary := dto.BudgetSummary{
		ProjectId:   project.Id,
		TotalBudget: project.TotalBudget,
	}

	rows, err := b.db.Model(&dao.Expense{}).
		Select("payment_status, coalesce(sum(amount), 0)").
		Where("project_id = ?", project.Id).
		Where("payment_status in ?", []types.ExpenseStatus{types.ExpensePending, types.ExpenseApproved}).
		Group("payment_status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status types.ExpenseStatus
		var sum float64
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		switch status {
		case types.ExpenseApproved:
			summary.Spent = sum
		case types.ExpensePending:
			summary.Pending = sum
		}
	}

	summary.Remaining = summary.TotalBudget - summary.Spent
	if summary.TotalBudget > 0 {
		summary.AtRisk = summary.Remaining < 0 ||
			summary.Remaining/summary.TotalBudget < b.cfg.AtRiskThreshold
	} else {
		summary.AtRisk = summary.Spent > 0
	}

	var items []dao.BudgetItem
	if err := b.db.
		Where("project_id = ?", project.Id).
		Order("created_at").
		Find(&items).Error; err != nil {
		return nil, err
	}

	for i := range items {
		var spent float64
		if err := b.db.Model(&dao.Expense{}).
			Select("coalesce(sum(amount), 0)").
			Where("budget_item_id = ?", items[i].Id).
			Where("payment_status = ?", types.ExpenseApproved).
			Find(&spent).Error; err != nil {
			return nil, err
		}
		summary.Items = append(summary.Items, dto.BudgetItemSummary{
			Item:      *items[i].ToDTO(),
			Spent:     spent,
			Remaining: items[i].Amount - spent,
		})
	}

	return &summary, nil
}

// ApproveExpense переводит расход из Pending в Approved, проставляя
// согласующего и время решения. Статус перепроверяется под блокировкой:
// повторное согласование возвращает ErrExpenseNotPending. Одобренная
// сумма добавляется к used_budget проекта.
func (b *Business) ApproveExpense(expense *dao.Expense, approver dao.User) error {
	if err := b.db.Transaction(func(tx *gorm.DB) error {
		var current dao.Expense
		if err := lockForUpdate(tx).
			Where("id = ?", expense.Id).
			First(&current).Error; err != nil {
			return err
		}
		if current.PaymentStatus != types.ExpensePending {
			return apierrors.ErrExpenseNotPending
		}

		now := time.Now()
		expense.PaymentStatus = types.ExpenseApproved
		expense.ApprovedById = &approver.ID
		expense.ApprovedAt = &now
		if err := tx.Model(expense).
			Select("payment_status", "approved_by_id", "approved_at").
			Updates(expense).Error; err != nil {
			return err
		}

		return tx.Model(&dao.Project{}).
			Where("id = ?", expense.ProjectId).
			UpdateColumn("used_budget", gorm.Expr("used_budget + ?", expense.Amount)).Error
	}); err != nil {
		return err
	}

	b.notifyExpense(expense)
	return nil
}

// RejectExpense переводит расход из Pending в Rejected. Оба конечных статуса
// терминальны, повторное решение невозможно.
func (b *Business) RejectExpense(expense *dao.Expense, approver dao.User) error {
	if err := b.db.Transaction(func(tx *gorm.DB) error {
		var current dao.Expense
		if err := lockForUpdate(tx).
			Where("id = ?", expense.Id).
			First(&current).Error; err != nil {
			return err
		}
		if current.PaymentStatus != types.ExpensePending {
			return apierrors.ErrExpenseNotPending
		}

		now := time.Now()
		expense.PaymentStatus = types.ExpenseRejected
		expense.ApprovedById = &approver.ID
		expense.ApprovedAt = &now
		return tx.Model(expense).
			Select("payment_status", "approved_by_id", "approved_at").
			Updates(expense).Error
	}); err != nil {
		return err
	}

	b.notifyExpense(expense)
	return nil
}

func (b *Business) notifyExpense(expense *dao.Expense) {
	if b.emailService == nil {
		return
	}
	if expense.SubmittedBy == nil {
		var submitter dao.User
		if err := b.db.Where("id = ?", expense.SubmittedById).First(&submitter).Error; err == nil {
			expense.SubmittedBy = &submitter
		}
	}
	b.emailService.ExpenseResolved(expense)
}
