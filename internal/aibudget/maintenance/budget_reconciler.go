// Пакет фоновых задач обслуживания: сверка счетчика used_budget с фактическими
// расходами и очистка осиротевших файлов в хранилище.
package maintenance

import (
	"log/slog"

	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"gorm.io/gorm"
)

type BudgetReconciler struct {
	db *gorm.DB
}

func NewBudgetReconciler(db *gorm.DB) *BudgetReconciler {
	return &BudgetReconciler{db}
}

// Reconcile пересчитывает used_budget каждого проекта по сумме одобренных
// расходов. Счетчик на проекте может разойтись, если обновления шли в обход
// агрегации, по ночам он приводится к источнику истины.
func (br *BudgetReconciler) Reconcile() {
	slog.Info("Start budget reconciliation")

	var fixed int
	var projects []dao.Project
	if err := br.db.FindInBatches(&projects, 100, func(tx *gorm.DB, batch int) error {
		for i := range projects {
			var spent float64
			if err := br.db.Model(&dao.Expense{}).
				Where("project_id = ?", projects[i].Id).
				Where("payment_status = ?", types.ExpenseApproved).
				Select("COALESCE(SUM(amount), 0)").
				Scan(&spent).Error; err != nil {
				return err
			}

			if projects[i].UsedBudget == spent {
				continue
			}

			if err := br.db.Model(&projects[i]).
				UpdateColumn("used_budget", spent).Error; err != nil {
				return err
			}
			fixed++
		}
		return nil
	}).Error; err != nil {
		slog.Error("Budget reconciliation fail", "err", err)
		return
	}

	slog.Info("Finish budget reconciliation", "fixed", fixed)
}
