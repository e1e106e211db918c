// Бизнес-логика, переиспользуемая между HTTP handlers и cron-задачами:
// агрегация бюджета, жизненный цикл спринтов, граф зависимостей задач.
package business

import (
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Business struct {
	db  *gorm.DB
	cfg *config.Config

	emailService *notifications.EmailService
}

func NewBL(db *gorm.DB, cfg *config.Config, es *notifications.EmailService) *Business {
	return &Business{
		db:           db,
		cfg:          cfg,
		emailService: es,
	}
}

// sqlite в тестах не понимает FOR UPDATE, там транзакция и так пишет
// базу эксклюзивно.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
