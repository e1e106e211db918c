package business

import (
	"testing"

	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Сухая сессия на postgres-диалекторе: SQL собирается, но не выполняется,
// соединение с базой не требуется.
func dryRunPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=aibudget dbname=aibudget",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestLockForUpdatePostgres(t *testing.T) {
	db := dryRunPostgres(t)

	var board dao.Board
	stmt := lockForUpdate(db).
		Where("id = ?", dao.GenUUID()).
		Find(&board).Statement
	require.Contains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestStartSprintActiveCheckWithoutLock(t *testing.T) {
	db := dryRunPostgres(t)

	// postgres не допускает FOR UPDATE с агрегатными функциями, поэтому
	// проверка существования активного спринта идет без блокировки: ее
	// обеспечивает блокировка строки доски.
	var activeExists bool
	stmt := db.Select("count(*) > 0").
		Model(&dao.Sprint{}).
		Where("board_id = ?", dao.GenUUID()).
		Where("status = ?", types.SprintActive).
		Find(&activeExists).Statement
	require.Contains(t, stmt.SQL.String(), "count(*) > 0")
	require.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}
