package business

import (
	"database/sql"
	"errors"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// StartSprint переводит спринт из Planning в Active. Проверка единственного
// активного спринта на доске и сам переход выполняются в одной транзакции:
// конкурирующие запуски на одной доске сериализуются блокировкой строки
// самой доски, поэтому проверка существования активного спринта идет уже
// под блокировкой.
func (b *Business) StartSprint(sprint *dao.Sprint, startDate, endDate time.Time) error {
	if !endDate.After(startDate) {
		return apierrors.ErrSprintDatesInvalid
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		var board dao.Board
		if err := lockForUpdate(tx).
			Where("id = ?", sprint.BoardId).
			First(&board).Error; err != nil {
			return err
		}

		var current dao.Sprint
		if err := tx.
			Where("id = ?", sprint.Id).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status != types.SprintPlanning {
			return apierrors.ErrSprintNotPlanning
		}

		var activeExists bool
		if err := tx.Select("count(*) > 0").
			Model(&dao.Sprint{}).
			Where("board_id = ?", sprint.BoardId).
			Where("status = ?", types.SprintActive).
			Find(&activeExists).Error; err != nil {
			return err
		}
		if activeExists {
			return apierrors.ErrSprintAlreadyActive
		}

		sprint.Status = types.SprintActive
		sprint.IsLocked = true
		sprint.StartDate = sql.NullTime{Time: startDate, Valid: true}
		sprint.EndDate = sql.NullTime{Time: endDate, Valid: true}
		return tx.Model(sprint).
			Select("status", "is_locked", "start_date", "end_date").
			Updates(sprint).Error
	})
}

// CompleteSprint переводит спринт из Active в Completed. Незавершенные
// истории возвращаются в бэклог, истории в статусе Done остаются в спринте.
func (b *Business) CompleteSprint(sprint *dao.Sprint) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		var current dao.Sprint
		if err := lockForUpdate(tx).
			Where("id = ?", sprint.Id).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status != types.SprintActive {
			return apierrors.ErrSprintNotActive
		}

		if err := tx.Model(&dao.Story{}).
			Where("sprint_id = ?", sprint.Id).
			Where("status <> ?", types.StoryDone).
			Update("sprint_id", nil).Error; err != nil {
			return err
		}

		sprint.Status = types.SprintCompleted
		return tx.Model(sprint).
			Select("status").
			Updates(sprint).Error
	})
}

// AssignStoryToSprint назначает историю в спринт или возвращает в бэклог
// (sprintId == nil). В спринт берутся только готовые истории, завершенный
// спринт изменению не подлежит.
func (b *Business) AssignStoryToSprint(story *dao.Story, sprintId *string) error {
	if sprintId == nil {
		story.SprintId = uuid.NullUUID{}
		return b.db.Model(story).Select("sprint_id").Updates(story).Error
	}

	id, err := uuid.FromString(*sprintId)
	if err != nil {
		return apierrors.ErrSprintNotFound
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		var sprint dao.Sprint
		if err := tx.Where("id = ?", id).First(&sprint).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrSprintNotFound
			}
			return err
		}
		if sprint.Status == types.SprintCompleted {
			return apierrors.ErrSprintLocked
		}
		if !story.IsReady {
			return apierrors.ErrStoryNotReady
		}

		story.SprintId = uuid.NullUUID{UUID: sprint.Id, Valid: true}
		return tx.Model(story).Select("sprint_id").Updates(story).Error
	})
}
