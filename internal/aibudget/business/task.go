package business

import (
	"errors"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// AddTaskDependency добавляет направленную типизированную связь между двумя
// задачами одного проекта. Проверка существования целевой задачи и вставка
// ребра выполняются в одной транзакции. Для блокирующих связей перед вставкой
// проверяется отсутствие цикла.
func (b *Business) AddTaskDependency(task *dao.Task, targetId uuid.UUID, depType types.DependencyType) (*dao.TaskDependency, error) {
	if !depType.Valid() {
		return nil, apierrors.ErrDependencyTypeInvalid
	}
	if task.Id == targetId {
		return nil, apierrors.ErrDependencySelf
	}

	var dep dao.TaskDependency
	if err := b.db.Transaction(func(tx *gorm.DB) error {
		var target dao.Task
		if err := tx.
			Where("id = ?", targetId).
			Where("project_id = ?", task.ProjectId).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrDependencyTargetMissed
			}
			return err
		}

		var exists bool
		if err := tx.Select("count(*) > 0").
			Model(&dao.TaskDependency{}).
			Where("task_id = ? AND target_id = ? AND type = ?", task.Id, targetId, depType).
			Find(&exists).Error; err != nil {
			return err
		}
		if exists {
			return apierrors.ErrDependencyExists
		}

		if from, to, blocking := blockingEdge(task.Id, targetId, depType); blocking {
			cycle, err := hasBlockingPath(tx, to, from)
			if err != nil {
				return err
			}
			if cycle {
				return apierrors.ErrDependencyCycle
			}
		}

		dep = dao.TaskDependency{
			Id:       dao.GenUUID(),
			TaskId:   task.Id,
			TargetId: targetId,
			Type:     depType,
		}
		return tx.Create(&dep).Error
	}); err != nil {
		return nil, err
	}

	if err := b.db.Preload("Target").Where("id = ?", dep.Id).First(&dep).Error; err != nil {
		return nil, err
	}
	return &dep, nil
}

// RemoveTaskDependency удаляет ребро зависимости задачи.
func (b *Business) RemoveTaskDependency(task *dao.Task, depId uuid.UUID) error {
	result := b.db.
		Where("id = ? AND task_id = ?", depId, task.Id).
		Delete(&dao.TaskDependency{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apierrors.ErrDependencyTargetMissed
	}
	return nil
}

// Нормализует ребро к направлению "from блокирует to".
func blockingEdge(taskId, targetId uuid.UUID, depType types.DependencyType) (from, to uuid.UUID, ok bool) {
	switch depType {
	case types.DepBlocks:
		return taskId, targetId, true
	case types.DepIsBlockedBy:
		return targetId, taskId, true
	}
	return taskId, targetId, false
}

// Обход графа блокирующих связей в ширину: существует ли путь from -> to.
// Обе ориентации ребра (blocks и is_blocked_by) приводятся к одному
// направлению.
func hasBlockingPath(tx *gorm.DB, from, to uuid.UUID) (bool, error) {
	visited := map[uuid.UUID]bool{from: true}
	frontier := []uuid.UUID{from}

	for len(frontier) > 0 {
		var edges []dao.TaskDependency
		if err := tx.
			Where("(task_id IN ? AND type = ?) OR (target_id IN ? AND type = ?)",
				frontier, types.DepBlocks, frontier, types.DepIsBlockedBy).
			Find(&edges).Error; err != nil {
			return false, err
		}

		frontier = frontier[:0]
		for _, edge := range edges {
			next := edge.TargetId
			if edge.Type == types.DepIsBlockedBy {
				next = edge.TaskId
			}
			if next == to {
				return true, nil
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false, nil
}
