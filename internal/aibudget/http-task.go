// Задачи проекта: CRUD с фильтрами, типизированные зависимости между
// задачами, метки. Мягкое удаление доступно по роли, полное удаление
// (purge) - только администратору проекта.
package aibudget

import (
	"errors"
	"net/http"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/aisa-it/aibudget/internal/aibudget/utils"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type TaskContext struct {
	ProjectContext
	Task dao.Task
}

func (s *Services) TaskMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		taskId := c.Param("taskId")
		project := c.(ProjectContext).Project

		var task dao.Task
		query := s.db.
			Joins("Story").
			Joins("Assignee").
			Joins("Reporter").
			Preload("Dependencies.Target").
			Preload("Labels").
			Where("tasks.project_id = ?", project.Id)

		if val, err := uuid.FromString(taskId); err != nil {
			query = query.Where("tasks.sequence_id = ?", taskId)
		} else {
			query = query.Where("tasks.id = ?", val.String())
		}

		if err := query.First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrTaskNotFound)
			}
			return EError(c, err)
		}
		return next(TaskContext{c.(ProjectContext), task})
	}
}

func (s *Services) AddTaskServices(g *echo.Group) {
	g.GET("/tasks/", s.getTaskList)
	g.POST("/tasks/", s.createTask, s.ProjectPermissionMiddleware(types.CapCreateTask))

	g.GET("/labels/", s.getLabelList)
	g.POST("/labels/", s.createLabel, s.ProjectPermissionMiddleware(types.CapEditTask))
	g.DELETE("/labels/:labelId/", s.deleteLabel, s.ProjectPermissionMiddleware(types.CapEditTask))

	taskGroup := g.Group("/tasks/:taskId", s.TaskMiddleware)
	taskGroup.GET("/", s.getTask)
	taskGroup.PATCH("/", s.updateTask, s.ProjectPermissionMiddleware(types.CapEditTask))
	taskGroup.PATCH("/status/", s.updateTaskStatus, s.ProjectPermissionMiddleware(types.CapEditTask))
	taskGroup.DELETE("/", s.deleteTask, s.ProjectPermissionMiddleware(types.CapDeleteTask))
	taskGroup.DELETE("/purge/", s.purgeTask, s.ProjectPermissionMiddleware(types.CapPurgeTask))

	taskGroup.GET("/dependencies/", s.getTaskDependencies)
	taskGroup.POST("/dependencies/", s.addTaskDependency, s.ProjectPermissionMiddleware(types.CapEditTask))
	taskGroup.DELETE("/dependencies/:dependencyId/", s.removeTaskDependency, s.ProjectPermissionMiddleware(types.CapEditTask))

	taskGroup.PUT("/labels/", s.setTaskLabels, s.ProjectPermissionMiddleware(types.CapEditTask))
}

// getTaskList godoc
// @id getTaskList
// @Summary Задачи: список задач проекта
// @Description Возвращает задачи с фильтрами по статусу, приоритету, типу,
// исполнителю и истории.
// @Tags Tasks
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param status query string false "Фильтр по статусу"
// @Param priority query string false "Фильтр по приоритету"
// @Param type query string false "Фильтр по типу"
// @Param assignee_id query string false "Фильтр по исполнителю"
// @Param story_id query string false "Фильтр по истории"
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по названию"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.TaskLight} "Задачи"
// @Router /api/auth/projects/{projectId}/tasks/ [get]
func (s *Services) getTaskList(c echo.Context) error {
	project := c.(ProjectContext).Project

	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.Task{}).
		Where("project_id = ?", project.Id).
		Order("sequence_id")

	if status := c.QueryParam("status"); status != "" {
		if !types.TaskStatus(status).Valid() {
			return EErrorDefined(c, apierrors.ErrTaskStatusInvalid)
		}
		query = query.Where("status = ?", status)
	}
	if priority := c.QueryParam("priority"); priority != "" {
		if !types.TaskPriority(priority).Valid() {
			return EErrorDefined(c, apierrors.ErrTaskPriorityInvalid)
		}
		query = query.Where("priority = ?", priority)
	}
	if taskType := c.QueryParam("type"); taskType != "" {
		if !types.TaskType(taskType).Valid() {
			return EErrorDefined(c, apierrors.ErrTaskTypeInvalid)
		}
		query = query.Where("type = ?", taskType)
	}
	if assigneeId := c.QueryParam("assignee_id"); assigneeId != "" {
		query = query.Where("assignee_id = ?", assigneeId)
	}
	if storyId := c.QueryParam("story_id"); storyId != "" {
		query = query.Where("story_id = ?", storyId)
	}
	if searchQuery != "" {
		query = query.Where("lower(title) LIKE ?", PrepareSearchRequest(searchQuery))
	}

	var tasks []dao.Task
	res, err := dao.PaginationRequest(offset, limit, query, &tasks)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&tasks, func(t *dao.Task) dto.TaskLight { return *t.ToLightDTO() })
	return c.JSON(http.StatusOK, resp)
}

// createTask godoc
// @id createTask
// @Summary Задачи: создание задачи
// @Description Создает задачу со статусом Created и порядковым номером в
// пределах проекта.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body CreateTaskRequest true "Данные задачи"
// @Success 200 {object} dto.Task "Созданная задача"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/tasks/ [post]
func (s *Services) createTask(c echo.Context) error {
	ctx := c.(ProjectContext)

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Title == "" {
		return EErrorDefined(c, apierrors.ErrTaskTitleRequired)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return EErrorDefined(c, apierrors.ErrTaskPriorityInvalid)
	}
	if req.Type != "" && !req.Type.Valid() {
		return EErrorDefined(c, apierrors.ErrTaskTypeInvalid)
	}
	if req.EstimatedHours < 0 {
		return EErrorDefined(c, apierrors.ErrTaskHoursNegative)
	}

	if req.StoryId != nil {
		var storyExists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Story{}).
			Where("id = ? AND project_id = ?", *req.StoryId, ctx.Project.Id).
			Find(&storyExists).Error; err != nil {
			return EError(c, err)
		}
		if !storyExists {
			return EErrorDefined(c, apierrors.ErrStoryNotFound)
		}
	}

	// Цели зависимостей проверяются до вставки задачи
	depTargets := make([]uuid.UUID, len(req.Dependencies))
	for i, dep := range req.Dependencies {
		if !dep.Type.Valid() {
			return EErrorDefined(c, apierrors.ErrDependencyTypeInvalid)
		}
		targetUUID, err := uuid.FromString(dep.TargetId)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrDependencyTargetMissed)
		}
		var targetExists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Task{}).
			Where("id = ? AND project_id = ?", targetUUID, ctx.Project.Id).
			Find(&targetExists).Error; err != nil {
			return EError(c, err)
		}
		if !targetExists {
			return EErrorDefined(c, apierrors.ErrDependencyTargetMissed)
		}
		depTargets[i] = targetUUID
	}

	reporterId := ctx.User.ID
	task := dao.Task{
		Id:         dao.GenUUID(),
		ProjectId:  ctx.Project.Id,
		ReporterId: &reporterId,
		Status:     types.TaskCreated,
	}
	req.Bind(&task)

	if err := s.db.Create(&task).Error; err != nil {
		return EError(c, err)
	}

	for i, dep := range req.Dependencies {
		if _, err := s.business.AddTaskDependency(&task, depTargets[i], dep.Type); err != nil {
			return EError(c, err)
		}
	}

	if err := s.db.
		Joins("Story").
		Joins("Assignee").
		Joins("Reporter").
		Preload("Dependencies.Target").
		Where("tasks.id = ?", task.Id).
		First(&task).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, task.ToDTO())
}

// getTask godoc
// @id getTask
// @Summary Задачи: получение задачи
// @Tags Tasks
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Success 200 {object} dto.Task "Задача с зависимостями и метками"
// @Failure 404 {object} apierrors.DefinedError "Задача не найдена"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/ [get]
func (s *Services) getTask(c echo.Context) error {
	task := c.(TaskContext).Task
	return c.JSON(http.StatusOK, task.ToDTO())
}

type UpdateTaskRequest struct {
	Title          *string             `json:"title,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Status         *types.TaskStatus   `json:"status,omitempty"`
	Priority       *types.TaskPriority `json:"priority,omitempty"`
	Type           *types.TaskType     `json:"type,omitempty"`
	StoryId        *string             `json:"story_id,omitempty"`
	AssigneeId     *string             `json:"assignee_id,omitempty"`
	EstimatedHours *float64            `json:"estimated_hours,omitempty"`
	ActualHours    *float64            `json:"actual_hours,omitempty"`
}

// updateTask godoc
// @id updateTask
// @Summary Задачи: обновление задачи
// @Description Частичное обновление: применяются только переданные поля.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Param data body UpdateTaskRequest true "Изменяемые поля"
// @Success 200 {object} dto.Task "Обновленная задача"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/ [patch]
func (s *Services) updateTask(c echo.Context) error {
	ctx := c.(TaskContext)
	task := ctx.Task

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Title != nil {
		if *req.Title == "" {
			return EErrorDefined(c, apierrors.ErrTaskTitleRequired)
		}
		task.Title = *req.Title
		fields = append(fields, "title")
	}
	if req.Description != nil {
		task.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return EErrorDefined(c, apierrors.ErrTaskStatusInvalid)
		}
		task.Status = *req.Status
		fields = append(fields, "status")
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return EErrorDefined(c, apierrors.ErrTaskPriorityInvalid)
		}
		task.Priority = *req.Priority
		fields = append(fields, "priority")
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return EErrorDefined(c, apierrors.ErrTaskTypeInvalid)
		}
		task.Type = *req.Type
		fields = append(fields, "type")
	}
	if req.StoryId != nil {
		if *req.StoryId == "" {
			task.StoryId = uuid.NullUUID{}
		} else {
			storyUUID, err := uuid.FromString(*req.StoryId)
			if err != nil {
				return EErrorDefined(c, apierrors.ErrStoryNotFound)
			}
			var storyExists bool
			if err := s.db.Select("count(*) > 0").
				Model(&dao.Story{}).
				Where("id = ? AND project_id = ?", storyUUID, task.ProjectId).
				Find(&storyExists).Error; err != nil {
				return EError(c, err)
			}
			if !storyExists {
				return EErrorDefined(c, apierrors.ErrStoryNotFound)
			}
			task.StoryId = uuid.NullUUID{UUID: storyUUID, Valid: true}
		}
		fields = append(fields, "story_id")
	}
	if req.AssigneeId != nil {
		if *req.AssigneeId == "" {
			task.AssigneeId = nil
		} else {
			task.AssigneeId = req.AssigneeId
		}
		fields = append(fields, "assignee_id")
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours < 0 {
			return EErrorDefined(c, apierrors.ErrTaskHoursNegative)
		}
		task.EstimatedHours = *req.EstimatedHours
		fields = append(fields, "estimated_hours")
	}
	if req.ActualHours != nil {
		if *req.ActualHours < 0 {
			return EErrorDefined(c, apierrors.ErrTaskHoursNegative)
		}
		task.ActualHours = *req.ActualHours
		fields = append(fields, "actual_hours")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&task).Select(fields).Updates(&task).Error; err != nil {
			return EError(c, err)
		}
	}

	if err := s.db.
		Joins("Story").
		Joins("Assignee").
		Joins("Reporter").
		Preload("Dependencies.Target").
		Preload("Labels").
		Where("tasks.id = ?", task.Id).
		First(&task).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, task.ToDTO())
}

type UpdateTaskStatusRequest struct {
	Status types.TaskStatus `json:"status"`
}

// updateTaskStatus godoc
// @id updateTaskStatus
// @Summary Задачи: смена статуса задачи
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Param data body UpdateTaskStatusRequest true "Новый статус"
// @Success 200 {object} dto.Task "Обновленная задача"
// @Failure 400 {object} apierrors.DefinedError "Некорректный статус"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/status/ [patch]
func (s *Services) updateTaskStatus(c echo.Context) error {
	ctx := c.(TaskContext)
	task := ctx.Task

	var req UpdateTaskStatusRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if !req.Status.Valid() {
		return EErrorDefined(c, apierrors.ErrTaskStatusInvalid)
	}

	if err := s.db.Model(&task).Update("status", req.Status).Error; err != nil {
		return EError(c, err)
	}
	task.Status = req.Status

	return c.JSON(http.StatusOK, task.ToDTO())
}

// deleteTask godoc
// @id deleteTask
// @Summary Задачи: мягкое удаление задачи
// @Tags Tasks
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Success 204 "Задача удалена"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/ [delete]
func (s *Services) deleteTask(c echo.Context) error {
	task := c.(TaskContext).Task

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&task).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// purgeTask godoc
// @id purgeTask
// @Summary Задачи: безвозвратное удаление задачи
// @Description Полностью удаляет задачу из БД вместе со связями и вложениями.
// Доступно только администратору проекта.
// @Tags Tasks
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Success 204 "Задача удалена безвозвратно"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/purge/ [delete]
func (s *Services) purgeTask(c echo.Context) error {
	task := c.(TaskContext).Task

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Unscoped().Delete(&task).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// getTaskDependencies godoc
// @id getTaskDependencies
// @Summary Задачи: список зависимостей задачи
// @Tags Tasks
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Success 200 {array} dto.TaskDependency "Зависимости"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/dependencies/ [get]
func (s *Services) getTaskDependencies(c echo.Context) error {
	task := c.(TaskContext).Task

	var deps []dao.TaskDependency
	if err := s.db.
		Preload("Target").
		Where("task_id = ?", task.Id).
		Order("created_at").
		Find(&deps).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&deps, func(d *dao.TaskDependency) dto.TaskDependency { return *d.ToDTO() }))
}

// addTaskDependency godoc
// @id addTaskDependency
// @Summary Задачи: добавление зависимости
// @Description Добавляет направленную типизированную связь с другой задачей
// проекта. Для блокирующих связей проверяется отсутствие цикла.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Param data body DependencyRequest true "Целевая задача и тип связи"
// @Success 200 {object} dto.TaskDependency "Созданная зависимость"
// @Failure 400 {object} apierrors.DefinedError "Цикл, самоссылка или неизвестный тип"
// @Failure 404 {object} apierrors.DefinedError "Целевая задача не найдена"
// @Failure 409 {object} apierrors.DefinedError "Связь уже существует"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/dependencies/ [post]
func (s *Services) addTaskDependency(c echo.Context) error {
	task := c.(TaskContext).Task

	var req DependencyRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	targetUUID, err := uuid.FromString(req.TargetId)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrDependencyTargetMissed)
	}

	dep, err := s.business.AddTaskDependency(&task, targetUUID, req.Type)
	if err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, dep.ToDTO())
}

// removeTaskDependency godoc
// @id removeTaskDependency
// @Summary Задачи: удаление зависимости
// @Tags Tasks
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Param dependencyId path string true "ID зависимости"
// @Success 204 "Зависимость удалена"
// @Failure 404 {object} apierrors.DefinedError "Зависимость не найдена"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/dependencies/{dependencyId}/ [delete]
func (s *Services) removeTaskDependency(c echo.Context) error {
	task := c.(TaskContext).Task

	depUUID, err := uuid.FromString(c.Param("dependencyId"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrDependencyTargetMissed)
	}

	if err := s.business.RemoveTaskDependency(&task, depUUID); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// getLabelList godoc
// @id getLabelList
// @Summary Метки: список меток проекта
// @Tags Tasks
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {array} dto.Label "Метки"
// @Router /api/auth/projects/{projectId}/labels/ [get]
func (s *Services) getLabelList(c echo.Context) error {
	project := c.(ProjectContext).Project

	var labels []dao.Label
	if err := s.db.
		Where("project_id = ?", project.Id).
		Order("name").
		Find(&labels).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&labels, func(l *dao.Label) dto.Label { return *l.ToDTO() }))
}

// createLabel godoc
// @id createLabel
// @Summary Метки: создание метки
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body LabelRequest true "Название и цвет метки"
// @Success 200 {object} dto.Label "Созданная метка"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/labels/ [post]
func (s *Services) createLabel(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req LabelRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrLabelNotFound)
	}

	label := dao.Label{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Name:      req.Name,
		Color:     req.Color,
	}

	if err := s.db.Create(&label).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, label.ToDTO())
}

// deleteLabel godoc
// @id deleteLabel
// @Summary Метки: удаление метки
// @Tags Tasks
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param labelId path string true "ID метки"
// @Success 204 "Метка удалена"
// @Failure 404 {object} apierrors.DefinedError "Метка не найдена"
// @Router /api/auth/projects/{projectId}/labels/{labelId}/ [delete]
func (s *Services) deleteLabel(c echo.Context) error {
	project := c.(ProjectContext).Project

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("project_id = ?", project.Id).
			Where("id = ?", c.Param("labelId")).
			Delete(&dao.Label{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apierrors.ErrLabelNotFound
		}
		return tx.Where("label_id = ?", c.Param("labelId")).Delete(&dao.TaskLabel{}).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// setTaskLabels godoc
// @id setTaskLabels
// @Summary Задачи: назначение меток задаче
// @Description Полностью заменяет набор меток задачи.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param taskId path string true "ID или порядковый номер задачи"
// @Param data body TaskLabelsRequest true "Список ID меток"
// @Success 200 {object} dto.Task "Задача с обновленными метками"
// @Failure 404 {object} apierrors.DefinedError "Метка не найдена"
// @Router /api/auth/projects/{projectId}/tasks/{taskId}/labels/ [put]
func (s *Services) setTaskLabels(c echo.Context) error {
	task := c.(TaskContext).Task

	var req TaskLabelsRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&dao.Label{}).
			Where("project_id = ?", task.ProjectId).
			Where("id IN ?", req.LabelIds).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(req.LabelIds) {
			return apierrors.ErrLabelNotFound
		}

		if err := tx.Where("task_id = ?", task.Id).Delete(&dao.TaskLabel{}).Error; err != nil {
			return err
		}
		for _, labelId := range req.LabelIds {
			labelUUID, err := uuid.FromString(labelId)
			if err != nil {
				return apierrors.ErrLabelNotFound
			}
			if err := tx.Create(&dao.TaskLabel{TaskId: task.Id, LabelId: labelUUID}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return EError(c, err)
	}

	if err := s.db.
		Joins("Story").
		Joins("Assignee").
		Joins("Reporter").
		Preload("Dependencies.Target").
		Preload("Labels").
		Where("tasks.id = ?", task.Id).
		First(&task).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, task.ToDTO())
}
