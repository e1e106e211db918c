// Спринты доски: CRUD и переходы жизненного цикла Planning -> Active ->
// Completed через отдельные endpoint'ы /start/ и /complete/.
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

type SprintContext struct {
	BoardContext
	Sprint dao.Sprint
}

func (s *Services) SprintMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sprintId := c.Param("sprintId")
		board := c.(BoardContext).Board

		var sprint dao.Sprint
		query := s.db.
			Joins("CreatedBy").
			Preload("Stories").
			Where("sprints.board_id = ?", board.Id)

		if val, err := uuid.FromString(sprintId); err != nil {
			query = query.Where("sprints.sequence_id = ?", sprintId)
		} else {
			query = query.Where("sprints.id = ?", val.String())
		}

		if err := query.First(&sprint).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrSprintNotFound)
			}
			return EError(c, err)
		}

		sprint.CalculateStats()

		return next(SprintContext{c.(BoardContext), sprint})
	}
}

func (s *Services) AddSprintServices(g *echo.Group) {
	boardGroup := g.Group("/boards/:boardId", s.BoardMiddleware)

	boardGroup.GET("/sprints/", s.getSprintList)
	boardGroup.POST("/sprints/", s.createSprint, s.ProjectPermissionMiddleware(types.CapManageSprint))

	sprintGroup := boardGroup.Group("/sprints/:sprintId", s.SprintMiddleware)
	sprintGroup.GET("/", s.getSprint)
	sprintGroup.PATCH("/", s.updateSprint, s.ProjectPermissionMiddleware(types.CapManageSprint))
	sprintGroup.DELETE("/", s.deleteSprint, s.ProjectPermissionMiddleware(types.CapManageSprint))

	sprintGroup.POST("/start/", s.startSprint, s.ProjectPermissionMiddleware(types.CapManageSprint))
	sprintGroup.POST("/complete/", s.completeSprint, s.ProjectPermissionMiddleware(types.CapManageSprint))
}

// getSprintList godoc
// @id getSprintList
// @Summary Спринты: список спринтов доски
// @Tags Sprints
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Success 200 {array} dto.SprintLight "Спринты"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/ [get]
func (s *Services) getSprintList(c echo.Context) error {
	board := c.(BoardContext).Board

	var sprints []dao.Sprint
	if err := s.db.
		Preload("Stories").
		Where("board_id = ?", board.Id).
		Order("sequence_id").
		Find(&sprints).Error; err != nil {
		return EError(c, err)
	}

	for i := range sprints {
		sprints[i].CalculateStats()
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&sprints, func(sp *dao.Sprint) dto.SprintLight { return *sp.ToLightDTO() }))
}

// createSprint godoc
// @id createSprint
// @Summary Спринты: создание спринта
// @Description Создает спринт в статусе Planning. Если указаны обе даты,
// дата окончания должна быть позже даты начала.
// @Tags Sprints
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param data body CreateSprintRequest true "Данные спринта"
// @Success 200 {object} dto.Sprint "Созданный спринт"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные или даты"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/ [post]
func (s *Services) createSprint(c echo.Context) error {
	ctx := c.(BoardContext)

	var req CreateSprintRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrSprintRequestValidate)
	}
	if req.StartDate != nil && req.EndDate != nil &&
		!req.EndDate.Time().After(req.StartDate.Time()) {
		return EErrorDefined(c, apierrors.ErrSprintDatesInvalid)
	}

	sprint := dao.Sprint{
		Id:          dao.GenUUID(),
		BoardId:     ctx.Board.Id,
		CreatedById: ctx.User.ID,
		Status:      types.SprintPlanning,
	}
	req.Bind(&sprint)

	if err := s.db.Create(&sprint).Error; err != nil {
		return EError(c, err)
	}

	sprint.CreatedBy = ctx.User
	sprint.Board = &ctx.Board
	return c.JSON(http.StatusOK, sprint.ToDTO())
}

// getSprint godoc
// @id getSprint
// @Summary Спринты: получение спринта
// @Tags Sprints
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param sprintId path string true "ID или порядковый номер спринта"
// @Success 200 {object} dto.Sprint "Спринт со статистикой историй"
// @Failure 404 {object} apierrors.DefinedError "Спринт не найден"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/{sprintId}/ [get]
func (s *Services) getSprint(c echo.Context) error {
	ctx := c.(SprintContext)
	sprint := ctx.Sprint
	sprint.Board = &ctx.Board
	return c.JSON(http.StatusOK, sprint.ToDTO())
}

type UpdateSprintRequest struct {
	Name      *string           `json:"name,omitempty"`
	Goal      *string           `json:"goal,omitempty"`
	StartDate *types.TargetDate `json:"start_date,omitempty"`
	EndDate   *types.TargetDate `json:"end_date,omitempty"`
}

// updateSprint godoc
// @id updateSprint
// @Summary Спринты: обновление спринта
// @Description Изменяет название, цель и даты спринта. Завершенный спринт
// изменению не подлежит.
// @Tags Sprints
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param sprintId path string true "ID или порядковый номер спринта"
// @Param data body UpdateSprintRequest true "Изменяемые поля"
// @Success 200 {object} dto.Sprint "Обновленный спринт"
// @Failure 400 {object} apierrors.DefinedError "Некорректные даты"
// @Failure 409 {object} apierrors.DefinedError "Спринт завершен"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/{sprintId}/ [patch]
func (s *Services) updateSprint(c echo.Context) error {
	ctx := c.(SprintContext)
	sprint := ctx.Sprint

	if sprint.Status == types.SprintCompleted {
		return EErrorDefined(c, apierrors.ErrSprintLocked)
	}

	var req UpdateSprintRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Name != nil {
		if *req.Name == "" {
			return EErrorDefined(c, apierrors.ErrSprintRequestValidate)
		}
		sprint.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Goal != nil {
		sprint.Goal = *req.Goal
		fields = append(fields, "goal")
	}
	if req.StartDate != nil {
		sprint.StartDate = req.StartDate.ToNullTime()
		fields = append(fields, "start_date")
	}
	if req.EndDate != nil {
		sprint.EndDate = req.EndDate.ToNullTime()
		fields = append(fields, "end_date")
	}

	if sprint.StartDate.Valid && sprint.EndDate.Valid &&
		!sprint.EndDate.Time.After(sprint.StartDate.Time) {
		return EErrorDefined(c, apierrors.ErrSprintDatesInvalid)
	}

	if len(fields) > 0 {
		if err := s.db.Model(&sprint).Select(fields).Updates(&sprint).Error; err != nil {
			return EError(c, err)
		}
	}

	sprint.Board = &ctx.Board
	return c.JSON(http.StatusOK, sprint.ToDTO())
}

// deleteSprint godoc
// @id deleteSprint
// @Summary Спринты: удаление спринта
// @Description Удаляет спринт, его истории возвращаются в бэклог.
// @Tags Sprints
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param sprintId path string true "ID или порядковый номер спринта"
// @Success 204 "Спринт удален"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/{sprintId}/ [delete]
func (s *Services) deleteSprint(c echo.Context) error {
	sprint := c.(SprintContext).Sprint

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&sprint).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// startSprint godoc
// @id startSprint
// @Summary Спринты: запуск спринта
// @Description Переводит спринт из Planning в Active. На доске может быть
// только один активный спринт.
// @Tags Sprints
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param sprintId path string true "ID или порядковый номер спринта"
// @Param data body SprintStartRequest false "Даты спринта (если не заданы при создании)"
// @Success 200 {object} dto.Sprint "Активный спринт"
// @Failure 400 {object} apierrors.DefinedError "Некорректные даты или статус"
// @Failure 409 {object} apierrors.DefinedError "На доске уже есть активный спринт"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/{sprintId}/start/ [post]
func (s *Services) startSprint(c echo.Context) error {
	ctx := c.(SprintContext)
	sprint := ctx.Sprint

	var req SprintStartRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	startDate := sprint.StartDate.Time
	if req.StartDate != nil {
		startDate = req.StartDate.Time()
	}
	endDate := sprint.EndDate.Time
	if req.EndDate != nil {
		endDate = req.EndDate.Time()
	}
	if startDate.IsZero() || endDate.IsZero() {
		return EErrorDefined(c, apierrors.ErrSprintDatesInvalid)
	}

	if err := s.business.StartSprint(&sprint, startDate, endDate); err != nil {
		return EError(c, err)
	}

	sprint.Board = &ctx.Board
	return c.JSON(http.StatusOK, sprint.ToDTO())
}

// completeSprint godoc
// @id completeSprint
// @Summary Спринты: завершение спринта
// @Description Переводит спринт из Active в Completed. Незавершенные истории
// возвращаются в бэклог.
// @Tags Sprints
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param sprintId path string true "ID или порядковый номер спринта"
// @Success 200 {object} dto.Sprint "Завершенный спринт"
// @Failure 400 {object} apierrors.DefinedError "Спринт не активен"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/sprints/{sprintId}/complete/ [post]
func (s *Services) completeSprint(c echo.Context) error {
	ctx := c.(SprintContext)
	sprint := ctx.Sprint

	if err := s.business.CompleteSprint(&sprint); err != nil {
		return EError(c, err)
	}

	// Перечитываем истории: незавершенные вернулись в бэклог
	if err := s.db.
		Preload("Stories").
		Where("id = ?", sprint.Id).
		First(&sprint).Error; err != nil {
		return EError(c, err)
	}
	sprint.CalculateStats()

	sprint.Board = &ctx.Board
	return c.JSON(http.StatusOK, sprint.ToDTO())
}
