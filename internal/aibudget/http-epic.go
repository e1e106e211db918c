// Эпики проекта. Эпик владеет историями: удаление эпика удаляет его истории.
package aibudget

import (
	"errors"
	"net/http"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/aisa-it/aibudget/internal/aibudget/utils"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type EpicContext struct {
	ProjectContext
	Epic dao.Epic
}

func (s *Services) EpicMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		epicId := c.Param("epicId")
		project := c.(ProjectContext).Project

		var epic dao.Epic
		if err := s.db.
			Where("project_id = ?", project.Id).
			Where("id = ?", epicId).
			First(&epic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrEpicNotFound)
			}
			return EError(c, err)
		}
		return next(EpicContext{c.(ProjectContext), epic})
	}
}

func (s *Services) AddEpicServices(g *echo.Group) {
	g.GET("/epics/", s.getEpicList)
	g.POST("/epics/", s.createEpic, s.ProjectPermissionMiddleware(types.CapCreateTask))

	epicGroup := g.Group("/epics/:epicId", s.EpicMiddleware)
	epicGroup.GET("/", s.getEpic)
	epicGroup.PATCH("/", s.updateEpic, s.ProjectPermissionMiddleware(types.CapEditTask))
	epicGroup.DELETE("/", s.deleteEpic, s.ProjectPermissionMiddleware(types.CapDeleteTask))
}

// getEpicList godoc
// @id getEpicList
// @Summary Эпики: список эпиков проекта
// @Tags Epics
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param search_query query string false "Поиск по названию"
// @Success 200 {array} dto.EpicLight "Эпики"
// @Router /api/auth/projects/{projectId}/epics/ [get]
func (s *Services) getEpicList(c echo.Context) error {
	project := c.(ProjectContext).Project

	query := s.db.
		Where("project_id = ?", project.Id).
		Order("created_at")
	if searchQuery := c.QueryParam("search_query"); searchQuery != "" {
		query = query.Where("lower(name) LIKE ?", PrepareSearchRequest(searchQuery))
	}

	var epics []dao.Epic
	if err := query.Find(&epics).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&epics, func(e *dao.Epic) dto.EpicLight { return *e.ToLightDTO() }))
}

// createEpic godoc
// @id createEpic
// @Summary Эпики: создание эпика
// @Tags Epics
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body CreateEpicRequest true "Данные эпика"
// @Success 200 {object} dto.Epic "Созданный эпик"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/epics/ [post]
func (s *Services) createEpic(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req CreateEpicRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrEpicNameRequired)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return EErrorDefined(c, apierrors.ErrTaskPriorityInvalid)
	}

	epic := dao.Epic{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
	}
	req.Bind(&epic)

	if err := s.db.Create(&epic).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, epic.ToDTO())
}

// getEpic godoc
// @id getEpic
// @Summary Эпики: получение эпика с историями
// @Tags Epics
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Success 200 {object} dto.Epic "Эпик"
// @Failure 404 {object} apierrors.DefinedError "Эпик не найден"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/ [get]
func (s *Services) getEpic(c echo.Context) error {
	epic := c.(EpicContext).Epic

	if err := s.db.
		Preload("Stories").
		Where("id = ?", epic.Id).
		First(&epic).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, epic.ToDTO())
}

type UpdateEpicRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Status      *string             `json:"status,omitempty"`
	Priority    *types.TaskPriority `json:"priority,omitempty"`
}

// updateEpic godoc
// @id updateEpic
// @Summary Эпики: обновление эпика
// @Tags Epics
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param data body UpdateEpicRequest true "Изменяемые поля"
// @Success 200 {object} dto.Epic "Обновленный эпик"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/ [patch]
func (s *Services) updateEpic(c echo.Context) error {
	epic := c.(EpicContext).Epic

	var req UpdateEpicRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Name != nil {
		if *req.Name == "" {
			return EErrorDefined(c, apierrors.ErrEpicNameRequired)
		}
		epic.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Description != nil {
		epic.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.Status != nil {
		epic.Status = *req.Status
		fields = append(fields, "status")
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return EErrorDefined(c, apierrors.ErrTaskPriorityInvalid)
		}
		epic.Priority = *req.Priority
		fields = append(fields, "priority")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&epic).Select(fields).Updates(&epic).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, epic.ToDTO())
}

// deleteEpic godoc
// @id deleteEpic
// @Summary Эпики: удаление эпика
// @Description Удаляет эпик вместе с его историями.
// @Tags Epics
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Success 204 "Эпик удален"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/ [delete]
func (s *Services) deleteEpic(c echo.Context) error {
	epic := c.(EpicContext).Epic

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&epic).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
