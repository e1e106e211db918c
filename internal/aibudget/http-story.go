// Пользовательские истории: CRUD под эпиком, назначение в спринт и бэклог
// проекта. Пустой sprint_id означает, что история находится в бэклоге.
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

type StoryContext struct {
	EpicContext
	Story dao.Story
}

func (s *Services) StoryMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		storyId, err := uuid.FromString(c.Param("storyId"))
		if err != nil {
			return EErrorDefined(c, apierrors.ErrStoryNotFound)
		}
		epic := c.(EpicContext).Epic

		var story dao.Story
		if err := s.db.
			Joins("Sprint").
			Where("stories.epic_id = ?", epic.Id).
			Where("stories.id = ?", storyId).
			First(&story).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrStoryNotFound)
			}
			return EError(c, err)
		}
		return next(StoryContext{c.(EpicContext), story})
	}
}

func (s *Services) AddStoryServices(g *echo.Group) {
	g.GET("/backlog/", s.getBacklog)

	epicGroup := g.Group("/epics/:epicId", s.EpicMiddleware)
	epicGroup.GET("/stories/", s.getStoryList)
	epicGroup.POST("/stories/", s.createStory, s.ProjectPermissionMiddleware(types.CapCreateTask))

	storyGroup := epicGroup.Group("/stories/:storyId", s.StoryMiddleware)
	storyGroup.GET("/", s.getStory)
	storyGroup.PATCH("/", s.updateStory, s.ProjectPermissionMiddleware(types.CapEditTask))
	storyGroup.DELETE("/", s.deleteStory, s.ProjectPermissionMiddleware(types.CapDeleteTask))

	storyGroup.PUT("/sprint/", s.assignStorySprint, s.ProjectPermissionMiddleware(types.CapManageBacklog))
}

// getBacklog godoc
// @id getBacklog
// @Summary Истории: бэклог проекта
// @Description Возвращает истории проекта без назначенного спринта.
// @Tags Stories
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по названию"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.StoryLight} "Истории бэклога"
// @Router /api/auth/projects/{projectId}/backlog/ [get]
func (s *Services) getBacklog(c echo.Context) error {
	project := c.(ProjectContext).Project

	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.Story{}).
		Where("project_id = ?", project.Id).
		Where("sprint_id IS NULL").
		Order("created_at")
	if searchQuery != "" {
		query = query.Where("lower(title) LIKE ?", PrepareSearchRequest(searchQuery))
	}

	var stories []dao.Story
	res, err := dao.PaginationRequest(offset, limit, query, &stories)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&stories, func(st *dao.Story) dto.StoryLight { return *st.ToLightDTO() })
	return c.JSON(http.StatusOK, resp)
}

// getStoryList godoc
// @id getStoryList
// @Summary Истории: список историй эпика
// @Tags Stories
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Success 200 {array} dto.StoryLight "Истории"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/ [get]
func (s *Services) getStoryList(c echo.Context) error {
	epic := c.(EpicContext).Epic

	var stories []dao.Story
	if err := s.db.
		Where("epic_id = ?", epic.Id).
		Order("created_at").
		Find(&stories).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&stories, func(st *dao.Story) dto.StoryLight { return *st.ToLightDTO() }))
}

// createStory godoc
// @id createStory
// @Summary Истории: создание истории
// @Tags Stories
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param data body CreateStoryRequest true "Данные истории"
// @Success 200 {object} dto.Story "Созданная история"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/ [post]
func (s *Services) createStory(c echo.Context) error {
	ctx := c.(EpicContext)

	var req CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Title == "" {
		return EErrorDefined(c, apierrors.ErrStoryTitleRequired)
	}
	if req.Points < 0 {
		return EErrorDefined(c, apierrors.ErrStoryPointsNegative)
	}

	story := dao.Story{
		Id:        dao.GenUUID(),
		EpicId:    ctx.Epic.Id,
		ProjectId: ctx.Project.Id,
	}
	req.Bind(&story)

	if err := s.db.Create(&story).Error; err != nil {
		return EError(c, err)
	}

	story.Epic = &ctx.Epic
	return c.JSON(http.StatusOK, story.ToDTO())
}

// getStory godoc
// @id getStory
// @Summary Истории: получение истории
// @Tags Stories
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param storyId path string true "ID истории"
// @Success 200 {object} dto.Story "История"
// @Failure 404 {object} apierrors.DefinedError "История не найдена"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/{storyId}/ [get]
func (s *Services) getStory(c echo.Context) error {
	ctx := c.(StoryContext)
	story := ctx.Story
	story.Epic = &ctx.Epic
	return c.JSON(http.StatusOK, story.ToDTO())
}

type UpdateStoryRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *types.StoryStatus `json:"status,omitempty"`
	Points      *int               `json:"points,omitempty"`
	IsReady     *bool              `json:"is_ready,omitempty"`
}

// updateStory godoc
// @id updateStory
// @Summary Истории: обновление истории
// @Tags Stories
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param storyId path string true "ID истории"
// @Param data body UpdateStoryRequest true "Изменяемые поля"
// @Success 200 {object} dto.Story "Обновленная история"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/{storyId}/ [patch]
func (s *Services) updateStory(c echo.Context) error {
	ctx := c.(StoryContext)
	story := ctx.Story

	var req UpdateStoryRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Title != nil {
		if *req.Title == "" {
			return EErrorDefined(c, apierrors.ErrStoryTitleRequired)
		}
		story.Title = *req.Title
		fields = append(fields, "title")
	}
	if req.Description != nil {
		story.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return EErrorDefined(c, apierrors.ErrStoryStatusInvalid)
		}
		story.Status = *req.Status
		fields = append(fields, "status")
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return EErrorDefined(c, apierrors.ErrStoryPointsNegative)
		}
		story.Points = *req.Points
		fields = append(fields, "points")
	}
	if req.IsReady != nil {
		story.IsReady = *req.IsReady
		fields = append(fields, "is_ready")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&story).Select(fields).Updates(&story).Error; err != nil {
			return EError(c, err)
		}
	}

	story.Epic = &ctx.Epic
	return c.JSON(http.StatusOK, story.ToDTO())
}

// deleteStory godoc
// @id deleteStory
// @Summary Истории: удаление истории
// @Description Удаляет историю. Задачи истории остаются и отвязываются от нее.
// @Tags Stories
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param storyId path string true "ID истории"
// @Success 204 "История удалена"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/{storyId}/ [delete]
func (s *Services) deleteStory(c echo.Context) error {
	story := c.(StoryContext).Story

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&story).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// assignStorySprint godoc
// @id assignStorySprint
// @Summary Истории: назначение истории в спринт
// @Description Назначает историю в спринт или возвращает в бэклог при
// sprint_id = null. В спринт берутся только готовые истории.
// @Tags Stories
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epicId path string true "ID эпика"
// @Param storyId path string true "ID истории"
// @Param data body StorySprintRequest true "ID спринта или null"
// @Success 200 {object} dto.Story "История"
// @Failure 400 {object} apierrors.DefinedError "История не готова к спринту"
// @Failure 404 {object} apierrors.DefinedError "Спринт не найден"
// @Failure 409 {object} apierrors.DefinedError "Спринт завершен"
// @Router /api/auth/projects/{projectId}/epics/{epicId}/stories/{storyId}/sprint/ [put]
func (s *Services) assignStorySprint(c echo.Context) error {
	ctx := c.(StoryContext)
	story := ctx.Story

	var req StorySprintRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if err := s.business.AssignStoryToSprint(&story, req.SprintId); err != nil {
		return EError(c, err)
	}

	if err := s.db.
		Joins("Sprint").
		Where("stories.id = ?", story.Id).
		First(&story).Error; err != nil {
		return EError(c, err)
	}

	story.Epic = &ctx.Epic
	return c.JSON(http.StatusOK, story.ToDTO())
}
