// Доски проекта. Доска группирует спринты и хранит настройки фильтров.
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

type BoardContext struct {
	ProjectContext
	Board dao.Board
}

func (s *Services) BoardMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		boardId := c.Param("boardId")
		project := c.(ProjectContext).Project

		var board dao.Board
		if err := s.db.
			Where("project_id = ?", project.Id).
			Where("id = ?", boardId).
			First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrBoardNotFound)
			}
			return EError(c, err)
		}
		return next(BoardContext{c.(ProjectContext), board})
	}
}

func (s *Services) AddBoardServices(g *echo.Group) {
	g.GET("/boards/", s.getBoardList)
	g.POST("/boards/", s.createBoard, s.ProjectPermissionMiddleware(types.CapManageSprint))

	boardGroup := g.Group("/boards/:boardId", s.BoardMiddleware)
	boardGroup.GET("/", s.getBoard)
	boardGroup.PATCH("/", s.updateBoard, s.ProjectPermissionMiddleware(types.CapManageSprint))
	boardGroup.DELETE("/", s.deleteBoard, s.ProjectPermissionMiddleware(types.CapManageSprint))
}

// getBoardList godoc
// @id getBoardList
// @Summary Доски: список досок проекта
// @Tags Boards
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {array} dto.BoardLight "Доски"
// @Router /api/auth/projects/{projectId}/boards/ [get]
func (s *Services) getBoardList(c echo.Context) error {
	project := c.(ProjectContext).Project

	var boards []dao.Board
	if err := s.db.
		Where("project_id = ?", project.Id).
		Order("created_at").
		Find(&boards).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&boards, func(b *dao.Board) dto.BoardLight { return *b.ToLightDTO() }))
}

// createBoard godoc
// @id createBoard
// @Summary Доски: создание доски
// @Tags Boards
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body CreateBoardRequest true "Данные доски"
// @Success 200 {object} dto.Board "Созданная доска"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/boards/ [post]
func (s *Services) createBoard(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req CreateBoardRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrBoardNameRequired)
	}

	board := dao.Board{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Name:      req.Name,
		Filters:   req.Filters,
	}

	if err := s.db.Create(&board).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, board.ToDTO())
}

// getBoard godoc
// @id getBoard
// @Summary Доски: получение доски со спринтами
// @Tags Boards
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Success 200 {object} dto.Board "Доска"
// @Failure 404 {object} apierrors.DefinedError "Доска не найдена"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/ [get]
func (s *Services) getBoard(c echo.Context) error {
	board := c.(BoardContext).Board

	if err := s.db.
		Preload("Sprints").
		Where("id = ?", board.Id).
		First(&board).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, board.ToDTO())
}

type UpdateBoardRequest struct {
	Name    *string        `json:"name,omitempty"`
	Filters *types.JSONMap `json:"filters,omitempty"`
}

// updateBoard godoc
// @id updateBoard
// @Summary Доски: обновление доски
// @Tags Boards
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Param data body UpdateBoardRequest true "Изменяемые поля"
// @Success 200 {object} dto.Board "Обновленная доска"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/ [patch]
func (s *Services) updateBoard(c echo.Context) error {
	board := c.(BoardContext).Board

	var req UpdateBoardRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Name != nil {
		if *req.Name == "" {
			return EErrorDefined(c, apierrors.ErrBoardNameRequired)
		}
		board.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Filters != nil {
		board.Filters = *req.Filters
		fields = append(fields, "filters")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&board).Select(fields).Updates(&board).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, board.ToDTO())
}

// deleteBoard godoc
// @id deleteBoard
// @Summary Доски: удаление доски
// @Description Удаляет доску и ее спринты. Истории спринтов возвращаются в бэклог.
// @Tags Boards
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param boardId path string true "ID доски"
// @Success 204 "Доска удалена"
// @Router /api/auth/projects/{projectId}/boards/{boardId}/ [delete]
func (s *Services) deleteBoard(c echo.Context) error {
	board := c.(BoardContext).Board

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&board).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
