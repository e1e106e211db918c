// Статьи бюджета проекта. Сводка по бюджету отдается на уровне проекта
// (см. http-project.go), здесь - только управление статьями.
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

type BudgetItemContext struct {
	ProjectContext
	BudgetItem dao.BudgetItem
}

func (s *Services) BudgetItemMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		project := c.(ProjectContext).Project

		var item dao.BudgetItem
		if err := s.db.
			Where("project_id = ?", project.Id).
			Where("id = ?", c.Param("budgetItemId")).
			First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrBudgetItemNotFound)
			}
			return EError(c, err)
		}
		return next(BudgetItemContext{c.(ProjectContext), item})
	}
}

func (s *Services) AddBudgetServices(g *echo.Group) {
	g.GET("/budget-items/", s.getBudgetItemList)
	g.POST("/budget-items/", s.createBudgetItem, s.ProjectPermissionMiddleware(types.CapManageBudget))

	itemGroup := g.Group("/budget-items/:budgetItemId", s.BudgetItemMiddleware)
	itemGroup.GET("/", s.getBudgetItem)
	itemGroup.PATCH("/", s.updateBudgetItem, s.ProjectPermissionMiddleware(types.CapManageBudget))
	itemGroup.DELETE("/", s.deleteBudgetItem, s.ProjectPermissionMiddleware(types.CapManageBudget))
}

// getBudgetItemList godoc
// @id getBudgetItemList
// @Summary Бюджет: список статей бюджета проекта
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {array} dto.BudgetItem "Статьи бюджета"
// @Router /api/auth/projects/{projectId}/budget-items/ [get]
func (s *Services) getBudgetItemList(c echo.Context) error {
	project := c.(ProjectContext).Project

	var items []dao.BudgetItem
	if err := s.db.
		Where("project_id = ?", project.Id).
		Order("created_at").
		Find(&items).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&items, func(bi *dao.BudgetItem) dto.BudgetItem { return *bi.ToDTO() }))
}

// createBudgetItem godoc
// @id createBudgetItem
// @Summary Бюджет: создание статьи бюджета
// @Tags Budget
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body CreateBudgetItemRequest true "Данные статьи"
// @Success 200 {object} dto.BudgetItem "Созданная статья"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/budget-items/ [post]
func (s *Services) createBudgetItem(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req CreateBudgetItemRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrBudgetItemNameRequired)
	}
	if req.Amount < 0 {
		return EErrorDefined(c, apierrors.ErrBudgetAmountNegative)
	}

	item := dao.BudgetItem{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
	}
	req.Bind(&item)

	if err := s.db.Create(&item).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, item.ToDTO())
}

// getBudgetItem godoc
// @id getBudgetItem
// @Summary Бюджет: получение статьи бюджета
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param budgetItemId path string true "ID статьи бюджета"
// @Success 200 {object} dto.BudgetItem "Статья бюджета"
// @Failure 404 {object} apierrors.DefinedError "Статья не найдена"
// @Router /api/auth/projects/{projectId}/budget-items/{budgetItemId}/ [get]
func (s *Services) getBudgetItem(c echo.Context) error {
	budgetItem := c.(BudgetItemContext).BudgetItem
	return c.JSON(http.StatusOK, budgetItem.ToDTO())
}

type UpdateBudgetItemRequest struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
}

// updateBudgetItem godoc
// @id updateBudgetItem
// @Summary Бюджет: обновление статьи бюджета
// @Tags Budget
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param budgetItemId path string true "ID статьи бюджета"
// @Param data body UpdateBudgetItemRequest true "Изменяемые поля"
// @Success 200 {object} dto.BudgetItem "Обновленная статья"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/projects/{projectId}/budget-items/{budgetItemId}/ [patch]
func (s *Services) updateBudgetItem(c echo.Context) error {
	item := c.(BudgetItemContext).BudgetItem

	var req UpdateBudgetItemRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Name != nil {
		if *req.Name == "" {
			return EErrorDefined(c, apierrors.ErrBudgetItemNameRequired)
		}
		item.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Category != nil {
		item.Category = *req.Category
		fields = append(fields, "category")
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			return EErrorDefined(c, apierrors.ErrBudgetAmountNegative)
		}
		item.Amount = *req.Amount
		fields = append(fields, "amount")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&item).Select(fields).Updates(&item).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, item.ToDTO())
}

// deleteBudgetItem godoc
// @id deleteBudgetItem
// @Summary Бюджет: удаление статьи бюджета
// @Description Удаляет статью. Расходы, ссылавшиеся на нее, остаются без
// привязки к статье.
// @Tags Budget
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param budgetItemId path string true "ID статьи бюджета"
// @Success 204 "Статья удалена"
// @Router /api/auth/projects/{projectId}/budget-items/{budgetItemId}/ [delete]
func (s *Services) deleteBudgetItem(c echo.Context) error {
	item := c.(BudgetItemContext).BudgetItem

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&item).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
