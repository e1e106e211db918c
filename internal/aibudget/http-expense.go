// Расходы проекта: подача, редактирование до обработки, согласование.
// Решение по расходу (одобрение/отклонение) финальное, повторный запрос
// возвращает конфликт.
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

type ExpenseContext struct {
	ProjectContext
	Expense dao.Expense
}

func (s *Services) ExpenseMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		project := c.(ProjectContext).Project

		var expense dao.Expense
		if err := s.db.
			Joins("BudgetItem").
			Joins("SubmittedBy").
			Joins("ApprovedBy").
			Where("expenses.project_id = ?", project.Id).
			Where("expenses.id = ?", c.Param("expenseId")).
			First(&expense).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrExpenseNotFound)
			}
			return EError(c, err)
		}
		return next(ExpenseContext{c.(ProjectContext), expense})
	}
}

func (s *Services) AddExpenseServices(g *echo.Group) {
	g.GET("/expenses/", s.getExpenseList)
	g.POST("/expenses/", s.createExpense, s.ProjectPermissionMiddleware(types.CapRecordExpense))

	expenseGroup := g.Group("/expenses/:expenseId", s.ExpenseMiddleware)
	expenseGroup.GET("/", s.getExpense)
	expenseGroup.PATCH("/", s.updateExpense, s.ProjectPermissionMiddleware(types.CapRecordExpense))
	expenseGroup.DELETE("/", s.deleteExpense, s.ProjectPermissionMiddleware(types.CapManageBudget))
	expenseGroup.POST("/approve/", s.approveExpense, s.ProjectPermissionMiddleware(types.CapApproveExpense))
	expenseGroup.POST("/reject/", s.rejectExpense, s.ProjectPermissionMiddleware(types.CapApproveExpense))
}

// getExpenseList godoc
// @id getExpenseList
// @Summary Расходы: список расходов проекта
// @Description Возвращает расходы с фильтром по статусу оплаты и пагинацией.
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param payment_status query string false "Фильтр по статусу"
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по описанию"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.Expense} "Расходы"
// @Router /api/auth/projects/{projectId}/expenses/ [get]
func (s *Services) getExpenseList(c echo.Context) error {
	project := c.(ProjectContext).Project

	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.Expense{}).
		Joins("BudgetItem").
		Joins("SubmittedBy").
		Joins("ApprovedBy").
		Where("expenses.project_id = ?", project.Id).
		Order("expenses.created_at desc")

	if status := c.QueryParam("payment_status"); status != "" {
		if !types.ExpenseStatus(status).Valid() {
			return EErrorDefined(c, apierrors.ErrExpenseNotFound)
		}
		query = query.Where("expenses.payment_status = ?", status)
	}
	if searchQuery != "" {
		query = query.Where("lower(expenses.description) LIKE ?", PrepareSearchRequest(searchQuery))
	}

	var expenses []dao.Expense
	res, err := dao.PaginationRequest(offset, limit, query, &expenses)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&expenses, func(e *dao.Expense) dto.Expense { return *e.ToDTO() })
	return c.JSON(http.StatusOK, resp)
}

// createExpense godoc
// @id createExpense
// @Summary Расходы: подача расхода
// @Description Создает расход в статусе Pending от имени текущего
// пользователя.
// @Tags Budget
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body CreateExpenseRequest true "Данные расхода"
// @Success 200 {object} dto.Expense "Созданный расход"
// @Failure 400 {object} apierrors.DefinedError "Некорректная сумма"
// @Failure 404 {object} apierrors.DefinedError "Статья бюджета не найдена"
// @Router /api/auth/projects/{projectId}/expenses/ [post]
func (s *Services) createExpense(c echo.Context) error {
	ctx := c.(ProjectContext)

	var req CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Amount <= 0 {
		return EErrorDefined(c, apierrors.ErrExpenseAmountInvalid)
	}

	if req.BudgetItemId != nil {
		itemUUID, err := uuid.FromString(*req.BudgetItemId)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrBudgetItemNotFound)
		}
		var itemExists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.BudgetItem{}).
			Where("id = ? AND project_id = ?", itemUUID, ctx.Project.Id).
			Find(&itemExists).Error; err != nil {
			return EError(c, err)
		}
		if !itemExists {
			return EErrorDefined(c, apierrors.ErrBudgetItemNotFound)
		}
	}

	expense := dao.Expense{
		Id:            dao.GenUUID(),
		ProjectId:     ctx.Project.Id,
		PaymentStatus: types.ExpensePending,
		SubmittedById: ctx.User.ID,
	}
	req.Bind(&expense)

	if err := s.db.Create(&expense).Error; err != nil {
		return EError(c, err)
	}

	if err := s.db.
		Joins("BudgetItem").
		Joins("SubmittedBy").
		Where("expenses.id = ?", expense.Id).
		First(&expense).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, expense.ToDTO())
}

// getExpense godoc
// @id getExpense
// @Summary Расходы: получение расхода
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param expenseId path string true "ID расхода"
// @Success 200 {object} dto.Expense "Расход"
// @Failure 404 {object} apierrors.DefinedError "Расход не найден"
// @Router /api/auth/projects/{projectId}/expenses/{expenseId}/ [get]
func (s *Services) getExpense(c echo.Context) error {
	expense := c.(ExpenseContext).Expense
	return c.JSON(http.StatusOK, expense.ToDTO())
}

type UpdateExpenseRequest struct {
	Amount        *float64  `json:"amount,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Description   *string   `json:"description,omitempty"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	BudgetItemId  *string   `json:"budget_item_id,omitempty"`
}

// updateExpense godoc
// @id updateExpense
// @Summary Расходы: редактирование расхода
// @Description Изменять можно только необработанный расход.
// @Tags Budget
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param expenseId path string true "ID расхода"
// @Param data body UpdateExpenseRequest true "Изменяемые поля"
// @Success 200 {object} dto.Expense "Обновленный расход"
// @Failure 409 {object} apierrors.DefinedError "Расход уже обработан"
// @Router /api/auth/projects/{projectId}/expenses/{expenseId}/ [patch]
func (s *Services) updateExpense(c echo.Context) error {
	expense := c.(ExpenseContext).Expense

	if expense.PaymentStatus != types.ExpensePending {
		return EErrorDefined(c, apierrors.ErrExpenseNotPending)
	}

	var req UpdateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return EErrorDefined(c, apierrors.ErrExpenseAmountInvalid)
		}
		expense.Amount = *req.Amount
		fields = append(fields, "amount")
	}
	if req.Category != nil {
		expense.Category = *req.Category
		fields = append(fields, "category")
	}
	if req.Description != nil {
		expense.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.PaymentMethod != nil {
		expense.PaymentMethod = *req.PaymentMethod
		fields = append(fields, "payment_method")
	}
	if req.Tags != nil {
		expense.Tags = *req.Tags
		fields = append(fields, "tags")
	}
	if req.BudgetItemId != nil {
		if *req.BudgetItemId == "" {
			expense.BudgetItemId = uuid.NullUUID{}
		} else {
			itemUUID, err := uuid.FromString(*req.BudgetItemId)
			if err != nil {
				return EErrorDefined(c, apierrors.ErrBudgetItemNotFound)
			}
			var itemExists bool
			if err := s.db.Select("count(*) > 0").
				Model(&dao.BudgetItem{}).
				Where("id = ? AND project_id = ?", itemUUID, expense.ProjectId).
				Find(&itemExists).Error; err != nil {
				return EError(c, err)
			}
			if !itemExists {
				return EErrorDefined(c, apierrors.ErrBudgetItemNotFound)
			}
			expense.BudgetItemId = uuid.NullUUID{UUID: itemUUID, Valid: true}
		}
		fields = append(fields, "budget_item_id")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&expense).Select(fields).Updates(&expense).Error; err != nil {
			return EError(c, err)
		}
	}

	if err := s.db.
		Joins("BudgetItem").
		Joins("SubmittedBy").
		Where("expenses.id = ?", expense.Id).
		First(&expense).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, expense.ToDTO())
}

// deleteExpense godoc
// @id deleteExpense
// @Summary Расходы: удаление расхода
// @Description Удалять можно только необработанный расход.
// @Tags Budget
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param expenseId path string true "ID расхода"
// @Success 204 "Расход удален"
// @Failure 409 {object} apierrors.DefinedError "Расход уже обработан"
// @Router /api/auth/projects/{projectId}/expenses/{expenseId}/ [delete]
func (s *Services) deleteExpense(c echo.Context) error {
	expense := c.(ExpenseContext).Expense

	if expense.PaymentStatus != types.ExpensePending {
		return EErrorDefined(c, apierrors.ErrExpenseNotPending)
	}

	if err := s.db.Delete(&expense).Error; err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// approveExpense godoc
// @id approveExpense
// @Summary Расходы: одобрение расхода
// @Description Переводит расход в статус Approved, фиксирует согласующего и
// время решения. Одобренная сумма учитывается в потраченном бюджете проекта.
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param expenseId path string true "ID расхода"
// @Success 200 {object} dto.Expense "Одобренный расход"
// @Failure 409 {object} apierrors.DefinedError "Расход уже обработан"
// @Router /api/auth/projects/{projectId}/expenses/{expenseId}/approve/ [post]
func (s *Services) approveExpense(c echo.Context) error {
	ctx := c.(ExpenseContext)
	expense := ctx.Expense

	if err := s.business.ApproveExpense(&expense, *ctx.User); err != nil {
		return EError(c, err)
	}

	if err := s.db.
		Joins("BudgetItem").
		Joins("SubmittedBy").
		Joins("ApprovedBy").
		Where("expenses.id = ?", expense.Id).
		First(&expense).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, expense.ToDTO())
}

// rejectExpense godoc
// @id rejectExpense
// @Summary Расходы: отклонение расхода
// @Description Переводит расход в статус Rejected. Отклоненный расход не
// влияет на бюджет проекта.
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param expenseId path string true "ID расхода"
// @Success 200 {object} dto.Expense "Отклоненный расход"
// @Failure 409 {object} apierrors.DefinedError "Расход уже обработан"
// @Router /api/auth/projects/{projectId}/expenses/{expenseId}/reject/ [post]
func (s *Services) rejectExpense(c echo.Context) error {
	ctx := c.(ExpenseContext)
	expense := ctx.Expense

	if err := s.business.RejectExpense(&expense, *ctx.User); err != nil {
		return EError(c, err)
	}

	if err := s.db.
		Joins("BudgetItem").
		Joins("SubmittedBy").
		Joins("ApprovedBy").
		Where("expenses.id = ?", expense.Id).
		First(&expense).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, expense.ToDTO())
}
