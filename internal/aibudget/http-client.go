// Управление клиентами компании: справочник заказчиков, на которых
// ссылаются проекты.
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

type ClientContext struct {
	AuthContext
	Client dao.Client
}

func (s *Services) ClientMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		clientId := c.Param("clientId")

		var client dao.Client
		if err := s.db.Where("id = ?", clientId).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrClientNotFound)
			}
			return EError(c, err)
		}
		return next(ClientContext{c.(AuthContext), client})
	}
}

func (s *Services) AddClientServices(g *echo.Group) {
	clientsGroup := g.Group("clients/", RequireCapability(types.CapManageClients))
	clientsGroup.GET("", s.getClientList)
	clientsGroup.POST("", s.createClient)

	clientGroup := clientsGroup.Group(":clientId/", s.ClientMiddleware)
	clientGroup.GET("", s.getClient)
	clientGroup.PATCH("", s.updateClient)
	clientGroup.DELETE("", s.deleteClient)
}

// getClientList godoc
// @id getClientList
// @Summary Клиенты: список клиентов
// @Tags Clients
// @Produce json
// @Security ApiKeyAuth
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по имени и email"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.Client} "Клиенты"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав"
// @Router /api/auth/clients/ [get]
func (s *Services) getClientList(c echo.Context) error {
	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.Client{}).Order("name")
	if searchQuery != "" {
		search := PrepareSearchRequest(searchQuery)
		query = query.Where("lower(name) LIKE ? OR lower(email) LIKE ?", search, search)
	}

	var clients []dao.Client
	res, err := dao.PaginationRequest(offset, limit, query, &clients)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&clients, func(cl *dao.Client) dto.Client { return *cl.ToDTO() })
	return c.JSON(http.StatusOK, resp)
}

// createClient godoc
// @id createClient
// @Summary Клиенты: создание клиента
// @Tags Clients
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param data body CreateClientRequest true "Данные клиента"
// @Success 200 {object} dto.Client "Созданный клиент"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/clients/ [post]
func (s *Services) createClient(c echo.Context) error {
	var req CreateClientRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrClientNameRequired)
	}

	client := dao.Client{Id: dao.GenUUID()}
	req.Bind(&client)

	if err := s.db.Create(&client).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, client.ToDTO())
}

// getClient godoc
// @id getClient
// @Summary Клиенты: получение клиента
// @Tags Clients
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path string true "ID клиента"
// @Success 200 {object} dto.Client "Клиент"
// @Failure 404 {object} apierrors.DefinedError "Клиент не найден"
// @Router /api/auth/clients/{clientId}/ [get]
func (s *Services) getClient(c echo.Context) error {
	client := c.(ClientContext).Client
	return c.JSON(http.StatusOK, client.ToDTO())
}

type UpdateClientRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Status *string `json:"status,omitempty"`
}

// updateClient godoc
// @id updateClient
// @Summary Клиенты: обновление клиента
// @Tags Clients
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path string true "ID клиента"
// @Param data body UpdateClientRequest true "Изменяемые поля"
// @Success 200 {object} dto.Client "Обновленный клиент"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/clients/{clientId}/ [patch]
func (s *Services) updateClient(c echo.Context) error {
	client := c.(ClientContext).Client

	var req UpdateClientRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	var fields []string
	if req.Name != nil {
		if *req.Name == "" {
			return EErrorDefined(c, apierrors.ErrClientNameRequired)
		}
		client.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Email != nil {
		client.Email = *req.Email
		fields = append(fields, "email")
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
		fields = append(fields, "phone")
	}
	if req.Status != nil {
		client.Status = *req.Status
		fields = append(fields, "status")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&client).Select(fields).Updates(&client).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, client.ToDTO())
}

// deleteClient godoc
// @id deleteClient
// @Summary Клиенты: удаление клиента
// @Description Удаляет клиента, если на него не ссылается ни один проект.
// @Tags Clients
// @Security ApiKeyAuth
// @Param clientId path string true "ID клиента"
// @Success 204 "Клиент удален"
// @Failure 409 {object} apierrors.DefinedError "Клиент связан с проектами"
// @Router /api/auth/clients/{clientId}/ [delete]
func (s *Services) deleteClient(c echo.Context) error {
	client := c.(ClientContext).Client

	var referenced bool
	if err := s.db.Select("count(*) > 0").
		Model(&dao.Project{}).
		Where("client_id = ?", client.Id).
		Find(&referenced).Error; err != nil {
		return EError(c, err)
	}
	if referenced {
		return EErrorDefined(c, apierrors.ErrClientHasProjects)
	}

	if err := s.db.Delete(&client).Error; err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
