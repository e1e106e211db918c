// Управление пользователями: профиль текущего пользователя и
// администрирование учетных записей.
package aibudget

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/aisa-it/aibudget/internal/aibudget/utils"
	"github.com/labstack/echo/v4"
	"github.com/sethvargo/go-password/password"
	"gorm.io/gorm"
)

type UserContext struct {
	AuthContext
	RequestedUser dao.User
}

func (s *Services) UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userId := c.Param("userId")

		var user dao.User
		if err := s.db.Where("id = ?", userId).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrUserNotFound)
			}
			return EError(c, err)
		}
		return next(UserContext{c.(AuthContext), user})
	}
}

func (s *Services) AddUserServices(g *echo.Group) {
	g.GET("users/me/", s.getMe)
	g.PATCH("users/me/", s.updateMe)

	adminGroup := g.Group("users/", RequireCapability(types.CapManageUsers))
	adminGroup.GET("", s.getUserList)
	adminGroup.POST("", s.createUser)

	userGroup := adminGroup.Group(":userId/", s.UserMiddleware)
	userGroup.GET("", s.getUser)
	userGroup.PATCH("", s.updateUser)
	userGroup.DELETE("", s.deleteUser)
}

// getMe godoc
// @id getMe
// @Summary Пользователи: профиль текущего пользователя
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.User "Профиль пользователя"
// @Failure 401 {object} apierrors.DefinedError "Необходима авторизация"
// @Router /api/auth/users/me/ [get]
func (s *Services) getMe(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(AuthContext).User.ToDTO())
}

type UpdateMeRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,fullName"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,fullName"`
	Password  *string `json:"password,omitempty"`
}

// updateMe godoc
// @id updateMe
// @Summary Пользователи: обновление собственного профиля
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param data body UpdateMeRequest true "Изменяемые поля"
// @Success 200 {object} dto.User "Обновленный профиль"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/users/me/ [patch]
func (s *Services) updateMe(c echo.Context) error {
	user := c.(AuthContext).User

	var req UpdateMeRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(req); err != nil {
		return EErrorDefined(c, apierrors.ErrUserRequestValidate)
	}

	var fields []string
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
		fields = append(fields, "first_name")
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
		fields = append(fields, "last_name")
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return EErrorDefined(c, apierrors.ErrPasswordTooWeak)
		}
		user.SetPassword(*req.Password)
		fields = append(fields, "password")
	}

	if len(fields) > 0 {
		if err := s.db.Model(user).Select(fields).Updates(user).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, user.ToDTO())
}

// getUserList godoc
// @id getUserList
// @Summary Пользователи (админ): список пользователей
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по email и имени"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.User} "Пользователи"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав"
// @Router /api/auth/users/ [get]
func (s *Services) getUserList(c echo.Context) error {
	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.User{}).Order("created_at")
	if searchQuery != "" {
		search := PrepareSearchRequest(searchQuery)
		query = query.Where(
			"lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?",
			search, search, search)
	}

	var users []dao.User
	res, err := dao.PaginationRequest(offset, limit, query, &users)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&users, func(u *dao.User) dto.User { return *u.ToDTO() })
	return c.JSON(http.StatusOK, resp)
}

// createUser godoc
// @id createUser
// @Summary Пользователи (админ): создание пользователя
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param data body CreateUserRequest true "Данные нового пользователя"
// @Success 200 {object} dto.User "Созданный пользователь"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Failure 409 {object} apierrors.DefinedError "Email уже занят"
// @Router /api/auth/users/ [post]
func (s *Services) createUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(req.Email)
	if req.Email == "" || !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrUserEmailRequired)
	}
	if !req.Role.Valid() {
		return EErrorDefined(c, apierrors.ErrUserRoleInvalid)
	}
	if err := c.Validate(req); err != nil {
		return EErrorDefined(c, apierrors.ErrUserRequestValidate)
	}

	pass := req.Password
	if pass == "" {
		var err error
		pass, err = password.Generate(16, 4, 0, false, false)
		if err != nil {
			return EError(c, err)
		}
	} else if len(pass) < 8 {
		return EErrorDefined(c, apierrors.ErrPasswordTooWeak)
	}

	user := dao.User{
		ID:        dao.GenID(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	user.SetPassword(pass)

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrUserAlreadyExist)
		}
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, user.ToDTO())
}

// getUser godoc
// @id getUser
// @Summary Пользователи (админ): получение пользователя
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Param userId path string true "ID пользователя"
// @Success 200 {object} dto.User "Пользователь"
// @Failure 404 {object} apierrors.DefinedError "Пользователь не найден"
// @Router /api/auth/users/{userId}/ [get]
func (s *Services) getUser(c echo.Context) error {
	user := c.(UserContext).RequestedUser
	return c.JSON(http.StatusOK, user.ToDTO())
}

type UpdateUserRequest struct {
	FirstName *string     `json:"first_name,omitempty" validate:"omitempty,fullName"`
	LastName  *string     `json:"last_name,omitempty" validate:"omitempty,fullName"`
	Role      *types.Role `json:"role,omitempty"`
	Status    *string     `json:"status,omitempty"`
}

// updateUser godoc
// @id updateUser
// @Summary Пользователи (админ): обновление пользователя
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param userId path string true "ID пользователя"
// @Param data body UpdateUserRequest true "Изменяемые поля"
// @Success 200 {object} dto.User "Обновленный пользователь"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Router /api/auth/users/{userId}/ [patch]
func (s *Services) updateUser(c echo.Context) error {
	user := c.(UserContext).RequestedUser

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(req); err != nil {
		return EErrorDefined(c, apierrors.ErrUserRequestValidate)
	}

	var fields []string
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
		fields = append(fields, "first_name")
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
		fields = append(fields, "last_name")
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return EErrorDefined(c, apierrors.ErrUserRoleInvalid)
		}
		user.Role = *req.Role
		fields = append(fields, "role")
	}
	if req.Status != nil {
		user.Status = *req.Status
		fields = append(fields, "status")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&user).Select(fields).Updates(&user).Error; err != nil {
			return EError(c, err)
		}
	}

	return c.JSON(http.StatusOK, user.ToDTO())
}

// deleteUser godoc
// @id deleteUser
// @Summary Пользователи (админ): удаление пользователя
// @Description Удаляет учетную запись. Собственную запись удалить нельзя.
// @Tags Users
// @Security ApiKeyAuth
// @Param userId path string true "ID пользователя"
// @Success 204 "Пользователь удален"
// @Failure 400 {object} apierrors.DefinedError "Нельзя удалить себя"
// @Router /api/auth/users/{userId}/ [delete]
func (s *Services) deleteUser(c echo.Context) error {
	ctx := c.(UserContext)

	if ctx.RequestedUser.ID == ctx.User.ID {
		return EErrorDefined(c, apierrors.ErrCannotDeleteSelf)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", ctx.RequestedUser.ID).
			Delete(&dao.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ctx.RequestedUser).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
