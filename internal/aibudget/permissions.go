// Проверка прав доступа на основе ролей и наборов capability.
package aibudget

import (
	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/labstack/echo/v4"
)

// EffectiveRole возвращает роль пользователя в проекте. Глобальный Admin
// получает права администратора в любом проекте.
func (ctx ProjectContext) EffectiveRole() types.Role {
	if ctx.User.Role == types.AdminRole {
		return types.AdminRole
	}
	if ctx.Project.CurrentUserMembership != nil {
		return ctx.Project.CurrentUserMembership.Role
	}
	return 0
}

// RequireCapability проверяет право на уровне системной роли пользователя.
// Используется для маршрутов вне контекста проекта.
func RequireCapability(cap types.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(AuthContext).User
			if !user.Role.Can(cap) {
				return EErrorDefined(c, apierrors.ErrNotEnoughRights)
			}
			return next(c)
		}
	}
}

// Контекст, привязанный к проекту: сам ProjectContext и все контексты
// сущностей, которые его встраивают.
type projectScope interface {
	echo.Context
	EffectiveRole() types.Role
}

// ProjectPermissionMiddleware проверяет право в рамках проекта по роли
// участника.
func (s *Services) ProjectPermissionMiddleware(cap types.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope, ok := c.(projectScope)
			if !ok {
				return EErrorDefined(c, apierrors.ErrNotEnoughRights)
			}
			if !scope.EffectiveRole().Can(cap) {
				return EErrorDefined(c, apierrors.ErrNotEnoughRights)
			}
			return next(c)
		}
	}
}
