// Аутентификация и авторизация пользователей AIBudget.
// Обеспечивает безопасный доступ к ресурсам, используя JWT и куки.
//
// Основные возможности:
//   - Аутентификация пользователей по email и паролю.
//   - Генерация и проверка токенов доступа (JWT) с поддержкой обновления.
//   - Блокировка отозванных refresh-токенов через Sessions Manager.
//   - Поддержка схем Bearer и Cookies.
package aibudget

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/sessions"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Authentication struct {
	db              *gorm.DB
	secret          []byte
	sessionsManager *sessions.SessionsManager
}

type AuthContext struct {
	echo.Context
	User         *dao.User
	AccessToken  *Token
	RefreshToken *Token
}

type AuthConfig struct {
	Secret         []byte
	DB             *gorm.DB
	SessionManager *sessions.SessionsManager
	Skipper        middleware.Skipper
}

func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == "OPTIONS" {
				return c.NoContent(http.StatusOK)
			}

			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			var refreshToken *Token
			var accessToken *Token

			schema, tokenString, ok := strings.Cut(c.Request().Header.Get("Authorization"), " ")
			if !ok {
				// Cookie tokens
				if accessCookie, err := c.Cookie("access_token"); err == nil && accessCookie != nil {
					accessToken = new(Token)
					accessToken.SignedString = accessCookie.Value
					accessToken.Type = "access"
				}

				if refreshCookie, err := c.Cookie("refresh_token"); err == nil && refreshCookie != nil {
					refreshToken = new(Token)
					refreshToken.SignedString = refreshCookie.Value
					refreshToken.Type = "refresh"
				}

				if refreshToken == nil && accessToken == nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			} else {
				accessToken = new(Token)
				accessToken.SignedString = strings.TrimSpace(tokenString)
				accessToken.Type = strings.TrimSpace(schema)
			}

			keyFunc := func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return config.Secret, nil
			}

			var accessError error
			if accessToken != nil {
				accessToken.JWT, accessError = jwt.Parse(accessToken.SignedString, keyFunc)
			}

			if refreshToken != nil {
				var refreshError error
				refreshToken.JWT, refreshError = jwt.Parse(refreshToken.SignedString, keyFunc)
				if refreshError != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}

			var user *dao.User
			var err error

			// Prolong if expired
			if errors.Is(accessError, jwt.ErrTokenExpired) || accessToken == nil {
				accessToken, user, err = config.tokenProlong(c, refreshToken)
				if accessToken == nil || user == nil {
					return err
				}
			} else if accessError != nil {
				return EErrorDefined(c, apierrors.ErrTokenInvalid)
			} else {
				// Check if token not blacklisted
				blacklisted, err := config.SessionManager.IsTokenBlacklisted(accessToken.JWT.Signature)
				if err != nil {
					return EError(c, err)
				}
				if blacklisted {
					return EErrorDefined(c, apierrors.ErrTokenExpired)
				}

				claims, ok := accessToken.JWT.Claims.(jwt.MapClaims)
				if !ok || !accessToken.JWT.Valid {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}

				userId, ok := claims["user_id"].(string)
				if !ok {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}

				user = new(dao.User)
				if err := config.DB.Where("id = ?", userId).First(user).Error; err != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}

			if user == nil {
				return EError(c, errors.New("nil user"))
			}

			if user.Status != "active" {
				return EErrorDefined(c, apierrors.ErrTokenExpired)
			}

			if err := dao.UpdateUserLastActivityTime(config.DB, user); err != nil {
				EError(c, err)
			}

			return next(AuthContext{c, user, accessToken, refreshToken})
		}
	}
}

func (a *AuthConfig) tokenProlong(c echo.Context, token *Token) (*Token, *dao.User, error) {
	if token == nil || token.JWT == nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrRefreshTokenRequired)
	}

	blacklisted, err := a.SessionManager.IsTokenBlacklisted(token.JWT.Signature)
	if err != nil {
		return nil, nil, EError(c, err)
	}
	if blacklisted {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenExpired)
	}

	// Blacklist old refresh token
	if err := a.SessionManager.BlacklistToken(token.JWT.Signature); err != nil {
		return nil, nil, EError(c, err)
	}

	claims, ok := token.JWT.Claims.(jwt.MapClaims)
	if !ok || !token.JWT.Valid {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	userId, ok := claims["user_id"].(string)
	if !ok {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	var user dao.User
	if err := a.DB.Where("id = ?", userId).First(&user).Error; err != nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	accessToken, refreshToken, err := createAccessToken(user.ID)
	if err != nil {
		return nil, nil, EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return accessToken, &user, nil
}

func AddAuthenticationServices(db *gorm.DB, e *echo.Echo, secret []byte, sessionManager *sessions.SessionsManager) *Authentication {
	ret := &Authentication{db, secret, sessionManager}

	e.POST("api/sign-in/", ret.emailLogin)
	e.POST("api/sign-up/", ret.signUp)
	e.POST("api/refresh/", ret.refreshToken)
	return ret
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// emailLogin godoc
// @id emailLogin
// @Summary Пользователи (управление доступом): вход пользователя
// @Description Аутентифицирует пользователя с использованием email и пароля
// @Tags Users
// @Accept json
// @Produce json
// @Param data body LoginRequest true "Данные для входа пользователя"
// @Success 200 {object} map[string]interface{} "Токены доступа и информация о пользователе"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные запроса"
// @Failure 401 {object} apierrors.DefinedError "Неудачный вход в систему"
// @Failure 500 {object} apierrors.DefinedError "Внутренняя ошибка сервера"
// @Router /api/sign-in [post]
func (a *Authentication) emailLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(req.Email)

	if req.Email == "" || req.Password == "" {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}

	var user dao.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrFailedLogin)
		}
		return EError(c, err)
	}

	if user.Status != "active" {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	if !user.CheckPassword(req.Password) {
		time.Sleep(time.Second)
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	if err := dao.UpdateUserLastActivityTime(a.db, &user); err != nil {
		return EError(c, err)
	}

	accessToken, refreshToken, err := createAccessToken(user.ID)
	if err != nil {
		return EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user.ToDTO(),
	})
}

type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name" validate:"omitempty,fullName"`
	LastName  string `json:"last_name" validate:"omitempty,fullName"`
}

// signUp godoc
// @id signUp
// @Summary Пользователи (управление доступом): регистрация пользователя
// @Description Создает нового пользователя с ролью Viewer
// @Tags Users
// @Accept json
// @Produce json
// @Param data body SignUpRequest true "Данные нового пользователя"
// @Success 200 {object} map[string]interface{} "Токены доступа и информация о пользователе"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные запроса"
// @Failure 403 {object} apierrors.DefinedError "Регистрация отключена"
// @Failure 409 {object} apierrors.DefinedError "Пользователь уже существует"
// @Router /api/sign-up [post]
func (a *Authentication) signUp(c echo.Context) error {
	if !cfg.SignUpEnable {
		return EErrorDefined(c, apierrors.ErrSignupDisabled)
	}

	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(req.Email)
	if req.Email == "" || !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrUserEmailRequired)
	}
	if len(req.Password) < 8 {
		return EErrorDefined(c, apierrors.ErrPasswordTooWeak)
	}
	if err := c.Validate(req); err != nil {
		return EErrorDefined(c, apierrors.ErrUserRequestValidate)
	}

	user := dao.User{
		ID:        dao.GenID(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      types.ViewerRole,
	}
	user.SetPassword(req.Password)

	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrUserAlreadyExist)
		}
		return EError(c, err)
	}

	slog.Info("New user signed up", "user", user.Email)

	accessToken, refreshToken, err := createAccessToken(user.ID)
	if err != nil {
		return EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user.ToDTO(),
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken godoc
// @id refreshToken
// @Summary Пользователи (управление доступом): обновление пары токенов
// @Description Отзывает переданный refresh-токен и выдает новую пару токенов.
// @Tags Users
// @Accept json
// @Produce json
// @Param data body RefreshRequest false "Refresh-токен, если не передан кукой"
// @Success 200 {object} map[string]interface{} "Новая пара токенов"
// @Failure 401 {object} apierrors.DefinedError "Токен отозван или некорректен"
// @Router /api/refresh [post]
func (a *Authentication) refreshToken(c echo.Context) error {
	tokenString := ""
	if refreshCookie, err := c.Cookie("refresh_token"); err == nil && refreshCookie != nil {
		tokenString = refreshCookie.Value
	}
	if tokenString == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err == nil {
			tokenString = req.RefreshToken
		}
	}
	if tokenString == "" {
		return EErrorDefined(c, apierrors.ErrRefreshTokenRequired)
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid || claims["token_type"] != "refresh" {
		return EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	conf := AuthConfig{Secret: a.secret, DB: a.db, SessionManager: a.sessionsManager}
	accessToken, user, err := conf.tokenProlong(c, &Token{
		JWT:          parsed,
		SignedString: tokenString,
		Type:         "refresh",
	})
	if accessToken == nil || user == nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token": accessToken.SignedString,
		"user":         user.ToDTO(),
	})
}

// signOut godoc
// @id signOut
// @Summary Пользователи (управление доступом): выход пользователя
// @Description Отзывает токены текущей сессии и очищает куки
// @Tags Users
// @Security ApiKeyAuth
// @Success 200 "Сессия завершена"
// @Failure 401 {object} apierrors.DefinedError "Необходима авторизация"
// @Router /api/auth/sign-out/ [post]
func (s *Services) signOut(c echo.Context) error {
	ctx := c.(AuthContext)

	if ctx.AccessToken != nil && ctx.AccessToken.JWT != nil {
		if err := s.sessionsManager.BlacklistToken(ctx.AccessToken.JWT.Signature); err != nil {
			return EError(c, err)
		}
	}
	if ctx.RefreshToken != nil && ctx.RefreshToken.JWT != nil {
		if err := s.sessionsManager.BlacklistToken(ctx.RefreshToken.JWT.Signature); err != nil {
			return EError(c, err)
		}
	}

	clearAuthCookies(c)
	return c.NoContent(http.StatusOK)
}
