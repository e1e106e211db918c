// Пакет aibudget предоставляет основные компоненты управления проектами и
// бюджетом. Он включает в себя функциональность для работы с пользователями,
// клиентами, проектами, досками, спринтами, задачами и расходами, а также
// API для фронтенда.
//
// Основные возможности:
//   - Управление проектами, участниками и клиентами компании.
//   - Планирование работ: эпики, истории, спринты, задачи и их зависимости.
//   - Учет бюджета: статьи бюджета, расходы и их согласование.
//   - Вложения к сущностям в объектном хранилище.
package aibudget

// @title AIBudget API
// @version 1.0
// @description Project and budget management API.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @BasePath /
// @query.collection.format multi
import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/business"
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/cronmanager"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	filestorage "github.com/aisa-it/aibudget/internal/aibudget/file-storage"
	"github.com/aisa-it/aibudget/internal/aibudget/maintenance"
	"github.com/aisa-it/aibudget/internal/aibudget/notifications"
	"github.com/aisa-it/aibudget/internal/aibudget/sessions"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-password/password"
	"gorm.io/gorm"
)

type Services struct {
	db              *gorm.DB
	storage         filestorage.FileStorage
	emailService    *notifications.EmailService
	sessionsManager *sessions.SessionsManager

	business *business.Business
}

var cfg *config.Config
var appVersion string

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "AIBudget")
		return next(c)
	}
}

func Server(db *gorm.DB, c *config.Config, version string) {
	cfg = c
	appVersion = version

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	storage, err := filestorage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucketName)
	if err != nil {
		slog.Error("Fail init Minio connection", "err", err)
		os.Exit(1)
	}

	dao.Config = cfg
	dao.FileStorage = storage

	sm := sessions.NewSessionsManager(cfg, types.RefreshTokenExpiresPeriod+time.Hour)
	es := notifications.NewEmailService(cfg)
	bl := business.NewBL(db, cfg, es)

	jobRegistry := cronmanager.JobRegistry{
		"assets_clean": cronmanager.Job{
			Func:     maintenance.NewAssetCleaner(db, storage).CleanAssets,
			Schedule: "0 1 * * *", // daily at 01:00
		},
		"budget_reconcile": cronmanager.Job{
			Func:     maintenance.NewBudgetReconciler(db).Reconcile,
			Schedule: "0 2 * * *", // daily at 02:00
		},
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}

	s := &Services{
		db:              db,
		storage:         storage,
		emailService:    es,
		sessionsManager: sm,
		business:        bl,
	}

	cronManager.Start()

	// Create a channel to handle termination signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		es.Stop()
		os.Exit(0)
	}()

	createDefaultAdmin(db)

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "5M",
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/attachments/")
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
	}))
	e.Use(echoprometheus.NewMiddleware("aibudget"))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	AddAuthenticationServices(db, e, []byte(cfg.SecretKey), sm)

	apiGroup := e.Group("/api/")

	authGroup := apiGroup.Group("auth/",
		AuthMiddleware(AuthConfig{
			Secret:         []byte(cfg.SecretKey),
			DB:             db,
			SessionManager: sm,
		}),
	)

	authGroup.POST("sign-out/", s.signOut)

	s.AddUserServices(authGroup)
	s.AddClientServices(authGroup)
	s.AddProjectServices(authGroup)

	// Version endpoint
	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version": version,
			"sign_up": cfg.SignUpEnable,
		})
	})

	// Health endpoint
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aibudget",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":2112"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(":8080"); err != nil {
		slog.Error("Server fail", "err", err)
	}
}

// Проверка email на корректность
func ValidateEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Генерация пары токенов доступа
func createAccessToken(userId string) (*Token, *Token, error) {
	ta, err := GenJwtToken([]byte(cfg.SecretKey), "access", userId)
	if err != nil {
		return nil, nil, err
	}

	tr, err := GenJwtToken([]byte(cfg.SecretKey), "refresh", userId)
	if err != nil {
		return nil, nil, err
	}
	return ta, tr, err
}

func setAuthCookies(c echo.Context, accessToken *Token, refreshToken *Token) {
	accessCookie := new(http.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = accessToken.SignedString
	accessCookie.HttpOnly = true
	accessCookie.Secure = true
	accessCookie.Path = "/"
	accessCookie.SameSite = http.SameSiteNoneMode
	accessCookie.Expires = time.Now().Add(types.AccessTokenExpiresPeriod)
	c.SetCookie(accessCookie)

	refreshCookie := new(http.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = refreshToken.SignedString
	refreshCookie.HttpOnly = true
	refreshCookie.Secure = true
	refreshCookie.Path = "/"
	refreshCookie.SameSite = http.SameSiteNoneMode
	refreshCookie.Expires = time.Now().Add(types.RefreshTokenExpiresPeriod)
	c.SetCookie(refreshCookie)
}

func clearAuthCookies(c echo.Context) {
	accessCookie := new(http.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = ""
	accessCookie.HttpOnly = true
	accessCookie.Secure = true
	accessCookie.Path = "/"
	accessCookie.SameSite = http.SameSiteNoneMode
	accessCookie.MaxAge = -1
	c.SetCookie(accessCookie)

	refreshCookie := new(http.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = ""
	refreshCookie.HttpOnly = true
	refreshCookie.Secure = true
	refreshCookie.Path = "/"
	refreshCookie.SameSite = http.SameSiteNoneMode
	refreshCookie.MaxAge = -1
	c.SetCookie(refreshCookie)
}

type Token struct {
	JWT          *jwt.Token
	SignedString string
	Type         string
}

// Генерация JWT ключа
func GenJwtToken(secret []byte, tokenType string, userid string) (*Token, error) {
	u, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"exp":        jwt.NewNumericDate(time.Now().Add(types.AccessTokenExpiresPeriod)),
		"iat":        jwt.NewNumericDate(time.Now()),
		"jti":        fmt.Sprintf("%x", u),
		"token_type": tokenType,
		"user_id":    userid,
	}
	if tokenType == "refresh" {
		claims["exp"] = jwt.NewNumericDate(time.Now().Add(types.RefreshTokenExpiresPeriod))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString(secret)
	if err != nil {
		return nil, err
	}

	// Waiting for PR https://github.com/golang-jwt/jwt/pull/417
	sigStr := signedString[strings.LastIndex(signedString, ".")+1:]
	sig, err := base64.RawURLEncoding.DecodeString(sigStr)
	if err != nil {
		return nil, err
	}
	token.Signature = sig

	return &Token{
		JWT:          token,
		SignedString: signedString,
		Type:         tokenType,
	}, nil
}

// Создает администратора по умолчанию, если в системе нет ни одного
// пользователя. Пароль генерируется и пишется в лог один раз.
func createDefaultAdmin(db *gorm.DB) {
	var count int64
	if err := db.Model(&dao.User{}).Count(&count).Error; err != nil {
		slog.Error("Count users", "err", err)
		return
	}
	if count > 0 {
		return
	}

	email := cfg.DefaultUserEmail
	if email == "" {
		email = "admin@example.com"
	}

	pass, err := password.Generate(16, 4, 0, false, false)
	if err != nil {
		slog.Error("Generate default admin password", "err", err)
		return
	}

	admin := dao.User{
		ID:        dao.GenID(),
		Email:     email,
		FirstName: "Admin",
		Role:      types.AdminRole,
	}
	admin.SetPassword(pass)

	if err := db.Create(&admin).Error; err != nil {
		slog.Error("Create default admin", "err", err)
		return
	}
	slog.Info("Default admin created", "email", email, "password", pass)
}

func StructToJSONMap(obj interface{}) map[string]interface{} {
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]interface{})
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldValue := val.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		tagParts := strings.Split(tag, ",")
		tagName := tagParts[0]
		if tagName == "" {
			tagName = field.Name
		}
		tagOptions := tagParts[1:]

		omitEmpty := false
		for _, option := range tagOptions {
			if option == "omitempty" {
				omitEmpty = true
				break
			}
		}

		if omitEmpty && fieldValue.IsZero() {
			continue
		}

		res[tagName] = fieldValue.Interface()
	}
	return res
}

// BindData привязывает тело запроса к target и возвращает список полей,
// реально присутствующих в запросе, для частичных обновлений.
func BindData(c echo.Context, key string, target interface{}) ([]string, error) {
	var fields []string
	form, _ := c.MultipartForm()

	if key != "" && form != nil {
		formValue := c.FormValue(key)
		if formValue != "" {
			if err := json.Unmarshal([]byte(formValue), target); err != nil {
				return nil, fmt.Errorf("failed to unmarshal data from FormValue[%s]: %w", key, err)
			}
		}
	} else {
		if err := c.Bind(target); err != nil {
			return nil, fmt.Errorf("failed to bind data from JSON body: %w", err)
		}
	}

	rawMap := StructToJSONMap(target)
	for keyRaw := range rawMap {
		fields = append(fields, keyRaw)
	}
	return fields, nil
}
