// Управление конфигурацией приложения из переменных окружения.
// Содержит структуру Config и функцию ReadConfig для загрузки значений
// по тегам полей. Секретные значения маскируются в логах.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	SecretKey string `env:"SECRET_KEY"`

	DatabaseDSN string `env:"DATABASE_URL"`

	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `env:"MINIO_SECRET_KEY"`
	MinioBucketName string `env:"MINIO_BUCKET_NAME"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL"`

	EmailHost     string `env:"EMAIL_HOST"`
	EmailUser     string `env:"EMAIL_HOST_USER"`
	EmailPassword string `env:"EMAIL_HOST_PASSWORD"`
	EmailPort     int    `env:"EMAIL_PORT"`
	EmailFrom     string `env:"EMAIL_FROM"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	SessionsDBPath string `env:"SESSIONS_DB_PATH"`

	DefaultUserEmail string `env:"DEFAULT_EMAIL"`

	SignUpEnable bool `env:"SIGN_UP_ENABLE"`

	AtRiskThreshold float64
}

// ReadConfig загружает конфигурацию из .env файла (если есть) и переменных
// окружения, валидирует обязательные значения. При некорректном WEB_URL
// приложение завершает работу.
func ReadConfig() *Config {
	_ = godotenv.Load()

	config := &Config{}

	envConfig("env", config)

	// Check required envs
	if config.WebURLRaw == "" {
		slog.Error("WEB_URL is required")
		os.Exit(1)
	} else {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	// Budgets are flagged "at risk" below 10% remaining
	config.AtRiskThreshold = 0.1

	return config
}

// Присваивает полям структуры значения переменных окружения по тегу поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
