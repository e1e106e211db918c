// Основной пакет приложения AIBudget. Отвечает за запуск приложения,
// инициализацию базы данных, миграцию моделей и запуск основного сервера.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget"
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/gormlogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

var models = []any{
	&dao.User{},
	&dao.Client{},
	&dao.Project{},
	&dao.ProjectMember{},
	&dao.Board{},
	&dao.Epic{},
	&dao.Story{},
	&dao.Sprint{},
	&dao.Task{},
	&dao.TaskDependency{},
	&dao.Label{},
	&dao.TaskLabel{},
	&dao.BudgetItem{},
	&dao.Expense{},
	&dao.Attachment{},
}

func main() {
	noTranslateFlag := flag.Bool("noTranslate", false, "Turn off BD errors translate")
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()
	dao.Config = cfg

	if *trace {
		// slog.SetLogLoggerLevel requires go1.22; set a debug-level default handler instead
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("AIBudget start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: !*noTranslateFlag,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		slog.Info("Migrate database")
		if err := db.AutoMigrate(models...); err != nil {
			slog.Error("Migration failed", "err", err)
			os.Exit(1)
		}
	}

	aibudget.Server(db, cfg, version)
}

func PrintBanner() {
	fmt.Printf(`
    _    ___ ____            _            _
   / \  |_ _| __ ) _   _  __| | __ _  ___| |_
  / _ \  | ||  _ \| | | |/ _`+"`"+` |/ _`+"`"+` |/ _ \ __|
 / ___ \ | || |_) | |_| | (_| | (_| |  __/ |_
/_/   \_\___|____/ \__,_|\__,_|\__, |\___|\__|
                               |___/  %s

`, version)
}
