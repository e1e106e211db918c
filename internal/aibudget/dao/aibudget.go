// DAO (Data Access Object) - модели GORM и функции доступа к данным AIBudget.
// Содержит сущности предметной области (пользователи, проекты, клиенты, эпики,
// истории, спринты, задачи, бюджет, расходы, вложения), их хуки каскадного
// удаления и общие хелперы (генерация UUID, пагинация).
package dao

import (
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	filestorage "github.com/aisa-it/aibudget/internal/aibudget/file-storage"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var Config *config.Config
var FileStorage filestorage.FileStorage

// GenID генерирует уникальный идентификатор в формате UUID строкой.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

// GenUUID генерирует уникальный идентификатор в формате UUID.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

type PaginationResponse struct {
	Count  int64       `json:"count"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Result interface{} `json:"result"`
}

// PaginationRequest выполняет count- и data-запросы по переданному query и
// возвращает страницу результата с информацией о пагинации.
func PaginationRequest(offset int, limit int, query *gorm.DB, target any) (res PaginationResponse, err error) {
	// Count query
	if err := query.Session(&gorm.Session{}).Model(target).Count(&res.Count).Error; err != nil {
		return res, err
	}

	// Data query
	if err := query.Offset(offset).Limit(limit).Find(target).Error; err != nil {
		return res, err
	}

	res.Result = target
	res.Limit = limit
	res.Offset = offset

	return res, nil
}
