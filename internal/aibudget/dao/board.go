package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Board struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProjectId uuid.UUID `gorm:"type:uuid;index"`

	Name    string        `json:"name"`
	Filters types.JSONMap `json:"filters"`

	Project *Project `gorm:"foreignKey:ProjectId"`
	Sprints []Sprint `gorm:"foreignKey:BoardId"`
}

func (Board) TableName() string { return "boards" }

// BeforeDelete удаляет спринты доски. Истории спринтов возвращаются в бэклог
// хуком спринта.
func (b *Board) BeforeDelete(tx *gorm.DB) error {
	var sprints []Sprint
	if err := tx.Where("board_id = ?", b.Id).Find(&sprints).Error; err != nil {
		return err
	}
	for i := range sprints {
		if err := tx.Delete(&sprints[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) ToLightDTO() *dto.BoardLight {
	if b == nil {
		return nil
	}
	return &dto.BoardLight{
		Id:   b.Id,
		Name: b.Name,
	}
}

func (b *Board) ToDTO() *dto.Board {
	if b == nil {
		return nil
	}
	res := dto.Board{
		BoardLight: *b.ToLightDTO(),
		Filters:    b.Filters,
		CreatedAt:  b.CreatedAt,
	}
	for i := range b.Sprints {
		res.Sprints = append(res.Sprints, *b.Sprints[i].ToLightDTO())
	}
	return &res
}
