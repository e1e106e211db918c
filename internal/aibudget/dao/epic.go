package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Epic struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	ProjectId uuid.UUID `gorm:"type:uuid;index"`

	Name        string             `json:"name"`
	Description string             `json:"description"`
	Status      string             `json:"status" gorm:"default:open"`
	Priority    types.TaskPriority `json:"priority" gorm:"default:Medium"`

	Project *Project `gorm:"foreignKey:ProjectId"`
	Stories []Story  `gorm:"foreignKey:EpicId"`
}

func (Epic) TableName() string { return "epics" }

// BeforeDelete удаляет истории и вложения эпика через их хуки.
func (e *Epic) BeforeDelete(tx *gorm.DB) error {
	var stories []Story
	if err := tx.Where("epic_id = ?", e.Id).Find(&stories).Error; err != nil {
		return err
	}
	for i := range stories {
		if err := tx.Delete(&stories[i]).Error; err != nil {
			return err
		}
	}

	var attachments []Attachment
	if err := tx.Where("epic_id = ?", e.Id).Find(&attachments).Error; err != nil {
		return err
	}
	for i := range attachments {
		if err := tx.Delete(&attachments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (e *Epic) ToLightDTO() *dto.EpicLight {
	if e == nil {
		return nil
	}
	return &dto.EpicLight{
		Id:       e.Id,
		Name:     e.Name,
		Status:   e.Status,
		Priority: e.Priority,
	}
}

func (e *Epic) ToDTO() *dto.Epic {
	if e == nil {
		return nil
	}
	res := dto.Epic{
		EpicLight:   *e.ToLightDTO(),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
	for i := range e.Stories {
		res.Stories = append(res.Stories, *e.Stories[i].ToLightDTO())
	}
	return &res
}
