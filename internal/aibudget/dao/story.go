package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Story struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	EpicId    uuid.UUID `gorm:"type:uuid;index"`
	ProjectId uuid.UUID `gorm:"type:uuid;index"`

	// NULL sprint_id means the story sits in the backlog.
	SprintId uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`

	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      types.StoryStatus `json:"status" gorm:"default:To Do"`
	Points      int               `json:"points"`
	IsReady     bool              `json:"is_ready"`

	Epic   *Epic   `gorm:"foreignKey:EpicId"`
	Sprint *Sprint `gorm:"foreignKey:SprintId"`
}

func (Story) TableName() string { return "stories" }

// BeforeDelete отвязывает задачи истории (задачи живут независимо от нее) и
// удаляет ее вложения через их хук.
func (s *Story) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Model(&Task{}).
		Where("story_id = ?", s.Id).
		Update("story_id", nil).Error; err != nil {
		return err
	}

	var attachments []Attachment
	if err := tx.Where("story_id = ?", s.Id).Find(&attachments).Error; err != nil {
		return err
	}
	for i := range attachments {
		if err := tx.Delete(&attachments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Story) ToLightDTO() *dto.StoryLight {
	if s == nil {
		return nil
	}
	res := dto.StoryLight{
		Id:      s.Id,
		Title:   s.Title,
		Status:  s.Status,
		Points:  s.Points,
		IsReady: s.IsReady,
	}
	if s.SprintId.Valid {
		sprintId := s.SprintId.UUID
		res.SprintId = &sprintId
	}
	return &res
}

func (s *Story) ToDTO() *dto.Story {
	if s == nil {
		return nil
	}
	updatedAt := s.UpdatedAt
	return &dto.Story{
		StoryLight:  *s.ToLightDTO(),
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   &updatedAt,
		Epic:        s.Epic.ToLightDTO(),
		Sprint:      s.Sprint.ToLightDTO(),
	}
}
