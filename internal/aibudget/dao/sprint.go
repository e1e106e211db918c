package dao

import (
	"database/sql"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Sprint struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	BoardId     uuid.UUID `gorm:"type:uuid;uniqueIndex:sprint_uniq_idx,priority:1,where:deleted_at is NULL"`
	CreatedById string

	Name       string             `json:"name"`
	SequenceId int                `json:"sequence_id" gorm:"default:1;uniqueIndex:sprint_uniq_idx,priority:2,where:deleted_at is NULL"`
	Goal       string             `json:"goal"`
	Status     types.SprintStatus `json:"status" gorm:"default:Planning"`
	IsLocked   bool               `json:"is_locked"`

	StartDate sql.NullTime `json:"start_date" gorm:"index"`
	EndDate   sql.NullTime `json:"end_date" gorm:"index"`

	Board     *Board  `gorm:"foreignKey:BoardId"`
	CreatedBy *User   `gorm:"foreignKey:CreatedById"`
	Stories   []Story `gorm:"foreignKey:SprintId"`

	Stats dto.SprintStats `gorm:"-" json:"-"`
}

func (Sprint) TableName() string { return "sprints" }

// BeforeCreate проставляет порядковый номер спринта в пределах доски.
func (s *Sprint) BeforeCreate(tx *gorm.DB) error {
	var lastId sql.NullInt64
	row := tx.Model(Sprint{}).
		Select("max(sequence_id)").
		Where("board_id = ?", s.BoardId).
		Row()
	if err := row.Scan(&lastId); err != nil {
		return err
	}

	if lastId.Valid {
		s.SequenceId = int(lastId.Int64 + 1)
	} else {
		s.SequenceId = 1
	}
	return nil
}

// BeforeDelete возвращает истории спринта в бэклог.
func (s *Sprint) BeforeDelete(tx *gorm.DB) error {
	return tx.Model(&Story{}).
		Where("sprint_id = ?", s.Id).
		Update("sprint_id", nil).Error
}

// CalculateStats пересчитывает статистику по загруженным историям спринта.
func (s *Sprint) CalculateStats() {
	s.Stats = dto.SprintStats{AllStories: len(s.Stories)}
	for _, story := range s.Stories {
		s.Stats.TotalPoints += story.Points
		switch story.Status {
		case types.StoryToDo:
			s.Stats.ToDo++
		case types.StoryInProgress:
			s.Stats.InProgress++
		case types.StoryReview:
			s.Stats.Review++
		case types.StoryDone:
			s.Stats.Done++
		}
	}
}

func (s *Sprint) ToLightDTO() *dto.SprintLight {
	if s == nil {
		return nil
	}
	res := dto.SprintLight{
		Id:         s.Id,
		Name:       s.Name,
		SequenceId: s.SequenceId,
		Goal:       s.Goal,
		Status:     s.Status,
		IsLocked:   s.IsLocked,
		Stats:      &s.Stats,
	}
	if s.StartDate.Valid {
		start := s.StartDate.Time
		res.StartDate = &start
	}
	if s.EndDate.Valid {
		end := s.EndDate.Time
		res.EndDate = &end
	}
	return &res
}

func (s *Sprint) ToDTO() *dto.Sprint {
	if s == nil {
		return nil
	}
	updatedAt := s.UpdatedAt
	res := dto.Sprint{
		SprintLight: *s.ToLightDTO(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   &updatedAt,
		CreatedBy:   s.CreatedBy.ToLightDTO(),
		Board:       s.Board.ToLightDTO(),
	}
	for i := range s.Stories {
		res.Stories = append(res.Stories, *s.Stories[i].ToLightDTO())
	}
	return &res
}
