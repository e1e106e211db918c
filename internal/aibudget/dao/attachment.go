package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Attachment - файл, прикрепленный ровно к одной сущности: проекту, эпику,
// истории или задаче. Инвариант "ровно один родитель" проверяется в BeforeSave.
type Attachment struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time

	ProjectId uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`
	EpicId    uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`
	StoryId   uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`
	TaskId    uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`

	UploadedById string

	Name        string `json:"name" gorm:"index"`
	FileSize    int    `json:"size"`
	ContentType string `json:"content_type"`

	UploadedBy *User `gorm:"foreignKey:UploadedById"`
}

func (Attachment) TableName() string { return "attachments" }

// ParentCount возвращает количество установленных родительских ссылок.
func (a *Attachment) ParentCount() int {
	count := 0
	for _, id := range []uuid.NullUUID{a.ProjectId, a.EpicId, a.StoryId, a.TaskId} {
		if id.Valid {
			count++
		}
	}
	return count
}

// ParentRef возвращает типизированную ссылку на родителя вложения.
func (a *Attachment) ParentRef() dto.ParentRef {
	switch {
	case a.ProjectId.Valid:
		return dto.ParentRef{Kind: "project", Id: a.ProjectId.UUID}
	case a.EpicId.Valid:
		return dto.ParentRef{Kind: "epic", Id: a.EpicId.UUID}
	case a.StoryId.Valid:
		return dto.ParentRef{Kind: "story", Id: a.StoryId.UUID}
	case a.TaskId.Valid:
		return dto.ParentRef{Kind: "task", Id: a.TaskId.UUID}
	}
	return dto.ParentRef{}
}

func (a *Attachment) BeforeSave(tx *gorm.DB) error {
	if a.ParentCount() != 1 {
		return apierrors.ErrAttachmentParentInvalid
	}
	return nil
}

// BeforeDelete удаляет объект из файлового хранилища вместе с записью.
func (a *Attachment) BeforeDelete(tx *gorm.DB) error {
	if FileStorage == nil {
		return nil
	}
	exist, err := FileStorage.Exist(a.Id)
	if err != nil {
		return err
	}
	if exist {
		if err := FileStorage.Delete(a.Id); err != nil {
			return err
		}
	}
	return nil
}

func (a *Attachment) ToDTO() *dto.Attachment {
	if a == nil {
		return nil
	}
	return &dto.Attachment{
		Id:          a.Id,
		Name:        a.Name,
		FileSize:    a.FileSize,
		ContentType: a.ContentType,
		CreatedAt:   a.CreatedAt,
		Parent:      a.ParentRef(),
		UploadedBy:  a.UploadedBy.ToLightDTO(),
	}
}
