package dto

import (
	"time"

	"github.com/gofrs/uuid"
)

type Attachment struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	FileSize    int       `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`

	// Tagged parent reference: exactly one entity id is set.
	Parent ParentRef `json:"parent"`

	UploadedBy *UserLight `json:"uploaded_by,omitempty"`
}

// ParentRef - типизированная ссылка на родительскую сущность вложения.
type ParentRef struct {
	Kind string    `json:"kind"` // project | epic | story | task
	Id   uuid.UUID `json:"id"`
}
