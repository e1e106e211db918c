package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/gofrs/uuid"
)

type Client struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status" gorm:"default:active"`
}

func (Client) TableName() string { return "clients" }

func (c *Client) ToLightDTO() *dto.ClientLight {
	if c == nil {
		return nil
	}
	return &dto.ClientLight{
		Id:    c.Id,
		Name:  c.Name,
		Email: c.Email,
	}
}

func (c *Client) ToDTO() *dto.Client {
	if c == nil {
		return nil
	}
	return &dto.Client{
		ClientLight: *c.ToLightDTO(),
		Phone:       c.Phone,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
	}
}
