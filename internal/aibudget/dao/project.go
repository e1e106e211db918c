package dao

import (
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Project struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name       string            `json:"name"`
	Identifier string            `json:"identifier" gorm:"uniqueIndex,where:deleted_at is NULL"`
	Type       types.ProjectType `json:"type" gorm:"default:Scrum"`
	Status     string            `json:"status" gorm:"default:active"`

	OwnerId  string        `gorm:"index"`
	ClientId uuid.NullUUID `gorm:"type:uuid" extensions:"x-nullable"`

	TotalBudget float64 `json:"total_budget"`
	// Best-effort counter, reconciled nightly against approved expenses.
	UsedBudget float64 `json:"used_budget"`

	Owner  *User   `gorm:"foreignKey:OwnerId"`
	Client *Client `gorm:"foreignKey:ClientId"`

	Members []ProjectMember `gorm:"foreignKey:ProjectId"`

	// Current user's membership, filled by the project middleware
	CurrentUserMembership *ProjectMember `gorm:"-" json:"-"`
}

func (Project) TableName() string { return "projects" }

// AfterCreate добавляет владельца проекта в участники с ролью Admin.
func (p *Project) AfterCreate(tx *gorm.DB) error {
	return tx.Create(&ProjectMember{
		Id:        GenUUID(),
		ProjectId: p.Id,
		MemberId:  p.OwnerId,
		Role:      types.AdminRole,
	}).Error
}

// BeforeDelete каскадно удаляет всё, чем проект владеет. Задачи и истории
// удаляются через собственные хуки, чтобы отработали зависимые связи.
func (p *Project) BeforeDelete(tx *gorm.DB) error {
	var tasks []Task
	if err := tx.Where("project_id = ?", p.Id).Find(&tasks).Error; err != nil {
		return err
	}
	for i := range tasks {
		if err := tx.Delete(&tasks[i]).Error; err != nil {
			return err
		}
	}

	var epics []Epic
	if err := tx.Where("project_id = ?", p.Id).Find(&epics).Error; err != nil {
		return err
	}
	for i := range epics {
		if err := tx.Delete(&epics[i]).Error; err != nil {
			return err
		}
	}

	var boards []Board
	if err := tx.Where("project_id = ?", p.Id).Find(&boards).Error; err != nil {
		return err
	}
	for i := range boards {
		if err := tx.Delete(&boards[i]).Error; err != nil {
			return err
		}
	}

	var attachments []Attachment
	if err := tx.Where("project_id = ?", p.Id).Find(&attachments).Error; err != nil {
		return err
	}
	for i := range attachments {
		if err := tx.Delete(&attachments[i]).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("project_id = ?", p.Id).Delete(&Expense{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", p.Id).Delete(&BudgetItem{}).Error; err != nil {
		return err
	}
	return tx.Where("project_id = ?", p.Id).Delete(&ProjectMember{}).Error
}

func (p *Project) ToLightDTO() *dto.ProjectLight {
	if p == nil {
		return nil
	}
	return &dto.ProjectLight{
		Id:         p.Id,
		Name:       p.Name,
		Identifier: p.Identifier,
		Type:       p.Type,
		Status:     p.Status,
	}
}

func (p *Project) ToDTO() *dto.Project {
	if p == nil {
		return nil
	}
	res := dto.Project{
		ProjectLight: *p.ToLightDTO(),
		TotalBudget:  p.TotalBudget,
		UsedBudget:   p.UsedBudget,
		CreatedAt:    p.CreatedAt,
		Owner:        p.Owner.ToLightDTO(),
		Client:       p.Client.ToLightDTO(),
	}
	for i := range p.Members {
		res.Members = append(res.Members, *p.Members[i].ToDTO())
	}
	return &res
}

type ProjectMember struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time

	ProjectId uuid.UUID  `gorm:"type:uuid;uniqueIndex:project_member_uniq_idx,priority:1"`
	MemberId  string     `gorm:"uniqueIndex:project_member_uniq_idx,priority:2"`
	Role      types.Role `json:"role"`

	Project *Project `gorm:"foreignKey:ProjectId"`
	Member  *User    `gorm:"foreignKey:MemberId"`
}

func (ProjectMember) TableName() string { return "project_members" }

func (pm *ProjectMember) ToDTO() *dto.ProjectMember {
	if pm == nil {
		return nil
	}
	return &dto.ProjectMember{
		Id:       pm.Id,
		Role:     pm.Role,
		Member:   pm.Member.ToLightDTO(),
		JoinedAt: pm.CreatedAt,
	}
}
