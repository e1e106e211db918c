package dao

import (
	"database/sql"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Task struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	ProjectId uuid.UUID `gorm:"type:uuid;index"`

	// Weak references: the task outlives its story and its users.
	StoryId    uuid.NullUUID `gorm:"type:uuid;index" extensions:"x-nullable"`
	AssigneeId *string       `gorm:"index" extensions:"x-nullable"`
	ReporterId *string       `extensions:"x-nullable"`

	SequenceId int `json:"sequence_id" gorm:"default:1"`

	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      types.TaskStatus   `json:"status" gorm:"default:Created"`
	Priority    types.TaskPriority `json:"priority" gorm:"default:Medium"`
	Type        types.TaskType     `json:"type" gorm:"default:Task"`

	EstimatedHours float64 `json:"estimated_hours"`
	ActualHours    float64 `json:"actual_hours"`

	Project  *Project `gorm:"foreignKey:ProjectId"`
	Story    *Story   `gorm:"foreignKey:StoryId"`
	Assignee *User    `gorm:"foreignKey:AssigneeId"`
	Reporter *User    `gorm:"foreignKey:ReporterId"`

	Dependencies []TaskDependency `gorm:"foreignKey:TaskId"`
	Labels       []Label          `gorm:"many2many:task_labels;joinForeignKey:TaskId;joinReferences:LabelId"`
}

func (Task) TableName() string { return "tasks" }

// BeforeCreate проставляет порядковый номер задачи в пределах проекта.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	var lastId sql.NullInt64
	row := tx.Model(Task{}).
		Unscoped().
		Select("max(sequence_id)").
		Where("project_id = ?", t.ProjectId).
		Row()
	if err := row.Scan(&lastId); err != nil {
		return err
	}

	if lastId.Valid {
		t.SequenceId = int(lastId.Int64 + 1)
	} else {
		t.SequenceId = 1
	}
	return nil
}

// BeforeDelete удаляет связи задачи в обе стороны, метки и вложения.
func (t *Task) BeforeDelete(tx *gorm.DB) error {
	if err := tx.
		Where("task_id = ? OR target_id = ?", t.Id, t.Id).
		Delete(&TaskDependency{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", t.Id).Delete(&TaskLabel{}).Error; err != nil {
		return err
	}

	var attachments []Attachment
	if err := tx.Where("task_id = ?", t.Id).Find(&attachments).Error; err != nil {
		return err
	}
	for i := range attachments {
		if err := tx.Delete(&attachments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) ToLightDTO() *dto.TaskLight {
	if t == nil {
		return nil
	}
	return &dto.TaskLight{
		Id:         t.Id,
		SequenceId: t.SequenceId,
		Title:      t.Title,
		Status:     t.Status,
		Priority:   t.Priority,
		Type:       t.Type,
	}
}

func (t *Task) ToDTO() *dto.Task {
	if t == nil {
		return nil
	}
	updatedAt := t.UpdatedAt
	res := dto.Task{
		TaskLight:      *t.ToLightDTO(),
		Description:    t.Description,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      &updatedAt,
		Story:          t.Story.ToLightDTO(),
		Assignee:       t.Assignee.ToLightDTO(),
		Reporter:       t.Reporter.ToLightDTO(),
	}
	for i := range t.Dependencies {
		res.Dependencies = append(res.Dependencies, *t.Dependencies[i].ToDTO())
	}
	for i := range t.Labels {
		res.Labels = append(res.Labels, *t.Labels[i].ToDTO())
	}
	return &res
}

// TaskDependency - направленное типизированное ребро между двумя задачами.
type TaskDependency struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time

	TaskId   uuid.UUID            `gorm:"type:uuid;uniqueIndex:task_dep_uniq_idx,priority:1"`
	TargetId uuid.UUID            `gorm:"type:uuid;uniqueIndex:task_dep_uniq_idx,priority:2"`
	Type     types.DependencyType `gorm:"uniqueIndex:task_dep_uniq_idx,priority:3"`

	Task   *Task `gorm:"foreignKey:TaskId"`
	Target *Task `gorm:"foreignKey:TargetId"`
}

func (TaskDependency) TableName() string { return "task_dependencies" }

func (td *TaskDependency) ToDTO() *dto.TaskDependency {
	if td == nil {
		return nil
	}
	return &dto.TaskDependency{
		Id:     td.Id,
		Type:   td.Type,
		Target: td.Target.ToLightDTO(),
	}
}

type Label struct {
	Id        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time

	ProjectId uuid.UUID `gorm:"type:uuid;uniqueIndex:label_uniq_idx,priority:1"`
	Name      string    `gorm:"uniqueIndex:label_uniq_idx,priority:2"`
	Color     string    `json:"color"`
}

func (Label) TableName() string { return "labels" }

func (l *Label) ToDTO() *dto.Label {
	if l == nil {
		return nil
	}
	return &dto.Label{
		Id:    l.Id,
		Name:  l.Name,
		Color: l.Color,
	}
}

type TaskLabel struct {
	TaskId  uuid.UUID `gorm:"primaryKey;type:uuid"`
	LabelId uuid.UUID `gorm:"primaryKey;type:uuid"`
}

func (TaskLabel) TableName() string { return "task_labels" }
