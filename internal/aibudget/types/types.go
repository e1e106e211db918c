// Общие типы домена AIBudget: роли участников, наборы прав, статусы сущностей
// (спринты, истории, задачи, расходы) и вспомогательные типы дат.
//
// Основные возможности:
//   - Закрытое перечисление ролей с уровнями доступа.
//   - Проверка прав через набор capability вместо сравнения строк.
//   - Статусы жизненного цикла спринтов, историй, задач и расходов.
//   - Тип TargetDate для дат в формате "2006-01-02" в JSON.
package types

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Role - роль участника. Числовые уровни по возрастанию прав,
// сравнение ролей допустимо через >/<.
type Role int

const (
	ViewerRole       Role = 5
	DeveloperRole    Role = 10
	ScrumMasterRole  Role = 15
	ProductOwnerRole Role = 20
	AdminRole        Role = 25
)

var roleNames = map[Role]string{
	ViewerRole:       "Viewer",
	DeveloperRole:    "Developer",
	ScrumMasterRole:  "Scrum Master",
	ProductOwnerRole: "Product Owner",
	AdminRole:        "Admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// RoleFromString возвращает роль по имени. Вторым значением false, если роль неизвестна.
func RoleFromString(s string) (Role, bool) {
	for role, name := range roleNames {
		if name == s {
			return role, true
		}
	}
	return 0, false
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, ok := RoleFromString(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = role
	return nil
}

// Capability - атомарное право на действие в системе.
type Capability uint32

const (
	CapViewProject Capability = 1 << iota
	CapManageProject
	CapManageMembers
	CapManageClients
	CapManageUsers
	CapCreateTask
	CapEditTask
	CapDeleteTask
	CapPurgeTask
	CapManageSprint
	CapManageBacklog
	CapManageBudget
	CapApproveExpense
	CapRecordExpense
	CapManageAttachments
)

var roleCapabilities = map[Role]Capability{
	ViewerRole: CapViewProject,
	DeveloperRole: CapViewProject | CapCreateTask | CapEditTask |
		CapRecordExpense | CapManageAttachments,
	ScrumMasterRole: CapViewProject | CapCreateTask | CapEditTask | CapDeleteTask |
		CapManageSprint | CapManageBacklog | CapRecordExpense | CapManageAttachments,
	ProductOwnerRole: CapViewProject | CapCreateTask | CapEditTask | CapDeleteTask |
		CapManageSprint | CapManageBacklog | CapManageBudget | CapApproveExpense |
		CapRecordExpense | CapManageAttachments,
	AdminRole: 0xFFFFFFFF,
}

// Can сообщает, покрывает ли роль все права из набора cap.
func (r Role) Can(cap Capability) bool {
	return roleCapabilities[r]&cap == cap
}

type ProjectType string

const (
	ScrumProject  ProjectType = "Scrum"
	KanbanProject ProjectType = "Kanban"
)

func (t ProjectType) Valid() bool {
	return t == ScrumProject || t == KanbanProject
}

type SprintStatus string

const (
	SprintPlanning  SprintStatus = "Planning"
	SprintActive    SprintStatus = "Active"
	SprintCompleted SprintStatus = "Completed"
)

func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPlanning, SprintActive, SprintCompleted:
		return true
	}
	return false
}

type StoryStatus string

const (
	StoryToDo       StoryStatus = "To Do"
	StoryInProgress StoryStatus = "In Progress"
	StoryReview     StoryStatus = "Review"
	StoryDone       StoryStatus = "Done"
)

func (s StoryStatus) Valid() bool {
	switch s {
	case StoryToDo, StoryInProgress, StoryReview, StoryDone:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskCreated    TaskStatus = "Created"
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskReview     TaskStatus = "Review"
	TaskDone       TaskStatus = "Done"
	TaskClosed     TaskStatus = "Closed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskCreated, TaskToDo, TaskInProgress, TaskReview, TaskDone, TaskClosed:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TaskType string

const (
	TypeTask        TaskType = "Task"
	TypeBug         TaskType = "Bug"
	TypeImprovement TaskType = "Improvement"
	TypeSubtask     TaskType = "Subtask"
)

func (t TaskType) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeImprovement, TypeSubtask:
		return true
	}
	return false
}

// DependencyType - тип направленной связи между задачами.
type DependencyType string

const (
	DepBlocks         DependencyType = "blocks"
	DepIsBlockedBy    DependencyType = "is_blocked_by"
	DepRelatesTo      DependencyType = "relates_to"
	DepDuplicates     DependencyType = "duplicates"
	DepIsDuplicatedBy DependencyType = "is_duplicated_by"
)

func (d DependencyType) Valid() bool {
	switch d {
	case DepBlocks, DepIsBlockedBy, DepRelatesTo, DepDuplicates, DepIsDuplicatedBy:
		return true
	}
	return false
}

// Inverse возвращает обратный тип связи для зеркальной записи.
func (d DependencyType) Inverse() DependencyType {
	switch d {
	case DepBlocks:
		return DepIsBlockedBy
	case DepIsBlockedBy:
		return DepBlocks
	case DepDuplicates:
		return DepIsDuplicatedBy
	case DepIsDuplicatedBy:
		return DepDuplicates
	}
	return DepRelatesTo
}

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "Pending"
	ExpenseApproved ExpenseStatus = "Approved"
	ExpenseRejected ExpenseStatus = "Rejected"
)

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return true
	}
	return false
}

const (
	AccessTokenExpiresPeriod  = time.Minute * 30
	RefreshTokenExpiresPeriod = time.Hour * 24 * 7
)

// TargetDate - дата без времени в JSON ("2006-01-02").
type TargetDate time.Time

const targetDateLayout = "2006-01-02"

func (d *TargetDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = TargetDate(time.Time{})
		return nil
	}
	t, err := time.Parse(targetDateLayout, s)
	if err != nil {
		// Allow full timestamps too
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	*d = TargetDate(t)
	return nil
}

func (d TargetDate) MarshalJSON() ([]byte, error) {
	t := time.Time(d)
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(targetDateLayout))
}

func (d *TargetDate) Time() time.Time {
	if d == nil {
		return time.Time{}
	}
	return time.Time(*d)
}

func (d *TargetDate) ToNullTime() sql.NullTime {
	if d == nil || time.Time(*d).IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Time(*d), Valid: true}
}
