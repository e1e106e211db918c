// Структуры входящих запросов API и хелперы их разбора.
//
// Основные возможности:
//   - Типизированные тела запросов создания сущностей с валидацией.
//   - Привязка запросов к моделям DAO.
//   - Разбор параметров пагинации и поиска.
package aibudget

import (
	"strings"

	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

type CreateProjectRequest struct {
	Name        string            `json:"name" validate:"projectName"`
	Identifier  string            `json:"identifier" validate:"identifier"`
	Type        types.ProjectType `json:"type"`
	ClientId    *string           `json:"client_id"`
	TotalBudget float64           `json:"total_budget"`
}

func (req *CreateProjectRequest) Bind(project *dao.Project) {
	project.Name = req.Name
	project.Identifier = strings.ToUpper(req.Identifier)
	if req.Type != "" {
		project.Type = req.Type
	}
	project.TotalBudget = req.TotalBudget
	if req.ClientId != nil {
		if clientUUID, err := uuid.FromString(*req.ClientId); err == nil {
			project.ClientId = uuid.NullUUID{UUID: clientUUID, Valid: true}
		}
	}
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (req *CreateClientRequest) Bind(client *dao.Client) {
	client.Name = req.Name
	client.Email = strings.ToLower(req.Email)
	client.Phone = req.Phone
}

type AddMemberRequest struct {
	MemberId string     `json:"member_id"`
	Role     types.Role `json:"role"`
}

type CreateBoardRequest struct {
	Name    string        `json:"name"`
	Filters types.JSONMap `json:"filters"`
}

type CreateSprintRequest struct {
	Name      string            `json:"name"`
	Goal      string            `json:"goal"`
	StartDate *types.TargetDate `json:"start_date"`
	EndDate   *types.TargetDate `json:"end_date"`
}

func (req *CreateSprintRequest) Bind(sprint *dao.Sprint) {
	sprint.Name = req.Name
	sprint.Goal = req.Goal
	sprint.StartDate = req.StartDate.ToNullTime()
	sprint.EndDate = req.EndDate.ToNullTime()
}

type SprintStartRequest struct {
	StartDate *types.TargetDate `json:"start_date"`
	EndDate   *types.TargetDate `json:"end_date"`
}

type CreateEpicRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Priority    types.TaskPriority `json:"priority"`
}

func (req *CreateEpicRequest) Bind(epic *dao.Epic) {
	epic.Name = req.Name
	epic.Description = req.Description
	if req.Priority != "" {
		epic.Priority = req.Priority
	}
}

type CreateStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	IsReady     bool   `json:"is_ready"`
}

func (req *CreateStoryRequest) Bind(story *dao.Story) {
	story.Title = req.Title
	story.Description = req.Description
	story.Points = req.Points
	story.IsReady = req.IsReady
}

type StorySprintRequest struct {
	SprintId *string `json:"sprint_id"`
}

type CreateTaskRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	StoryId        *string             `json:"story_id"`
	AssigneeId     *string             `json:"assignee_id"`
	Priority       types.TaskPriority  `json:"priority"`
	Type           types.TaskType      `json:"type"`
	EstimatedHours float64             `json:"estimated_hours"`
	Dependencies   []DependencyRequest `json:"dependencies"`
}

func (req *CreateTaskRequest) Bind(task *dao.Task) {
	task.Title = req.Title
	task.Description = req.Description
	task.AssigneeId = req.AssigneeId
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.Type != "" {
		task.Type = req.Type
	}
	task.EstimatedHours = req.EstimatedHours
	if req.StoryId != nil {
		if storyUUID, err := uuid.FromString(*req.StoryId); err == nil {
			task.StoryId = uuid.NullUUID{UUID: storyUUID, Valid: true}
		}
	}
}

type DependencyRequest struct {
	TargetId string               `json:"target_id"`
	Type     types.DependencyType `json:"type"`
}

type LabelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type TaskLabelsRequest struct {
	LabelIds []string `json:"label_ids"`
}

type CreateBudgetItemRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

func (req *CreateBudgetItemRequest) Bind(item *dao.BudgetItem) {
	item.Name = req.Name
	item.Category = req.Category
	item.Amount = req.Amount
}

type CreateExpenseRequest struct {
	Amount        float64  `json:"amount"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	PaymentMethod string   `json:"payment_method"`
	Tags          []string `json:"tags"`
	BudgetItemId  *string  `json:"budget_item_id"`
}

func (req *CreateExpenseRequest) Bind(expense *dao.Expense) {
	expense.Amount = req.Amount
	expense.Category = req.Category
	expense.Description = req.Description
	expense.PaymentMethod = req.PaymentMethod
	expense.Tags = req.Tags
	if req.BudgetItemId != nil {
		if itemUUID, err := uuid.FromString(*req.BudgetItemId); err == nil {
			expense.BudgetItemId = uuid.NullUUID{UUID: itemUUID, Valid: true}
		}
	}
}

type CreateUserRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name" validate:"omitempty,fullName"`
	LastName  string     `json:"last_name" validate:"omitempty,fullName"`
	Role      types.Role `json:"role"`
}

// ExtractPaginationRequest разбирает offset/limit и поисковую строку из query.
func ExtractPaginationRequest(c echo.Context) (offset int, limit int, searchQuery string, err error) {
	offset = 0
	limit = 100
	if err := echo.QueryParamsBinder(c).
		Int("offset", &offset).
		Int("limit", &limit).
		String("search_query", &searchQuery).BindError(); err != nil {
		return offset, limit, searchQuery, err
	}
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit, searchQuery, nil
}

// PrepareSearchRequest экранирует спецсимволы LIKE в поисковой строке.
func PrepareSearchRequest(query string) string {
	query = strings.ReplaceAll(query, `\`, `\\`)
	query = strings.ReplaceAll(query, `%`, `\%`)
	query = strings.ReplaceAll(query, `_`, `\_`)

	return "%" + strings.ToLower(query) + "%"
}
