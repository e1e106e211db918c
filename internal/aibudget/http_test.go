package aibudget

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/business"
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	filestorage "github.com/aisa-it/aibudget/internal/aibudget/file-storage"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServices(t *testing.T) (*echo.Echo, *Services, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&dao.User{},
		&dao.Client{},
		&dao.Project{},
		&dao.ProjectMember{},
		&dao.Board{},
		&dao.Epic{},
		&dao.Story{},
		&dao.Sprint{},
		&dao.Task{},
		&dao.TaskDependency{},
		&dao.Label{},
		&dao.TaskLabel{},
		&dao.BudgetItem{},
		&dao.Expense{},
		&dao.Attachment{},
	))

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg = &config.Config{
		SecretKey:       "test-secret",
		AtRiskThreshold: 0.1,
	}
	dao.Config = cfg
	dao.FileStorage = storage

	s := &Services{
		db:       db,
		storage:  storage,
		business: business.NewBL(db, cfg, nil),
	}

	e := echo.New()
	e.Validator = NewRequestValidator()
	return e, s, db
}

func seedTestUser(t *testing.T, db *gorm.DB, role types.Role) dao.User {
	t.Helper()

	user := dao.User{
		ID:    dao.GenID(),
		Email: dao.GenID() + "@example.com",
		Role:  role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTestProject(t *testing.T, db *gorm.DB, owner dao.User) dao.Project {
	t.Helper()

	project := dao.Project{
		Id:          dao.GenUUID(),
		Name:        "Test project",
		Identifier:  "TP" + dao.GenID()[:6],
		OwnerId:     owner.ID,
		TotalBudget: 10000,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

// Собирает контекст проекта так, как это делают AuthMiddleware и
// ProjectMiddleware на живом сервере.
func newProjectContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, user dao.User, project dao.Project, role types.Role) ProjectContext {
	project.CurrentUserMembership = &dao.ProjectMember{
		ProjectId: project.Id,
		MemberId:  user.ID,
		Role:      role,
	}
	return ProjectContext{
		AuthContext: AuthContext{
			Context: e.NewContext(req, rec),
			User:    &user,
		},
		Project: project,
	}
}

func jsonRequest(method string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, "/", bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestCreateTaskDefaults(t *testing.T) {
	e, s, db := newTestServices(t)
	user := seedTestUser(t, db, types.DeveloperRole)
	project := seedTestProject(t, db, seedTestUser(t, db, types.AdminRole))

	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, jsonRequest("POST", map[string]string{"title": "First task"}), rec, user, project, types.DeveloperRole)
	require.NoError(t, s.createTask(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var task dao.Task
	require.NoError(t, db.Where("project_id = ?", project.Id).First(&task).Error)
	require.Equal(t, types.TaskCreated, task.Status)
	require.Equal(t, 1, task.SequenceId)
	require.NotNil(t, task.ReporterId)
	require.Equal(t, user.ID, *task.ReporterId)

	// номер растет в пределах проекта
	rec = httptest.NewRecorder()
	ctx = newProjectContext(e, jsonRequest("POST", map[string]string{"title": "Second task"}), rec, user, project, types.DeveloperRole)
	require.NoError(t, s.createTask(ctx))

	var second dao.Task
	require.NoError(t, db.Where("project_id = ?", project.Id).Order("sequence_id desc").First(&second).Error)
	require.Equal(t, 2, second.SequenceId)
}

func TestCreateTaskWithDependencies(t *testing.T) {
	e, s, db := newTestServices(t)
	user := seedTestUser(t, db, types.DeveloperRole)
	project := seedTestProject(t, db, seedTestUser(t, db, types.AdminRole))

	target := dao.Task{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Title:     "Target",
		Status:    types.TaskCreated,
	}
	require.NoError(t, db.Create(&target).Error)

	// несуществующая цель отклоняется до вставки задачи
	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, jsonRequest("POST", map[string]interface{}{
		"title": "Broken",
		"dependencies": []map[string]string{
			{"target_id": dao.GenUUID().String(), "type": string(types.DepBlocks)},
		},
	}), rec, user, project, types.DeveloperRole)
	require.NoError(t, s.createTask(ctx))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, db.Model(&dao.Task{}).Where("title = ?", "Broken").Count(&count).Error)
	require.Zero(t, count)

	rec = httptest.NewRecorder()
	ctx = newProjectContext(e, jsonRequest("POST", map[string]interface{}{
		"title": "Dependent",
		"dependencies": []map[string]string{
			{"target_id": target.Id.String(), "type": string(types.DepBlocks)},
		},
	}), rec, user, project, types.DeveloperRole)
	require.NoError(t, s.createTask(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var task dao.Task
	require.NoError(t, db.Preload("Dependencies").Where("title = ?", "Dependent").First(&task).Error)
	require.Len(t, task.Dependencies, 1)
	require.Equal(t, target.Id, task.Dependencies[0].TargetId)
	require.Equal(t, types.DepBlocks, task.Dependencies[0].Type)
}

func TestCreateTaskTitleRequired(t *testing.T) {
	e, s, db := newTestServices(t)
	user := seedTestUser(t, db, types.DeveloperRole)
	project := seedTestProject(t, db, seedTestUser(t, db, types.AdminRole))

	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, jsonRequest("POST", map[string]string{"description": "no title"}), rec, user, project, types.DeveloperRole)
	require.NoError(t, s.createTask(ctx))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurgeTaskAdminOnly(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	developer := seedTestUser(t, db, types.DeveloperRole)
	project := seedTestProject(t, db, admin)

	task := dao.Task{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Title:     "Task",
	}
	require.NoError(t, db.Create(&task).Error)

	handler := s.ProjectPermissionMiddleware(types.CapPurgeTask)(s.purgeTask)

	// разработчику полное удаление недоступно
	rec := httptest.NewRecorder()
	projectCtx := newProjectContext(e, httptest.NewRequest("DELETE", "/", nil), rec, developer, project, types.DeveloperRole)
	require.NoError(t, handler(TaskContext{projectCtx, task}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, db.Unscoped().Model(&dao.Task{}).Where("id = ?", task.Id).Count(&count).Error)
	require.Equal(t, int64(1), count)

	rec = httptest.NewRecorder()
	projectCtx = newProjectContext(e, httptest.NewRequest("DELETE", "/", nil), rec, admin, project, types.AdminRole)
	require.NoError(t, handler(TaskContext{projectCtx, task}))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, db.Unscoped().Model(&dao.Task{}).Where("id = ?", task.Id).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestCreateSprintDatesValidation(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	project := seedTestProject(t, db, admin)

	board := dao.Board{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Main"}
	require.NoError(t, db.Create(&board).Error)

	rec := httptest.NewRecorder()
	projectCtx := newProjectContext(e, jsonRequest("POST", map[string]string{
		"name":       "Sprint 1",
		"start_date": "2026-09-15",
		"end_date":   "2026-09-01",
	}), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createSprint(BoardContext{projectCtx, board}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	projectCtx = newProjectContext(e, jsonRequest("POST", map[string]string{
		"name":       "Sprint 1",
		"start_date": "2026-09-01",
		"end_date":   "2026-09-15",
	}), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createSprint(BoardContext{projectCtx, board}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartSprintConflict(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	project := seedTestProject(t, db, admin)

	board := dao.Board{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Main"}
	require.NoError(t, db.Create(&board).Error)

	now := time.Now()
	active := dao.Sprint{
		Id:          dao.GenUUID(),
		BoardId:     board.Id,
		CreatedById: admin.ID,
		Name:        "Active",
		SequenceId:  1,
		Status:      types.SprintActive,
	}
	planning := dao.Sprint{
		Id:          dao.GenUUID(),
		BoardId:     board.Id,
		CreatedById: admin.ID,
		Name:        "Planning",
		SequenceId:  2,
		Status:      types.SprintPlanning,
	}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&planning).Error)

	rec := httptest.NewRecorder()
	projectCtx := newProjectContext(e, jsonRequest("POST", map[string]string{
		"start_date": now.Format("2006-01-02"),
		"end_date":   now.Add(14 * 24 * time.Hour).Format("2006-01-02"),
	}), rec, admin, project, types.AdminRole)
	require.NoError(t, s.startSprint(SprintContext{BoardContext{projectCtx, board}, planning}))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestApproveExpenseEndpoint(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	owner := seedTestUser(t, db, types.ProductOwnerRole)
	project := seedTestProject(t, db, admin)

	expense := dao.Expense{
		Id:            dao.GenUUID(),
		ProjectId:     project.Id,
		Amount:        1000,
		PaymentStatus: types.ExpensePending,
		SubmittedById: admin.ID,
	}
	require.NoError(t, db.Create(&expense).Error)

	rec := httptest.NewRecorder()
	projectCtx := newProjectContext(e, httptest.NewRequest("POST", "/", nil), rec, owner, project, types.ProductOwnerRole)
	require.NoError(t, s.approveExpense(ExpenseContext{projectCtx, expense}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(types.ExpenseApproved), resp["payment_status"])
	require.NotNil(t, resp["approved_by"])
	require.NotNil(t, resp["approved_at"])

	// повторное решение - конфликт
	rec = httptest.NewRecorder()
	projectCtx = newProjectContext(e, httptest.NewRequest("POST", "/", nil), rec, owner, project, types.ProductOwnerRole)
	require.NoError(t, s.approveExpense(ExpenseContext{projectCtx, expense}))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	projectCtx = newProjectContext(e, httptest.NewRequest("POST", "/", nil), rec, owner, project, types.ProductOwnerRole)
	require.NoError(t, s.rejectExpense(ExpenseContext{projectCtx, expense}))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBudgetSummaryEndpoint(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	project := seedTestProject(t, db, admin)

	for _, amount := range []float64{3000, 2000} {
		require.NoError(t, db.Create(&dao.Expense{
			Id:            dao.GenUUID(),
			ProjectId:     project.Id,
			Amount:        amount,
			PaymentStatus: types.ExpenseApproved,
			SubmittedById: admin.ID,
		}).Error)
	}

	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, httptest.NewRequest("GET", "/", nil), rec, admin, project, types.AdminRole)
	require.NoError(t, s.getProjectBudgetSummary(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, float64(5000), resp["spent"])
	require.Equal(t, float64(5000), resp["remaining"])
	require.Equal(t, false, resp["at_risk"])
}

func TestAssignStorySprintEndpoint(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	project := seedTestProject(t, db, admin)

	board := dao.Board{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Main"}
	require.NoError(t, db.Create(&board).Error)
	sprint := dao.Sprint{
		Id:          dao.GenUUID(),
		BoardId:     board.Id,
		CreatedById: admin.ID,
		Name:        "Sprint",
		SequenceId:  1,
		Status:      types.SprintPlanning,
	}
	require.NoError(t, db.Create(&sprint).Error)

	epic := dao.Epic{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)
	story := dao.Story{
		Id:        dao.GenUUID(),
		EpicId:    epic.Id,
		ProjectId: project.Id,
		Title:     "Story",
		IsReady:   true,
		SprintId:  uuid.NullUUID{UUID: sprint.Id, Valid: true},
	}
	require.NoError(t, db.Create(&story).Error)

	// sprint_id: null возвращает историю в бэклог
	rec := httptest.NewRecorder()
	projectCtx := newProjectContext(e, jsonRequest("PUT", map[string]interface{}{"sprint_id": nil}), rec, admin, project, types.AdminRole)
	storyCtx := StoryContext{EpicContext{projectCtx, epic}, story}
	require.NoError(t, s.assignStorySprint(storyCtx))
	require.Equal(t, http.StatusOK, rec.Code)

	var saved dao.Story
	require.NoError(t, db.Where("id = ?", story.Id).First(&saved).Error)
	require.False(t, saved.SprintId.Valid)
}

func TestCreateAttachmentParents(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	project := seedTestProject(t, db, admin)

	epic := dao.Epic{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)
	task := dao.Task{Id: dao.GenUUID(), ProjectId: project.Id, Title: "Task"}
	require.NoError(t, db.Create(&task).Error)

	multipartRequest := func(fields map[string]string, withFile bool) *http.Request {
		body := new(bytes.Buffer)
		writer := multipart.NewWriter(body)
		if withFile {
			part, err := writer.CreateFormFile("file", "report.txt")
			require.NoError(t, err)
			_, err = part.Write([]byte("file content"))
			require.NoError(t, err)
		}
		for k, v := range fields {
			require.NoError(t, writer.WriteField(k, v))
		}
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/", body)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		return req
	}

	// без файла
	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, multipartRequest(nil, false), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createAttachment(ctx))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// две родительские сущности сразу
	rec = httptest.NewRecorder()
	ctx = newProjectContext(e, multipartRequest(map[string]string{
		"epic_id": epic.Id.String(),
		"task_id": task.Id.String(),
	}, true), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createAttachment(ctx))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// без родителя вложение привязывается к проекту
	rec = httptest.NewRecorder()
	ctx = newProjectContext(e, multipartRequest(nil, true), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createAttachment(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var attachment dao.Attachment
	require.NoError(t, db.First(&attachment).Error)
	require.True(t, attachment.ProjectId.Valid)
	require.Equal(t, project.Id, attachment.ProjectId.UUID)

	exists, err := s.storage.Exist(attachment.Id)
	require.NoError(t, err)
	require.True(t, exists)

	// явный родитель
	rec = httptest.NewRecorder()
	ctx = newProjectContext(e, multipartRequest(map[string]string{"epic_id": epic.Id.String()}, true), rec, admin, project, types.AdminRole)
	require.NoError(t, s.createAttachment(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var epicAttachment dao.Attachment
	require.NoError(t, db.Where("epic_id = ?", epic.Id).First(&epicAttachment).Error)
	require.False(t, epicAttachment.ProjectId.Valid)
}

func TestProjectMemberPermissions(t *testing.T) {
	e, s, db := newTestServices(t)
	admin := seedTestUser(t, db, types.AdminRole)
	viewer := seedTestUser(t, db, types.ViewerRole)
	project := seedTestProject(t, db, admin)

	handler := s.ProjectPermissionMiddleware(types.CapCreateTask)(s.createTask)

	rec := httptest.NewRecorder()
	ctx := newProjectContext(e, jsonRequest("POST", map[string]string{"title": "Task"}), rec, viewer, project, types.ViewerRole)
	require.NoError(t, handler(ctx))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// глобальный админ проходит без членства в проекте
	rec = httptest.NewRecorder()
	adminCtx := ProjectContext{
		AuthContext: AuthContext{
			Context: e.NewContext(jsonRequest("POST", map[string]string{"title": "Task"}), rec),
			User:    &admin,
		},
		Project: project,
	}
	require.NoError(t, handler(adminCtx))
	require.Equal(t, http.StatusOK, rec.Code)
}
