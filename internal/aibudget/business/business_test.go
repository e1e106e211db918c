package business

import (
	"testing"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testBL(t *testing.T) (*Business, *gorm.DB) {
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

	cfg := &config.Config{AtRiskThreshold: 0.1}
	return NewBL(db, cfg, nil), db
}

func seedProject(t *testing.T, db *gorm.DB, totalBudget float64) (dao.Project, dao.User) {
	t.Helper()

	user := dao.User{
		ID:    dao.GenID(),
		Email: dao.GenID() + "@example.com",
		Role:  types.AdminRole,
	}
	require.NoError(t, db.Create(&user).Error)

	project := dao.Project{
		Id:          dao.GenUUID(),
		Name:        "Test project",
		Identifier:  "TP" + dao.GenID()[:6],
		OwnerId:     user.ID,
		TotalBudget: totalBudget,
	}
	require.NoError(t, db.Create(&project).Error)
	return project, user
}

func seedExpense(t *testing.T, db *gorm.DB, project dao.Project, submitter dao.User, amount float64, status types.ExpenseStatus) dao.Expense {
	t.Helper()

	expense := dao.Expense{
		Id:            dao.GenUUID(),
		ProjectId:     project.Id,
		Amount:        amount,
		PaymentStatus: status,
		SubmittedById: submitter.ID,
	}
	require.NoError(t, db.Create(&expense).Error)
	return expense
}

func TestBudgetSummary(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 10000)

	seedExpense(t, db, project, user, 3000, types.ExpenseApproved)
	seedExpense(t, db, project, user, 2000, types.ExpenseApproved)
	seedExpense(t, db, project, user, 1000, types.ExpensePending)
	seedExpense(t, db, project, user, 500, types.ExpenseRejected)

	summary, err := bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.Equal(t, float64(10000), summary.TotalBudget)
	require.Equal(t, float64(5000), summary.Spent)
	require.Equal(t, float64(1000), summary.Pending)
	require.Equal(t, float64(5000), summary.Remaining)
	require.False(t, summary.AtRisk)

	// под порогом в 10% от общего бюджета
	seedExpense(t, db, project, user, 4500, types.ExpenseApproved)

	summary, err = bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.Equal(t, float64(9500), summary.Spent)
	require.Equal(t, float64(500), summary.Remaining)
	require.True(t, summary.AtRisk)
}

func TestBudgetSummaryOverspent(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 1000)

	seedExpense(t, db, project, user, 1500, types.ExpenseApproved)

	summary, err := bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.Equal(t, float64(-500), summary.Remaining)
	require.True(t, summary.AtRisk)
}

func TestBudgetSummaryZeroBudget(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 0)

	summary, err := bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.False(t, summary.AtRisk)

	seedExpense(t, db, project, user, 10, types.ExpenseApproved)

	summary, err = bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.True(t, summary.AtRisk)
}

func TestBudgetSummaryItems(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 10000)

	item := dao.BudgetItem{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Name:      "Hosting",
		Amount:    2000,
	}
	require.NoError(t, db.Create(&item).Error)

	expense := seedExpense(t, db, project, user, 700, types.ExpenseApproved)
	require.NoError(t, db.Model(&expense).Update("budget_item_id", item.Id).Error)
	pending := seedExpense(t, db, project, user, 300, types.ExpensePending)
	require.NoError(t, db.Model(&pending).Update("budget_item_id", item.Id).Error)

	summary, err := bl.GetBudgetSummary(project)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	require.Equal(t, float64(700), summary.Items[0].Spent)
	require.Equal(t, float64(1300), summary.Items[0].Remaining)
}

func TestApproveExpense(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 10000)
	expense := seedExpense(t, db, project, user, 1000, types.ExpensePending)

	require.NoError(t, bl.ApproveExpense(&expense, user))

	var saved dao.Expense
	require.NoError(t, db.Where("id = ?", expense.Id).First(&saved).Error)
	require.Equal(t, types.ExpenseApproved, saved.PaymentStatus)
	require.NotNil(t, saved.ApprovedById)
	require.Equal(t, user.ID, *saved.ApprovedById)
	require.NotNil(t, saved.ApprovedAt)

	var savedProject dao.Project
	require.NoError(t, db.Where("id = ?", project.Id).First(&savedProject).Error)
	require.Equal(t, float64(1000), savedProject.UsedBudget)

	// решение по расходу финальное
	require.ErrorIs(t, bl.ApproveExpense(&expense, user), apierrors.ErrExpenseNotPending)
	require.ErrorIs(t, bl.RejectExpense(&expense, user), apierrors.ErrExpenseNotPending)
}

func TestRejectExpense(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 10000)
	expense := seedExpense(t, db, project, user, 1000, types.ExpensePending)

	require.NoError(t, bl.RejectExpense(&expense, user))

	var saved dao.Expense
	require.NoError(t, db.Where("id = ?", expense.Id).First(&saved).Error)
	require.Equal(t, types.ExpenseRejected, saved.PaymentStatus)

	// отклоненный расход не попадает в потраченное
	var savedProject dao.Project
	require.NoError(t, db.Where("id = ?", project.Id).First(&savedProject).Error)
	require.Equal(t, float64(0), savedProject.UsedBudget)

	require.ErrorIs(t, bl.ApproveExpense(&expense, user), apierrors.ErrExpenseNotPending)
}

func seedBoard(t *testing.T, db *gorm.DB, project dao.Project) dao.Board {
	t.Helper()

	board := dao.Board{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Name:      "Main",
	}
	require.NoError(t, db.Create(&board).Error)
	return board
}

func seedSprint(t *testing.T, db *gorm.DB, board dao.Board, user dao.User, status types.SprintStatus, seq int) dao.Sprint {
	t.Helper()

	sprint := dao.Sprint{
		Id:          dao.GenUUID(),
		BoardId:     board.Id,
		CreatedById: user.ID,
		Name:        "Sprint",
		SequenceId:  seq,
		Status:      status,
	}
	require.NoError(t, db.Create(&sprint).Error)
	return sprint
}

func TestStartSprint(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 0)
	board := seedBoard(t, db, project)
	sprint := seedSprint(t, db, board, user, types.SprintPlanning, 1)

	start := time.Now()
	require.ErrorIs(t, bl.StartSprint(&sprint, start, start), apierrors.ErrSprintDatesInvalid)
	require.ErrorIs(t, bl.StartSprint(&sprint, start, start.Add(-time.Hour)), apierrors.ErrSprintDatesInvalid)

	require.NoError(t, bl.StartSprint(&sprint, start, start.Add(14*24*time.Hour)))

	var saved dao.Sprint
	require.NoError(t, db.Where("id = ?", sprint.Id).First(&saved).Error)
	require.Equal(t, types.SprintActive, saved.Status)
	require.True(t, saved.IsLocked)
	require.True(t, saved.StartDate.Valid)
	require.True(t, saved.EndDate.Valid)

	// на доске может быть только один активный спринт
	second := seedSprint(t, db, board, user, types.SprintPlanning, 2)
	require.ErrorIs(t, bl.StartSprint(&second, start, start.Add(14*24*time.Hour)), apierrors.ErrSprintAlreadyActive)

	// на другой доске - можно
	otherBoard := seedBoard(t, db, project)
	otherSprint := seedSprint(t, db, otherBoard, user, types.SprintPlanning, 1)
	require.NoError(t, bl.StartSprint(&otherSprint, start, start.Add(14*24*time.Hour)))

	// повторный запуск уже активного спринта
	require.ErrorIs(t, bl.StartSprint(&sprint, start, start.Add(14*24*time.Hour)), apierrors.ErrSprintNotPlanning)
}

func TestCompleteSprint(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 0)
	board := seedBoard(t, db, project)
	sprint := seedSprint(t, db, board, user, types.SprintActive, 1)

	epic := dao.Epic{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)

	done := dao.Story{
		Id:        dao.GenUUID(),
		EpicId:    epic.Id,
		ProjectId: project.Id,
		SprintId:  uuid.NullUUID{UUID: sprint.Id, Valid: true},
		Title:     "Done story",
		Status:    types.StoryDone,
		IsReady:   true,
	}
	unfinished := dao.Story{
		Id:        dao.GenUUID(),
		EpicId:    epic.Id,
		ProjectId: project.Id,
		SprintId:  uuid.NullUUID{UUID: sprint.Id, Valid: true},
		Title:     "Unfinished story",
		Status:    types.StoryInProgress,
		IsReady:   true,
	}
	require.NoError(t, db.Create(&done).Error)
	require.NoError(t, db.Create(&unfinished).Error)

	require.NoError(t, bl.CompleteSprint(&sprint))

	var saved dao.Sprint
	require.NoError(t, db.Where("id = ?", sprint.Id).First(&saved).Error)
	require.Equal(t, types.SprintCompleted, saved.Status)

	// незавершенная история вернулась в бэклог, завершенная осталась в спринте
	var savedDone, savedUnfinished dao.Story
	require.NoError(t, db.Where("id = ?", done.Id).First(&savedDone).Error)
	require.NoError(t, db.Where("id = ?", unfinished.Id).First(&savedUnfinished).Error)
	require.True(t, savedDone.SprintId.Valid)
	require.False(t, savedUnfinished.SprintId.Valid)

	require.ErrorIs(t, bl.CompleteSprint(&sprint), apierrors.ErrSprintNotActive)

	// после завершения можно запустить следующий спринт
	next := seedSprint(t, db, board, user, types.SprintPlanning, 2)
	require.NoError(t, bl.StartSprint(&next, time.Now(), time.Now().Add(14*24*time.Hour)))
}

func TestAssignStoryToSprint(t *testing.T) {
	bl, db := testBL(t)
	project, user := seedProject(t, db, 0)
	board := seedBoard(t, db, project)
	sprint := seedSprint(t, db, board, user, types.SprintPlanning, 1)

	epic := dao.Epic{Id: dao.GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)

	story := dao.Story{
		Id:        dao.GenUUID(),
		EpicId:    epic.Id,
		ProjectId: project.Id,
		Title:     "Story",
		Status:    types.StoryToDo,
	}
	require.NoError(t, db.Create(&story).Error)

	sprintId := sprint.Id.String()

	// неготовая история не может попасть в спринт
	require.ErrorIs(t, bl.AssignStoryToSprint(&story, &sprintId), apierrors.ErrStoryNotReady)

	require.NoError(t, db.Model(&story).Update("is_ready", true).Error)
	story.IsReady = true
	require.NoError(t, bl.AssignStoryToSprint(&story, &sprintId))

	var saved dao.Story
	require.NoError(t, db.Where("id = ?", story.Id).First(&saved).Error)
	require.True(t, saved.SprintId.Valid)
	require.Equal(t, sprint.Id, saved.SprintId.UUID)

	// возврат в бэклог
	require.NoError(t, bl.AssignStoryToSprint(&story, nil))
	var cleared dao.Story
	require.NoError(t, db.Where("id = ?", story.Id).First(&cleared).Error)
	require.False(t, cleared.SprintId.Valid)

	missing := dao.GenUUID().String()
	require.ErrorIs(t, bl.AssignStoryToSprint(&story, &missing), apierrors.ErrSprintNotFound)

	bad := "not-a-uuid"
	require.ErrorIs(t, bl.AssignStoryToSprint(&story, &bad), apierrors.ErrSprintNotFound)

	completed := seedSprint(t, db, board, user, types.SprintCompleted, 2)
	completedId := completed.Id.String()
	require.ErrorIs(t, bl.AssignStoryToSprint(&story, &completedId), apierrors.ErrSprintLocked)
}

func seedTask(t *testing.T, db *gorm.DB, project dao.Project, title string) dao.Task {
	t.Helper()

	task := dao.Task{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		Title:     title,
		Status:    types.TaskCreated,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func TestAddTaskDependency(t *testing.T) {
	bl, db := testBL(t)
	project, _ := seedProject(t, db, 0)

	a := seedTask(t, db, project, "A")
	b := seedTask(t, db, project, "B")

	_, err := bl.AddTaskDependency(&a, a.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencySelf)

	_, err = bl.AddTaskDependency(&a, b.Id, types.DependencyType("unknown"))
	require.ErrorIs(t, err, apierrors.ErrDependencyTypeInvalid)

	_, err = bl.AddTaskDependency(&a, dao.GenUUID(), types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyTargetMissed)

	// задача другого проекта недоступна как цель
	otherProject, _ := seedProject(t, db, 0)
	foreign := seedTask(t, db, otherProject, "Foreign")
	_, err = bl.AddTaskDependency(&a, foreign.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyTargetMissed)

	dep, err := bl.AddTaskDependency(&a, b.Id, types.DepBlocks)
	require.NoError(t, err)
	require.NotNil(t, dep.Target)
	require.Equal(t, b.Id, dep.Target.Id)

	_, err = bl.AddTaskDependency(&a, b.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyExists)

	// та же пара с другим типом - не дубликат
	_, err = bl.AddTaskDependency(&a, b.Id, types.DepRelatesTo)
	require.NoError(t, err)
}

func TestTaskDependencyCycle(t *testing.T) {
	bl, db := testBL(t)
	project, _ := seedProject(t, db, 0)

	a := seedTask(t, db, project, "A")
	b := seedTask(t, db, project, "B")
	c := seedTask(t, db, project, "C")

	_, err := bl.AddTaskDependency(&a, b.Id, types.DepBlocks)
	require.NoError(t, err)
	_, err = bl.AddTaskDependency(&b, c.Id, types.DepBlocks)
	require.NoError(t, err)

	// C -> A замкнуло бы цикл A -> B -> C -> A
	_, err = bl.AddTaskDependency(&c, a.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyCycle)

	// то же ребро, записанное с другой стороны
	_, err = bl.AddTaskDependency(&a, c.Id, types.DepIsBlockedBy)
	require.ErrorIs(t, err, apierrors.ErrDependencyCycle)

	// неблокирующие связи циклы не ограничивают
	_, err = bl.AddTaskDependency(&c, a.Id, types.DepRelatesTo)
	require.NoError(t, err)

	// прямое обратное ребро тоже цикл
	_, err = bl.AddTaskDependency(&b, a.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyCycle)
}

func TestTaskDependencyBlockedByOrientation(t *testing.T) {
	bl, db := testBL(t)
	project, _ := seedProject(t, db, 0)

	a := seedTask(t, db, project, "A")
	b := seedTask(t, db, project, "B")

	// A is_blocked_by B означает B -> A
	_, err := bl.AddTaskDependency(&a, b.Id, types.DepIsBlockedBy)
	require.NoError(t, err)

	_, err = bl.AddTaskDependency(&a, b.Id, types.DepBlocks)
	require.ErrorIs(t, err, apierrors.ErrDependencyCycle)
}

func TestRemoveTaskDependency(t *testing.T) {
	bl, db := testBL(t)
	project, _ := seedProject(t, db, 0)

	a := seedTask(t, db, project, "A")
	b := seedTask(t, db, project, "B")

	dep, err := bl.AddTaskDependency(&a, b.Id, types.DepBlocks)
	require.NoError(t, err)

	require.NoError(t, bl.RemoveTaskDependency(&a, dep.Id))
	require.ErrorIs(t, bl.RemoveTaskDependency(&a, dep.Id), apierrors.ErrDependencyTargetMissed)

	// после удаления обратное ребро снова допустимо
	_, err = bl.AddTaskDependency(&b, a.Id, types.DepBlocks)
	require.NoError(t, err)
}
