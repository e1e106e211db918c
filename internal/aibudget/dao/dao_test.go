package dao

import (
	"testing"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{}, &Client{}, &Project{}, &ProjectMember{}, &Board{}, &Epic{},
		&Story{}, &Sprint{}, &Task{}, &TaskDependency{}, &Label{}, &TaskLabel{},
		&BudgetItem{}, &Expense{}, &Attachment{},
	))
	return db
}

func seed(t *testing.T, db *gorm.DB) (User, Project) {
	t.Helper()

	user := User{ID: GenID(), Email: GenID() + "@example.com", Role: types.AdminRole}
	require.NoError(t, db.Create(&user).Error)

	project := Project{
		Id:         GenUUID(),
		Name:       "Project",
		Identifier: "PRJ" + GenID()[:5],
		OwnerId:    user.ID,
	}
	require.NoError(t, db.Create(&project).Error)
	return user, project
}

func TestProjectOwnerMembership(t *testing.T) {
	db := testDB(t)
	user, project := seed(t, db)

	var member ProjectMember
	require.NoError(t, db.Where("project_id = ? AND member_id = ?", project.Id, user.ID).First(&member).Error)
	require.Equal(t, types.AdminRole, member.Role)
}

func TestAttachmentParentInvariant(t *testing.T) {
	db := testDB(t)
	user, project := seed(t, db)

	// без родителя
	err := db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "orphan.txt",
	}).Error
	require.ErrorIs(t, err, apierrors.ErrAttachmentParentInvalid)

	epic := Epic{Id: GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)

	// два родителя сразу
	err = db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "double.txt",
		ProjectId:    uuid.NullUUID{UUID: project.Id, Valid: true},
		EpicId:       uuid.NullUUID{UUID: epic.Id, Valid: true},
	}).Error
	require.ErrorIs(t, err, apierrors.ErrAttachmentParentInvalid)

	// ровно один
	require.NoError(t, db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "ok.txt",
		EpicId:       uuid.NullUUID{UUID: epic.Id, Valid: true},
	}).Error)
}

func TestTaskSequencePerProject(t *testing.T) {
	db := testDB(t)
	_, project := seed(t, db)
	_, otherProject := seed(t, db)

	for i := 1; i <= 3; i++ {
		task := Task{Id: GenUUID(), ProjectId: project.Id, Title: "Task"}
		require.NoError(t, db.Create(&task).Error)
		require.Equal(t, i, task.SequenceId)
	}

	// нумерация независима по проектам
	other := Task{Id: GenUUID(), ProjectId: otherProject.Id, Title: "Task"}
	require.NoError(t, db.Create(&other).Error)
	require.Equal(t, 1, other.SequenceId)
}

func TestTaskDeleteCleansEdges(t *testing.T) {
	db := testDB(t)
	_, project := seed(t, db)

	a := Task{Id: GenUUID(), ProjectId: project.Id, Title: "A"}
	b := Task{Id: GenUUID(), ProjectId: project.Id, Title: "B"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	require.NoError(t, db.Create(&TaskDependency{
		Id: GenUUID(), TaskId: a.Id, TargetId: b.Id, Type: types.DepBlocks,
	}).Error)
	require.NoError(t, db.Create(&TaskDependency{
		Id: GenUUID(), TaskId: b.Id, TargetId: a.Id, Type: types.DepRelatesTo,
	}).Error)

	require.NoError(t, db.Delete(&a).Error)

	// ребра чистятся в обе стороны
	var count int64
	require.NoError(t, db.Model(&TaskDependency{}).
		Where("task_id = ? OR target_id = ?", a.Id, a.Id).
		Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestStoryDeleteDetachesTasks(t *testing.T) {
	db := testDB(t)
	_, project := seed(t, db)

	epic := Epic{Id: GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)
	story := Story{Id: GenUUID(), EpicId: epic.Id, ProjectId: project.Id, Title: "Story"}
	require.NoError(t, db.Create(&story).Error)

	task := Task{
		Id:        GenUUID(),
		ProjectId: project.Id,
		Title:     "Task",
		StoryId:   uuid.NullUUID{UUID: story.Id, Valid: true},
	}
	require.NoError(t, db.Create(&task).Error)

	require.NoError(t, db.Delete(&story).Error)

	var saved Task
	require.NoError(t, db.Where("id = ?", task.Id).First(&saved).Error)
	require.False(t, saved.StoryId.Valid)
}

func TestStoryDeleteRemovesAttachments(t *testing.T) {
	db := testDB(t)
	user, project := seed(t, db)

	epic := Epic{Id: GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)
	story := Story{Id: GenUUID(), EpicId: epic.Id, ProjectId: project.Id, Title: "Story"}
	require.NoError(t, db.Create(&story).Error)

	require.NoError(t, db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "spec.pdf",
		StoryId:      uuid.NullUUID{UUID: story.Id, Valid: true},
	}).Error)

	require.NoError(t, db.Delete(&story).Error)

	var count int64
	require.NoError(t, db.Model(&Attachment{}).
		Where("story_id = ?", story.Id).
		Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestEpicDeleteRemovesAttachments(t *testing.T) {
	db := testDB(t)
	user, project := seed(t, db)

	epic := Epic{Id: GenUUID(), ProjectId: project.Id, Name: "Epic"}
	require.NoError(t, db.Create(&epic).Error)
	story := Story{Id: GenUUID(), EpicId: epic.Id, ProjectId: project.Id, Title: "Story"}
	require.NoError(t, db.Create(&story).Error)

	require.NoError(t, db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "roadmap.pdf",
		EpicId:       uuid.NullUUID{UUID: epic.Id, Valid: true},
	}).Error)
	require.NoError(t, db.Create(&Attachment{
		Id:           GenUUID(),
		UploadedById: user.ID,
		Name:         "mockup.png",
		StoryId:      uuid.NullUUID{UUID: story.Id, Valid: true},
	}).Error)

	require.NoError(t, db.Delete(&epic).Error)

	// вложения чистятся и у эпика, и у его историй
	var count int64
	require.NoError(t, db.Model(&Attachment{}).
		Where("epic_id = ? OR story_id = ?", epic.Id, story.Id).
		Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestBudgetItemDeleteDetachesExpenses(t *testing.T) {
	db := testDB(t)
	user, project := seed(t, db)

	item := BudgetItem{Id: GenUUID(), ProjectId: project.Id, Name: "Hosting", Amount: 100}
	require.NoError(t, db.Create(&item).Error)

	expense := Expense{
		Id:            GenUUID(),
		ProjectId:     project.Id,
		Amount:        50,
		PaymentStatus: types.ExpensePending,
		SubmittedById: user.ID,
		BudgetItemId:  uuid.NullUUID{UUID: item.Id, Valid: true},
	}
	require.NoError(t, db.Create(&expense).Error)

	require.NoError(t, db.Delete(&item).Error)

	var saved Expense
	require.NoError(t, db.Where("id = ?", expense.Id).First(&saved).Error)
	require.False(t, saved.BudgetItemId.Valid)
}
