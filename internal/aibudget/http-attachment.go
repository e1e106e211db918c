// Вложения: загрузка файлов в хранилище и привязка ровно к одной сущности
// проекта (проект, эпик, история или задача).
package aibudget

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aisa-it/aibudget/internal/aibudget/apierrors"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"github.com/aisa-it/aibudget/internal/aibudget/utils"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type AttachmentContext struct {
	ProjectContext
	Row dao.Attachment
}

func (s *Services) AttachmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		project := c.(ProjectContext).Project

		var attachment dao.Attachment
		if err := s.db.
			Joins("UploadedBy").
			Where("attachments.id = ?", c.Param("attachmentId")).
			Where(s.db.
				Where("attachments.project_id = ?", project.Id).
				Or("attachments.epic_id IN (?)", s.db.Model(&dao.Epic{}).Select("id").Where("project_id = ?", project.Id)).
				Or("attachments.story_id IN (?)", s.db.Model(&dao.Story{}).Select("id").Where("project_id = ?", project.Id)).
				Or("attachments.task_id IN (?)", s.db.Model(&dao.Task{}).Select("id").Where("project_id = ?", project.Id))).
			First(&attachment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrAttachmentNotFound)
			}
			return EError(c, err)
		}
		return next(AttachmentContext{c.(ProjectContext), attachment})
	}
}

func (s *Services) AddAttachmentServices(g *echo.Group) {
	g.GET("/attachments/", s.getAttachmentList)
	g.POST("/attachments/", s.createAttachment, s.ProjectPermissionMiddleware(types.CapManageAttachments))

	attachmentGroup := g.Group("/attachments/:attachmentId", s.AttachmentMiddleware)
	attachmentGroup.GET("/", s.getAttachment)
	attachmentGroup.DELETE("/", s.deleteAttachment, s.ProjectPermissionMiddleware(types.CapManageAttachments))
}

// getAttachmentList godoc
// @id getAttachmentList
// @Summary Вложения: список вложений
// @Description Возвращает вложения родительской сущности. Без параметров
// отдает вложения самого проекта.
// @Tags Attachments
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param epic_id query string false "Вложения эпика"
// @Param story_id query string false "Вложения истории"
// @Param task_id query string false "Вложения задачи"
// @Success 200 {array} dto.Attachment "Вложения"
// @Router /api/auth/projects/{projectId}/attachments/ [get]
func (s *Services) getAttachmentList(c echo.Context) error {
	project := c.(ProjectContext).Project

	query := s.db.Joins("UploadedBy").Order("attachments.created_at")

	switch {
	case c.QueryParam("epic_id") != "":
		query = query.Where("attachments.epic_id IN (?)",
			s.db.Model(&dao.Epic{}).Select("id").
				Where("project_id = ?", project.Id).
				Where("id = ?", c.QueryParam("epic_id")))
	case c.QueryParam("story_id") != "":
		query = query.Where("attachments.story_id IN (?)",
			s.db.Model(&dao.Story{}).Select("id").
				Where("project_id = ?", project.Id).
				Where("id = ?", c.QueryParam("story_id")))
	case c.QueryParam("task_id") != "":
		query = query.Where("attachments.task_id IN (?)",
			s.db.Model(&dao.Task{}).Select("id").
				Where("project_id = ?", project.Id).
				Where("id = ?", c.QueryParam("task_id")))
	default:
		query = query.Where("attachments.project_id = ?", project.Id)
	}

	var attachments []dao.Attachment
	if err := query.Find(&attachments).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&attachments, func(a *dao.Attachment) dto.Attachment { return *a.ToDTO() }))
}

// createAttachment godoc
// @id createAttachment
// @Summary Вложения: загрузка вложения
// @Description Принимает multipart-файл и привязывает его ровно к одной
// сущности: эпику, истории или задаче через форму, либо к проекту по
// умолчанию.
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param file formData file true "Файл"
// @Param epic_id formData string false "ID эпика"
// @Param story_id formData string false "ID истории"
// @Param task_id formData string false "ID задачи"
// @Success 200 {object} dto.Attachment "Созданное вложение"
// @Failure 400 {object} apierrors.DefinedError "Файл не передан или указано несколько родителей"
// @Router /api/auth/projects/{projectId}/attachments/ [post]
func (s *Services) createAttachment(c echo.Context) error {
	ctx := c.(ProjectContext)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return EErrorDefined(c, apierrors.ErrAttachmentFileRequired)
	}

	attachment := dao.Attachment{
		Id:           dao.GenUUID(),
		UploadedById: ctx.User.ID,
		Name:         fileHeader.Filename,
		FileSize:     int(fileHeader.Size),
		ContentType:  fileHeader.Header.Get("Content-Type"),
	}

	parents := 0
	if epicId := c.FormValue("epic_id"); epicId != "" {
		epicUUID, err := uuid.FromString(epicId)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrEpicNotFound)
		}
		var exists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Epic{}).
			Where("id = ? AND project_id = ?", epicUUID, ctx.Project.Id).
			Find(&exists).Error; err != nil {
			return EError(c, err)
		}
		if !exists {
			return EErrorDefined(c, apierrors.ErrEpicNotFound)
		}
		attachment.EpicId = uuid.NullUUID{UUID: epicUUID, Valid: true}
		parents++
	}
	if storyId := c.FormValue("story_id"); storyId != "" {
		storyUUID, err := uuid.FromString(storyId)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrStoryNotFound)
		}
		var exists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Story{}).
			Where("id = ? AND project_id = ?", storyUUID, ctx.Project.Id).
			Find(&exists).Error; err != nil {
			return EError(c, err)
		}
		if !exists {
			return EErrorDefined(c, apierrors.ErrStoryNotFound)
		}
		attachment.StoryId = uuid.NullUUID{UUID: storyUUID, Valid: true}
		parents++
	}
	if taskId := c.FormValue("task_id"); taskId != "" {
		taskUUID, err := uuid.FromString(taskId)
		if err != nil {
			return EErrorDefined(c, apierrors.ErrTaskNotFound)
		}
		var exists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Task{}).
			Where("id = ? AND project_id = ?", taskUUID, ctx.Project.Id).
			Find(&exists).Error; err != nil {
			return EError(c, err)
		}
		if !exists {
			return EErrorDefined(c, apierrors.ErrTaskNotFound)
		}
		attachment.TaskId = uuid.NullUUID{UUID: taskUUID, Valid: true}
		parents++
	}

	if parents > 1 {
		return EErrorDefined(c, apierrors.ErrAttachmentParentInvalid)
	}
	if parents == 0 {
		attachment.ProjectId = uuid.NullUUID{UUID: ctx.Project.Id, Valid: true}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return EError(c, err)
	}
	defer src.Close()

	if err := s.storage.SaveReader(src, fileHeader.Size, attachment.Id, attachment.ContentType); err != nil {
		return EError(c, err)
	}

	if err := s.db.Create(&attachment).Error; err != nil {
		if delErr := s.storage.Delete(attachment.Id); delErr != nil {
			return EError(c, fmt.Errorf("create attachment: %w (orphan cleanup: %v)", err, delErr))
		}
		return EError(c, err)
	}

	if err := s.db.
		Joins("UploadedBy").
		Where("attachments.id = ?", attachment.Id).
		First(&attachment).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, attachment.ToDTO())
}

// getAttachment godoc
// @id getAttachment
// @Summary Вложения: скачивание вложения
// @Tags Attachments
// @Produce octet-stream
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param attachmentId path string true "ID вложения"
// @Success 200 {file} file "Содержимое файла"
// @Failure 404 {object} apierrors.DefinedError "Вложение не найдено"
// @Router /api/auth/projects/{projectId}/attachments/{attachmentId}/ [get]
func (s *Services) getAttachment(c echo.Context) error {
	attachment := c.(AttachmentContext).Row

	reader, err := s.storage.LoadReader(attachment.Id)
	if err != nil {
		return EError(c, err)
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", attachment.Name))

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, reader)
}

// deleteAttachment godoc
// @id deleteAttachment
// @Summary Вложения: удаление вложения
// @Description Удаляет запись вместе с объектом в файловом хранилище.
// @Tags Attachments
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param attachmentId path string true "ID вложения"
// @Success 204 "Вложение удалено"
// @Failure 404 {object} apierrors.DefinedError "Вложение не найдено"
// @Router /api/auth/projects/{projectId}/attachments/{attachmentId}/ [delete]
func (s *Services) deleteAttachment(c echo.Context) error {
	attachment := c.(AttachmentContext).Row

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&attachment).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
