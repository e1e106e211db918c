// Управление проектами: CRUD проектов, участники, сводка бюджета.
// ProjectMiddleware резолвит проект по ID или идентификатору и кладет его
// в контекст вместе с членством текущего пользователя.
package aibudget

import (
	"errors"
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

type ProjectContext struct {
	AuthContext
	Project dao.Project
}

func (s *Services) ProjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId := c.Param("projectId")
		user := c.(AuthContext).User

		var project dao.Project
		query := s.db.
			Joins("Owner").
			Joins("Client")

		if val, err := uuid.FromString(projectId); err != nil {
			query = query.Where("projects.identifier = ?", projectId)
		} else {
			query = query.Where("projects.id = ?", val.String())
		}

		if err := query.First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrProjectNotFound)
			}
			return EError(c, err)
		}

		var membership dao.ProjectMember
		err := s.db.
			Where("project_id = ?", project.Id).
			Where("member_id = ?", user.ID).
			First(&membership).Error
		if err == nil {
			project.CurrentUserMembership = &membership
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return EError(c, err)
		} else if user.Role != types.AdminRole {
			return EErrorDefined(c, apierrors.ErrProjectForbidden)
		}

		return next(ProjectContext{c.(AuthContext), project})
	}
}

func (s *Services) AddProjectServices(g *echo.Group) {
	g.GET("projects/", s.getProjectList)
	g.POST("projects/", s.createProject, RequireCapability(types.CapManageProject))

	projectGroup := g.Group("projects/:projectId", s.ProjectMiddleware)

	projectGroup.GET("/", s.getProject)
	projectGroup.PATCH("/", s.updateProject, s.ProjectPermissionMiddleware(types.CapManageProject))
	projectGroup.DELETE("/", s.deleteProject, s.ProjectPermissionMiddleware(types.CapManageProject))

	projectGroup.GET("/budget/", s.getProjectBudgetSummary)

	membersGroup := projectGroup.Group("/members")
	membersGroup.GET("/", s.getProjectMemberList)
	membersGroup.POST("/", s.addProjectMember, s.ProjectPermissionMiddleware(types.CapManageMembers))
	membersGroup.PATCH("/:memberId/", s.updateProjectMember, s.ProjectPermissionMiddleware(types.CapManageMembers))
	membersGroup.DELETE("/:memberId/", s.removeProjectMember, s.ProjectPermissionMiddleware(types.CapManageMembers))

	s.AddBoardServices(projectGroup)
	s.AddSprintServices(projectGroup)
	s.AddEpicServices(projectGroup)
	s.AddStoryServices(projectGroup)
	s.AddTaskServices(projectGroup)
	s.AddBudgetServices(projectGroup)
	s.AddExpenseServices(projectGroup)
	s.AddAttachmentServices(projectGroup)
}

// getProjectList godoc
// @id getProjectList
// @Summary Проекты: список доступных проектов
// @Description Возвращает проекты, в которых состоит пользователь.
// Глобальный администратор видит все проекты.
// @Tags Projects
// @Produce json
// @Security ApiKeyAuth
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Param search_query query string false "Поиск по названию и идентификатору"
// @Success 200 {object} dao.PaginationResponse{result=[]dto.ProjectLight} "Проекты"
// @Router /api/auth/projects/ [get]
func (s *Services) getProjectList(c echo.Context) error {
	user := c.(AuthContext).User

	offset, limit, searchQuery, err := ExtractPaginationRequest(c)
	if err != nil {
		return EError(c, err)
	}

	query := s.db.Model(&dao.Project{}).Order("projects.created_at")
	if user.Role != types.AdminRole {
		query = query.
			Joins("JOIN project_members ON project_members.project_id = projects.id").
			Where("project_members.member_id = ?", user.ID)
	}
	if searchQuery != "" {
		search := PrepareSearchRequest(searchQuery)
		query = query.Where(
			"lower(projects.name) LIKE ? OR lower(projects.identifier) LIKE ?",
			search, search)
	}

	var projects []dao.Project
	res, err := dao.PaginationRequest(offset, limit, query, &projects)
	if err != nil {
		return EError(c, err)
	}

	resp := res
	resp.Result = utils.SliceToSlice(&projects, func(p *dao.Project) dto.ProjectLight { return *p.ToLightDTO() })
	return c.JSON(http.StatusOK, resp)
}

// createProject godoc
// @id createProject
// @Summary Проекты: создание проекта
// @Description Создает проект. Автор становится владельцем и участником с ролью Admin.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param data body CreateProjectRequest true "Данные проекта"
// @Success 200 {object} dto.Project "Созданный проект"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Failure 409 {object} apierrors.DefinedError "Идентификатор занят"
// @Router /api/auth/projects/ [post]
func (s *Services) createProject(c echo.Context) error {
	user := c.(AuthContext).User

	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Name == "" {
		return EErrorDefined(c, apierrors.ErrProjectNameRequired)
	}
	if req.Type != "" && !req.Type.Valid() {
		return EErrorDefined(c, apierrors.ErrProjectTypeInvalid)
	}
	if req.TotalBudget < 0 {
		return EErrorDefined(c, apierrors.ErrProjectBudgetNegative)
	}
	if err := c.Validate(req); err != nil {
		return EErrorMsg(c, err)
	}

	if req.ClientId != nil {
		var clientExists bool
		if err := s.db.Select("count(*) > 0").
			Model(&dao.Client{}).
			Where("id = ?", *req.ClientId).
			Find(&clientExists).Error; err != nil {
			return EError(c, err)
		}
		if !clientExists {
			return EErrorDefined(c, apierrors.ErrClientNotFound)
		}
	}

	project := dao.Project{
		Id:      dao.GenUUID(),
		OwnerId: user.ID,
	}
	req.Bind(&project)

	if err := s.db.Create(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrProjectIdentifierConflict)
		}
		return EError(c, err)
	}

	if err := s.db.
		Joins("Owner").
		Joins("Client").
		Preload("Members.Member").
		Where("projects.id = ?", project.Id).
		First(&project).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, project.ToDTO())
}

// getProject godoc
// @id getProject
// @Summary Проекты: получение проекта
// @Tags Projects
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {object} dto.Project "Проект"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/ [get]
func (s *Services) getProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	if err := s.db.Preload("Members.Member").
		Where("projects.id = ?", project.Id).
		First(&project).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, project.ToDTO())
}

type UpdateProjectRequest struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,projectName"`
	Status      *string            `json:"status,omitempty"`
	Type        *types.ProjectType `json:"type,omitempty"`
	ClientId    *string            `json:"client_id,omitempty"`
	TotalBudget *float64           `json:"total_budget,omitempty"`
}

// updateProject godoc
// @id updateProject
// @Summary Проекты: обновление проекта
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body UpdateProjectRequest true "Изменяемые поля"
// @Success 200 {object} dto.Project "Обновленный проект"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав"
// @Router /api/auth/projects/{projectId}/ [patch]
func (s *Services) updateProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(req); err != nil {
		return EErrorMsg(c, err)
	}

	var fields []string
	if req.Name != nil {
		project.Name = *req.Name
		fields = append(fields, "name")
	}
	if req.Status != nil {
		project.Status = *req.Status
		fields = append(fields, "status")
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return EErrorDefined(c, apierrors.ErrProjectTypeInvalid)
		}
		project.Type = *req.Type
		fields = append(fields, "type")
	}
	if req.TotalBudget != nil {
		if *req.TotalBudget < 0 {
			return EErrorDefined(c, apierrors.ErrProjectBudgetNegative)
		}
		project.TotalBudget = *req.TotalBudget
		fields = append(fields, "total_budget")
	}
	if req.ClientId != nil {
		if *req.ClientId == "" {
			project.ClientId = uuid.NullUUID{}
		} else {
			clientUUID, err := uuid.FromString(*req.ClientId)
			if err != nil {
				return EErrorDefined(c, apierrors.ErrClientNotFound)
			}
			var clientExists bool
			if err := s.db.Select("count(*) > 0").
				Model(&dao.Client{}).
				Where("id = ?", clientUUID).
				Find(&clientExists).Error; err != nil {
				return EError(c, err)
			}
			if !clientExists {
				return EErrorDefined(c, apierrors.ErrClientNotFound)
			}
			project.ClientId = uuid.NullUUID{UUID: clientUUID, Valid: true}
		}
		fields = append(fields, "client_id")
	}

	if len(fields) > 0 {
		if err := s.db.Model(&project).Select(fields).Updates(&project).Error; err != nil {
			return EError(c, err)
		}
	}

	if err := s.db.
		Joins("Owner").
		Joins("Client").
		Preload("Members.Member").
		Where("projects.id = ?", project.Id).
		First(&project).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, project.ToDTO())
}

// deleteProject godoc
// @id deleteProject
// @Summary Проекты: удаление проекта
// @Description Мягко удаляет проект и каскадно все его содержимое.
// @Tags Projects
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 204 "Проект удален"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав"
// @Router /api/auth/projects/{projectId}/ [delete]
func (s *Services) deleteProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&project).Error
	}); err != nil {
		return EError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// getProjectBudgetSummary godoc
// @id getProjectBudgetSummary
// @Summary Проекты: сводка бюджета проекта
// @Description Возвращает суммы одобренных и ожидающих расходов, остаток,
// признак риска и разбивку по статьям бюджета.
// @Tags Budget
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {object} dto.BudgetSummary "Сводка бюджета"
// @Router /api/auth/projects/{projectId}/budget/ [get]
func (s *Services) getProjectBudgetSummary(c echo.Context) error {
	project := c.(ProjectContext).Project

	summary, err := s.business.GetBudgetSummary(project)
	if err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}

// getProjectMemberList godoc
// @id getProjectMemberList
// @Summary Проекты: список участников проекта
// @Tags Projects
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Success 200 {array} dto.ProjectMember "Участники"
// @Router /api/auth/projects/{projectId}/members/ [get]
func (s *Services) getProjectMemberList(c echo.Context) error {
	project := c.(ProjectContext).Project

	var members []dao.ProjectMember
	if err := s.db.
		Joins("Member").
		Where("project_members.project_id = ?", project.Id).
		Order("project_members.created_at").
		Find(&members).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK,
		utils.SliceToSlice(&members, func(m *dao.ProjectMember) dto.ProjectMember { return *m.ToDTO() }))
}

// addProjectMember godoc
// @id addProjectMember
// @Summary Проекты: добавление участника
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param data body AddMemberRequest true "Участник и роль"
// @Success 200 {object} dto.ProjectMember "Добавленный участник"
// @Failure 409 {object} apierrors.DefinedError "Участник уже в проекте"
// @Router /api/auth/projects/{projectId}/members/ [post]
func (s *Services) addProjectMember(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if !req.Role.Valid() {
		return EErrorDefined(c, apierrors.ErrUserRoleInvalid)
	}

	var user dao.User
	if err := s.db.Where("id = ?", req.MemberId).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrUserNotFound)
		}
		return EError(c, err)
	}

	member := dao.ProjectMember{
		Id:        dao.GenUUID(),
		ProjectId: project.Id,
		MemberId:  user.ID,
		Role:      req.Role,
	}

	if err := s.db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrMemberAlreadyInProject)
		}
		return EError(c, err)
	}

	member.Member = &user
	return c.JSON(http.StatusOK, member.ToDTO())
}

type UpdateMemberRequest struct {
	Role types.Role `json:"role"`
}

// updateProjectMember godoc
// @id updateProjectMember
// @Summary Проекты: изменение роли участника
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param memberId path string true "ID участника"
// @Param data body UpdateMemberRequest true "Новая роль"
// @Success 200 {object} dto.ProjectMember "Участник"
// @Failure 404 {object} apierrors.DefinedError "Участник не найден"
// @Router /api/auth/projects/{projectId}/members/{memberId}/ [patch]
func (s *Services) updateProjectMember(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if !req.Role.Valid() {
		return EErrorDefined(c, apierrors.ErrUserRoleInvalid)
	}

	var member dao.ProjectMember
	if err := s.db.
		Joins("Member").
		Where("project_members.project_id = ?", project.Id).
		Where("project_members.member_id = ?", c.Param("memberId")).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrProjectMemberNotFound)
		}
		return EError(c, err)
	}

	member.Role = req.Role
	if err := s.db.Model(&member).Select("role").Updates(&member).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, member.ToDTO())
}

// removeProjectMember godoc
// @id removeProjectMember
// @Summary Проекты: исключение участника
// @Tags Projects
// @Security ApiKeyAuth
// @Param projectId path string true "ID или идентификатор проекта"
// @Param memberId path string true "ID участника"
// @Success 204 "Участник исключен"
// @Failure 404 {object} apierrors.DefinedError "Участник не найден"
// @Router /api/auth/projects/{projectId}/members/{memberId}/ [delete]
func (s *Services) removeProjectMember(c echo.Context) error {
	project := c.(ProjectContext).Project

	result := s.db.
		Where("project_id = ?", project.Id).
		Where("member_id = ?", c.Param("memberId")).
		Delete(&dao.ProjectMember{})
	if result.Error != nil {
		return EError(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return EErrorDefined(c, apierrors.ErrProjectMemberNotFound)
	}

	return c.NoContent(http.StatusNoContent)
}
