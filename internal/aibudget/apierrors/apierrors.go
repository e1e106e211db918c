// Пакет содержит определения ошибок, используемых в приложении AIBudget.
// Каждая ошибка имеет числовой код, HTTP-статус и текст на двух языках, что
// позволяет фронтенду показывать локализованное сообщение, а клиентам API -
// различать ошибки по коду.
//
// Основные возможности:
//   - Ошибки авторизации и сессий (1xxx).
//   - Ошибки пользователей (2xxx) и клиентов компании (3xxx).
//   - Ошибки проектов и досок (4xxx), эпиков и историй (5xxx).
//   - Ошибки спринтов (6xxx) и задач (7xxx).
//   - Ошибки бюджета и расходов (8xxx), вложений (9xxx).
//   - Хелпер Format для ошибок с параметрами в тексте.
package apierrors

import (
	"fmt"
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

// Format подставляет аргументы в текст ошибки (англ. и рус.).
func (e DefinedError) Format(args ...interface{}) DefinedError {
	e.Err = fmt.Sprintf(e.Err, args...)
	e.RuErr = fmt.Sprintf(e.RuErr, args...)
	return e
}

var (
	// 1*** - auth & session errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials", RuErr: "Неправильный email или пароль"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1002, StatusCode: http.StatusUnauthorized, Err: "both email and password are required", RuErr: "Поля email и пароль не могут быть пустыми"}
	ErrSignupDisabled           = DefinedError{Code: 1003, StatusCode: http.StatusForbidden, Err: "sign up disabled", RuErr: "Регистрация отключена администратором"}
	ErrUserAlreadyExist         = DefinedError{Code: 1004, StatusCode: http.StatusConflict, Err: "user already exist", RuErr: "Пользователь с указанным email уже зарегистрирован"}
	ErrTokenInvalid             = DefinedError{Code: 1101, StatusCode: http.StatusUnauthorized, Err: "invalid token", RuErr: "Неверный токен"}
	ErrTokenExpired             = DefinedError{Code: 1102, StatusCode: http.StatusUnauthorized, Err: "token expired", RuErr: "Срок действия токена истек"}
	ErrRefreshTokenRequired     = DefinedError{Code: 1103, StatusCode: http.StatusUnauthorized, Err: "refresh token is required", RuErr: "Требуется токен обновления"}
	ErrNotEnoughRights          = DefinedError{Code: 1201, StatusCode: http.StatusForbidden, Err: "not enough rights to perform this action", RuErr: "У вас недостаточно прав для выполнения этого действия"}

	// 2*** - user errors
	ErrUserNotFound             = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "user not found", RuErr: "Пользователь не найден"}
	ErrUserEmailRequired        = DefinedError{Code: 2002, StatusCode: http.StatusBadRequest, Err: "user email is required", RuErr: "Поле email не может быть пустым"}
	ErrUserRoleInvalid          = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "unknown user role", RuErr: "Указана некорректная роль пользователя"}
	ErrUserRequestValidate      = DefinedError{Code: 2004, StatusCode: http.StatusBadRequest, Err: "invalid user fields", RuErr: "Некорректные данные пользователя"}
	ErrCannotDeleteSelf         = DefinedError{Code: 2005, StatusCode: http.StatusBadRequest, Err: "you cannot delete your own user", RuErr: "Нельзя удалить собственную учетную запись"}
	ErrPasswordTooWeak          = DefinedError{Code: 2006, StatusCode: http.StatusBadRequest, Err: "password must be at least 8 characters", RuErr: "Пароль должен содержать не менее 8 символов"}

	// 3*** - client errors
	ErrClientNotFound       = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Err: "client not found", RuErr: "Клиент не найден"}
	ErrClientNameRequired   = DefinedError{Code: 3002, StatusCode: http.StatusBadRequest, Err: "client name is required", RuErr: "Поле имя клиента не может быть пустым"}
	ErrClientHasProjects    = DefinedError{Code: 3003, StatusCode: http.StatusConflict, Err: "client is referenced by projects", RuErr: "Клиент связан с существующими проектами"}
	ErrClientRequestInvalid = DefinedError{Code: 3004, StatusCode: http.StatusBadRequest, Err: "invalid client fields", RuErr: "Некорректные данные клиента"}

	// 4*** - project & board errors
	ErrProjectNotFound           = DefinedError{Code: 4001, StatusCode: http.StatusNotFound, Err: "project not found", RuErr: "Проект не найден"}
	ErrProjectNameRequired       = DefinedError{Code: 4002, StatusCode: http.StatusBadRequest, Err: "project must have a name", RuErr: "Поле имя проекта не может быть пустым"}
	ErrProjectIdentifierConflict = DefinedError{Code: 4003, StatusCode: http.StatusConflict, Err: "project with this identifier exists", RuErr: "Проект с таким идентификатором уже существует"}
	ErrProjectTypeInvalid        = DefinedError{Code: 4004, StatusCode: http.StatusBadRequest, Err: "project type must be Scrum or Kanban", RuErr: "Тип проекта должен быть Scrum или Kanban"}
	ErrProjectForbidden          = DefinedError{Code: 4005, StatusCode: http.StatusForbidden, Err: "not have permissions to perform this action", RuErr: "Недостаточно прав для совершения действия"}
	ErrProjectMemberNotFound     = DefinedError{Code: 4006, StatusCode: http.StatusBadRequest, Err: "project member not found", RuErr: "Участник проекта не найден"}
	ErrMemberAlreadyInProject    = DefinedError{Code: 4007, StatusCode: http.StatusBadRequest, Err: "user is already a member of the project", RuErr: "Пользователь уже является участником проекта"}
	ErrBoardNotFound             = DefinedError{Code: 4008, StatusCode: http.StatusNotFound, Err: "board not found", RuErr: "Доска не найдена"}
	ErrBoardNameRequired         = DefinedError{Code: 4009, StatusCode: http.StatusBadRequest, Err: "board name is required", RuErr: "Поле имя доски не может быть пустым"}
	ErrProjectBudgetNegative     = DefinedError{Code: 4010, StatusCode: http.StatusBadRequest, Err: "total budget must be non-negative", RuErr: "Бюджет проекта не может быть отрицательным"}

	// 5*** - epic & story errors
	ErrEpicNotFound         = DefinedError{Code: 5001, StatusCode: http.StatusNotFound, Err: "epic not found", RuErr: "Эпик не найден"}
	ErrEpicNameRequired     = DefinedError{Code: 5002, StatusCode: http.StatusBadRequest, Err: "epic name is required", RuErr: "Поле имя эпика не может быть пустым"}
	ErrStoryNotFound        = DefinedError{Code: 5003, StatusCode: http.StatusNotFound, Err: "story not found", RuErr: "История не найдена"}
	ErrStoryTitleRequired   = DefinedError{Code: 5004, StatusCode: http.StatusBadRequest, Err: "story title is required", RuErr: "Поле заголовок истории не может быть пустым"}
	ErrStoryStatusInvalid   = DefinedError{Code: 5005, StatusCode: http.StatusBadRequest, Err: "unknown story status", RuErr: "Указан некорректный статус истории"}
	ErrStoryNotReady        = DefinedError{Code: 5006, StatusCode: http.StatusBadRequest, Err: "story is not ready for sprint", RuErr: "История не готова к добавлению в спринт"}
	ErrStoryPointsNegative  = DefinedError{Code: 5007, StatusCode: http.StatusBadRequest, Err: "story points must be non-negative", RuErr: "Оценка истории не может быть отрицательной"}

	// 6*** - sprint errors
	ErrSprintNotFound        = DefinedError{Code: 6001, StatusCode: http.StatusNotFound, Err: "sprint not found", RuErr: "Спринт не найден"}
	ErrSprintRequestValidate = DefinedError{Code: 6002, StatusCode: http.StatusBadRequest, Err: "invalid sprint fields", RuErr: "Некорректные данные спринта"}
	ErrSprintDatesInvalid    = DefinedError{Code: 6003, StatusCode: http.StatusBadRequest, Err: "end date must be after start date", RuErr: "Дата окончания должна быть позже даты начала"}
	ErrSprintNotPlanning     = DefinedError{Code: 6004, StatusCode: http.StatusConflict, Err: "only a Planning sprint can be started", RuErr: "Запустить можно только спринт в статусе Planning"}
	ErrSprintNotActive       = DefinedError{Code: 6005, StatusCode: http.StatusConflict, Err: "only an Active sprint can be completed", RuErr: "Завершить можно только активный спринт"}
	ErrSprintAlreadyActive   = DefinedError{Code: 6006, StatusCode: http.StatusConflict, Err: "board already has an active sprint", RuErr: "На доске уже есть активный спринт"}
	ErrSprintLocked          = DefinedError{Code: 6007, StatusCode: http.StatusConflict, Err: "sprint is locked", RuErr: "Спринт заблокирован для изменений"}

	// 7*** - task errors
	ErrTaskNotFound           = DefinedError{Code: 7001, StatusCode: http.StatusNotFound, Err: "task not found", RuErr: "Задача не найдена"}
	ErrTaskTitleRequired      = DefinedError{Code: 7002, StatusCode: http.StatusBadRequest, Err: "task title is required", RuErr: "Поле заголовок задачи не может быть пустым"}
	ErrTaskStatusInvalid      = DefinedError{Code: 7003, StatusCode: http.StatusBadRequest, Err: "unknown task status", RuErr: "Указан некорректный статус задачи"}
	ErrTaskPriorityInvalid    = DefinedError{Code: 7004, StatusCode: http.StatusBadRequest, Err: "unknown task priority", RuErr: "Указан некорректный приоритет задачи"}
	ErrTaskTypeInvalid        = DefinedError{Code: 7005, StatusCode: http.StatusBadRequest, Err: "unknown task type", RuErr: "Указан некорректный тип задачи"}
	ErrTaskHoursNegative      = DefinedError{Code: 7006, StatusCode: http.StatusBadRequest, Err: "hours must be non-negative", RuErr: "Часы не могут быть отрицательными"}
	ErrDependencyTargetMissed = DefinedError{Code: 7007, StatusCode: http.StatusBadRequest, Err: "dependency target task does not exist", RuErr: "Связанная задача не существует"}
	ErrDependencyTypeInvalid  = DefinedError{Code: 7008, StatusCode: http.StatusBadRequest, Err: "unknown dependency type", RuErr: "Указан некорректный тип связи"}
	ErrDependencyCycle        = DefinedError{Code: 7009, StatusCode: http.StatusBadRequest, Err: "dependency would create a cycle", RuErr: "Связь образует цикл блокировок"}
	ErrDependencySelf         = DefinedError{Code: 7010, StatusCode: http.StatusBadRequest, Err: "task cannot depend on itself", RuErr: "Задача не может зависеть от самой себя"}
	ErrDependencyExists       = DefinedError{Code: 7011, StatusCode: http.StatusConflict, Err: "dependency already exists", RuErr: "Такая связь уже существует"}
	ErrLabelNotFound          = DefinedError{Code: 7012, StatusCode: http.StatusNotFound, Err: "label not found", RuErr: "Метка не найдена"}

	// 8*** - budget & expense errors
	ErrBudgetItemNotFound     = DefinedError{Code: 8001, StatusCode: http.StatusNotFound, Err: "budget item not found", RuErr: "Статья бюджета не найдена"}
	ErrBudgetItemNameRequired = DefinedError{Code: 8002, StatusCode: http.StatusBadRequest, Err: "budget item name is required", RuErr: "Поле имя статьи бюджета не может быть пустым"}
	ErrBudgetAmountNegative   = DefinedError{Code: 8003, StatusCode: http.StatusBadRequest, Err: "amount must be non-negative", RuErr: "Сумма не может быть отрицательной"}
	ErrExpenseNotFound        = DefinedError{Code: 8004, StatusCode: http.StatusNotFound, Err: "expense not found", RuErr: "Расход не найден"}
	ErrExpenseNotPending      = DefinedError{Code: 8005, StatusCode: http.StatusConflict, Err: "expense is not pending", RuErr: "Расход уже обработан"}
	ErrExpenseAmountInvalid   = DefinedError{Code: 8006, StatusCode: http.StatusBadRequest, Err: "expense amount must be positive", RuErr: "Сумма расхода должна быть положительной"}

	// 9*** - attachment & generic errors
	ErrAttachmentNotFound      = DefinedError{Code: 9001, StatusCode: http.StatusNotFound, Err: "attachment not found", RuErr: "Вложение не найдено"}
	ErrAttachmentParentInvalid = DefinedError{Code: 9002, StatusCode: http.StatusBadRequest, Err: "attachment must reference exactly one parent", RuErr: "Вложение должно ссылаться ровно на одну сущность"}
	ErrAttachmentFileRequired  = DefinedError{Code: 9003, StatusCode: http.StatusBadRequest, Err: "attachment file is required", RuErr: "Файл вложения обязателен"}
	ErrEntityTooLarge          = DefinedError{Code: 9101, StatusCode: http.StatusRequestEntityTooLarge, Err: "request entity too large", RuErr: "Превышен допустимый размер запроса"}
	ErrGeneric                 = DefinedError{Code: 9999, StatusCode: http.StatusBadRequest, Err: "something went wrong", RuErr: "Что-то пошло не так"}
)
