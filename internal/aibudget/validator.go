// Валидация входящих запросов AIBudget. Использует go-playground/validator
// с дополнительными валидаторами для полей предметной области.
//
// Основные возможности:
//   - Валидация имен проектов и клиентов.
//   - Валидация идентификатора проекта (латиница в верхнем регистре и цифры).
//   - Валидация имени и фамилии пользователя.
package aibudget

import (
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("projectName", projectNameValidator); err != nil {
		return nil
	}

	if err := v.RegisterValidation("identifier", identifierValidator); err != nil {
		return nil
	}

	if err := v.RegisterValidation("fullName", userFullNameValidator); err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

var (
	latinCyrillicDigitSymbolRe = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9 _.\-]+$`)
	latinUpperDigitRe          = regexp.MustCompile(`^[A-Z0-9]+$`)
	latinCyrillicHyphenRe      = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ\-]+$`)
)

func projectNameValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !latinCyrillicDigitSymbolRe.MatchString(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 100
}

func identifierValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !latinUpperDigitRe.MatchString(value) {
		return false
	}
	return lenStr >= 2 && lenStr <= 15
}

func userFullNameValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	lenStr := utf8.RuneCountInString(value)
	if !latinCyrillicHyphenRe.MatchString(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 100
}
