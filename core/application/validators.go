package application

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qazmun/mun/core"
)

var (
	appStatusTag  = "appstatus"
	appStatusText = "invalid status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(appStatusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, appStatusTag, appStatusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(Status); ok {
		return s.IsValid()
	}
	return false
}
