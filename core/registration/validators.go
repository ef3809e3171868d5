package registration

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qazmun/mun/core"
)

const (
	MinGrade = 8
	MaxGrade = 12
)

var (
	gradeTag  = "grade"
	gradeText = "grade must be between 8 and 12"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeTag, gradeValidation)
	core.RegisterCustomTranslation(validate, translator, gradeTag, gradeText)
}

func gradeValidation(fl validator.FieldLevel) bool {
	g := fl.Field().Int()
	return g >= MinGrade && g <= MaxGrade
}
