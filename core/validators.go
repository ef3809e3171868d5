package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	phoneTag   = "phone_kz"
	phoneText  = "invalid phone number"
	phoneRegex = regexp.MustCompile(`^(\+7|8)?[0-9]{10,11}$`)
	phoneStrip = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

	emailTag   = "email"
	emailText  = "invalid email address"
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator instantiates a validator and its english translator, with the core validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	// lenient `x@y.z` check in place of the builtin `email`
	_ = validate.RegisterValidation(emailTag, emailValidation)
	RegisterCustomTranslation(validate, translator, emailTag, emailText, true)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// CleanPhone strips the separators users usually type in phone numbers.
func CleanPhone(phone string) string {
	return phoneStrip.Replace(CleanString(phone))
}

func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(CleanPhone(phone))
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Custom Global Validators

func phoneValidation(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

func emailValidation(fl validator.FieldLevel) bool {
	return IsValidEmail(fl.Field().String())
}
