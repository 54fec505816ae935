package validation

import (
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const phoneTag = "phone"

// phone numbers: 10-15 digits with an optional leading "+".
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// tags evaluated through validator.Var; their messages are registered as
// validator translations.
var validatorMessages = map[string]string{
	"required": "This field is required",
	"email":    "Enter a valid email address",
	phoneTag:   "Enter a valid phone number",
	"min":      "Must be at least {0} characters",
	"max":      "Must be at most {0} characters",
	"gte":      "Must be at least {0}",
	"lte":      "Must be at most {0}",
}

// checks the engine performs itself; messages live in the same translator.
var engineMessages = map[string]string{
	"number":  "Enter a valid number",
	"date":    "Enter a valid date (YYYY-MM-DD)",
	"oneof":   "Choose one of: {0}",
	"pattern": "Invalid format",
	"before":  "Must be before {0}",
	"after":   "Must be after {0}",
	"eqfield": "Must match {0}",
	"checked": "This box must be checked",
	"file":    "Upload a file",
	"rule":    "Invalid requirement rule",
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	for tag, text := range validatorMessages {
		tag, text := tag, text
		_ = validate.RegisterTranslation(
			tag, trans,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(fe.Tag(), fe.Param())
				return s
			},
		)
	}
	for tag, text := range engineMessages {
		_ = trans.Add(tag, text, true)
	}
	return validate, trans
}
