package classroom

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elevana/core"
)

var (
	classCodeTag  = "classcode"
	classCodeText = "invalid class code"
)

// InitValidators registers the classroom validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(classCodeTag, classCodeValidation)
	core.RegisterCustomTranslation(validate, translator, classCodeTag, classCodeText)
}

func NormalizeClassCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}

func classCodeValidation(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != classCodeLen {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(classCodeAlphabet, c) {
			return false
		}
	}
	return true
}
