package activity

import (
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elevana/core"
)

var (
	activityKindTag  = "activitykind"
	activityKindText = "kind must be one of mission, case-study, minigame"

	problemTypeTag  = "problemtype"
	problemTypeText = "type must be one of qa, mcq, fill"

	draftValidatorOnce sync.Once
	draftValidate      *validator.Validate
	draftTranslator    ut.Translator
)

// InitValidators registers the activity validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(activityKindTag, func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, activityKindTag, activityKindText)

	_ = validate.RegisterValidation(problemTypeTag, func(fl validator.FieldLevel) bool {
		return ProblemType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, problemTypeTag, problemTypeText)

	validate.RegisterStructValidation(problemStructValidation, Problem{})
}

// problemStructValidation checks the type-specific fields of a Problem.
func problemStructValidation(sl validator.StructLevel) {
	p := sl.Current().Interface().(Problem)
	if p.Type != TypeMCQ {
		if len(p.Answers) == 0 {
			sl.ReportError(p.Answers, "answers", "Answers", "required", "")
		}
		return
	}
	if len(p.Options) == 0 {
		sl.ReportError(p.Options, "options", "Options", "required", "")
	}
	if p.CorrectOptionIndex == nil || *p.CorrectOptionIndex < 0 || *p.CorrectOptionIndex >= len(p.Options) {
		sl.ReportError(p.CorrectOptionIndex, "correct_option_index", "CorrectOptionIndex", "required", "")
	}
}

func draftValidator() (*validator.Validate, ut.Translator) {
	draftValidatorOnce.Do(func() {
		draftValidate, draftTranslator = core.NewValidator()
		InitValidators(draftValidate, draftTranslator)
	})
	return draftValidate, draftTranslator
}

// Validate checks that the activity is complete enough to be published.
func (a Activity) Validate() error {
	validate, translator := draftValidator()
	if err := validate.Struct(a); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return core.NewValidationError(nil, core.TranslateErrors(vErrs, translator)...)
		}
		return err
	}
	return nil
}
