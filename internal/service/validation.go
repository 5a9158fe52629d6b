package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

type inputValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	validatorOnce sync.Once
	sharedVal     *inputValidator
)

// getValidator returns the process-wide validator, reporting fields by their json names.
func getValidator() *inputValidator {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerNotBlank(v, trans)
		registerNoNUL(v, trans)

		sharedVal = &inputValidator{validate: v, translator: trans}
	})
	return sharedVal
}

// registerNotBlank rejects strings that are empty once whitespace is trimmed.
func registerNotBlank(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterTranslation("notblank", trans,
		func(ut ut.Translator) error { return ut.Add("notblank", "{0} is required", true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("notblank", fe.Field())
			return msg
		})
}

// registerNoNUL rejects strings containing NUL, which Postgres text columns cannot store.
func registerNoNUL(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	_ = v.RegisterTranslation("nonul", trans,
		func(ut ut.Translator) error { return ut.Add("nonul", "{0} must not contain NUL characters", true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("nonul", fe.Field())
			return msg
		})
}

// validateInput maps validator failures onto a ValidationError whose details list
// each offending field with a readable message.
func validateInput(input any) error {
	iv := getValidator()
	err := iv.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid ticket payload", nil)
	}

	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Translate(iv.translator)
		fields[fe.Field()] = msg
		msgs = append(msgs, msg)
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "), map[string]any{"fields": fields})
}
