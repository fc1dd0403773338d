package validate

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	// report json names so messages match what the UI sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterValidation("couponcode", func(fl validator.FieldLevel) bool {
		return IsCode(fl.Field().String())
	})
	validate.RegisterTranslation("couponcode", translator,
		func(ut ut.Translator) error {
			return ut.Add("couponcode", "{0} must not contain spaces or control characters", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("couponcode", fe.Field())
			return t
		},
	)
}

// IsCode reports whether s is usable as a coupon code: no whitespace and no
// control characters. Everything else is left to whoever redeems it.
func IsCode(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Check validates val against its struct tags and returns the first
// failure as a human readable error.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		return &FieldError{
			Field: verrors[0].Field(),
			Err:   errors.New(verrors[0].Translate(translator)),
		}
	}

	return nil
}

// Var validates a single value against a tag expression.
func Var(field string, val any, tag string) error {
	if err := validate.Var(val, tag); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok || len(verrors) < 1 {
			return err
		}
		msg := strings.TrimSpace(field + verrors[0].Translate(translator))
		return &FieldError{Field: field, Err: errors.New(msg)}
	}
	return nil
}

// FieldError is a validation failure caught before any state change.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// IsFieldError reports whether err, or an error it wraps, is a validation failure.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
