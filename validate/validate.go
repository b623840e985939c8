// Package validate checks the request payloads against their validate tags
// and hands out the ids of the stored entities.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var ErrInvalidID = errors.New("ID is not in its proper form")

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	// Report the json names, the ones the caller knows about.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// Check validates val, returning the translated violations joined in a
// single error.
func Check(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	msgs := make([]string, 0, len(verrors))
	for _, ve := range verrors {
		msgs = append(msgs, ve.Translate(translator))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
