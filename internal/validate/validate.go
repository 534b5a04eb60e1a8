// Package validate performs input-side validation of flow requests.
// Caller-supplied input that fails validation is rejected before any model
// call is made.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
)

const questionTotalTag = "question_total"

// maxTestQuestions bounds the total question count of one generated test.
const maxTestQuestions = 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(testGenerationValidation, model.TestGenerationRequest{})
}

// testGenerationValidation enforces the cross-field bound on the total
// question count: numSubjective + numObjective must be in (0, 20].
func testGenerationValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.TestGenerationRequest)
	total := req.NumSubjective + req.NumObjective
	if total <= 0 || total > maxTestQuestions {
		sl.ReportError(req.NumObjective, "numObjective", "NumObjective", questionTotalTag, "")
	}
}

// FieldError identifies one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InputError means caller-supplied input failed its schema. It is returned
// before any model call is issued.
type InputError struct {
	Fields []FieldError
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// NewInputError builds an InputError for a single field, for checks that do
// not go through struct tags.
func NewInputError(field, message string) *InputError {
	return &InputError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Struct validates v against its `validate` tags and any registered
// struct-level rules, returning *InputError on failure.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	ie := &InputError{}
	for _, fe := range verrs {
		ie.Fields = append(ie.Fields, FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return ie
}

// fieldPath strips the leading struct name from the namespace so errors read
// "exams[0].subject" rather than "StudyPlanRequest.exams[0].subject".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	if fe.Tag() == questionTotalTag {
		return "numSubjective + numObjective must be between 1 and 20"
	}
	return fe.Translate(translator)
}
