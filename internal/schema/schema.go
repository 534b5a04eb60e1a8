// Package schema describes the shape a generated-model response must have.
// A Schema both validates a decoded JSON value and renders a human-readable
// contract string that is embedded into the prompt so the model knows what
// to produce.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldError reports a single constraint violation at a JSON path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// OutputError means the model returned a value that does not satisfy the
// output schema, or returned nothing. It is always fatal for the invocation
// that produced it; semantic content is never patched into a best guess.
type OutputError struct {
	Fields []FieldError
}

func (e *OutputError) Error() string {
	if len(e.Fields) == 0 {
		return "model output failed validation"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		p := f.Path
		if p == "" {
			p = "$"
		}
		parts = append(parts, p+": "+f.Message)
	}
	return "model output failed validation: " + strings.Join(parts, "; ")
}

// Schema is a composable description of an acceptable value.
type Schema interface {
	// Validate checks v (a value decoded from JSON: string, float64, bool,
	// nil, []any or map[string]any) and reports every violation found.
	// path locates v within the enclosing document ("" for the root).
	Validate(path string, v any) []FieldError

	// Describe renders the contract text embedded into prompts.
	Describe() string
}

func at(path, child string) string {
	if path == "" {
		return child
	}
	return path + "." + child
}

func fail(path, format string, args ...any) []FieldError {
	return []FieldError{{Path: path, Message: fmt.Sprintf(format, args...)}}
}

type stringSchema struct {
	nonEmpty bool
}

// String accepts any JSON string.
func String() Schema { return stringSchema{} }

// NonEmptyString accepts any JSON string with non-blank content.
func NonEmptyString() Schema { return stringSchema{nonEmpty: true} }

func (s stringSchema) Validate(path string, v any) []FieldError {
	str, ok := v.(string)
	if !ok {
		return fail(path, "expected a string, got %T", v)
	}
	if s.nonEmpty && strings.TrimSpace(str) == "" {
		return fail(path, "must not be empty")
	}
	return nil
}

func (s stringSchema) Describe() string {
	if s.nonEmpty {
		return "<non-empty string>"
	}
	return "<string>"
}

type numberSchema struct {
	min, max *float64
}

// Number accepts any JSON number.
func Number() Schema { return numberSchema{} }

// NumberRange accepts a JSON number within [min, max].
func NumberRange(min, max float64) Schema {
	return numberSchema{min: &min, max: &max}
}

func (s numberSchema) Validate(path string, v any) []FieldError {
	n, ok := v.(float64)
	if !ok {
		return fail(path, "expected a number, got %T", v)
	}
	if s.min != nil && n < *s.min {
		return fail(path, "must be >= %s", trimFloat(*s.min))
	}
	if s.max != nil && n > *s.max {
		return fail(path, "must be <= %s", trimFloat(*s.max))
	}
	return nil
}

func (s numberSchema) Describe() string {
	if s.min != nil && s.max != nil {
		return fmt.Sprintf("<number between %s and %s>", trimFloat(*s.min), trimFloat(*s.max))
	}
	return "<number>"
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type boolSchema struct{}

// Bool accepts a JSON boolean.
func Bool() Schema { return boolSchema{} }

func (boolSchema) Validate(path string, v any) []FieldError {
	if _, ok := v.(bool); !ok {
		return fail(path, "expected a boolean, got %T", v)
	}
	return nil
}

func (boolSchema) Describe() string { return "<true or false>" }

type enumSchema struct {
	values []string
}

// Enum accepts one of the given string values.
func Enum(values ...string) Schema { return enumSchema{values: values} }

func (s enumSchema) Validate(path string, v any) []FieldError {
	str, ok := v.(string)
	if !ok {
		return fail(path, "expected a string, got %T", v)
	}
	for _, want := range s.values {
		if str == want {
			return nil
		}
	}
	return fail(path, "must be one of %s, got %q", strings.Join(s.values, "|"), str)
}

func (s enumSchema) Describe() string {
	quoted := make([]string, len(s.values))
	for i, v := range s.values {
		quoted[i] = `"` + v + `"`
	}
	return "<one of " + strings.Join(quoted, " | ") + ">"
}

type nullableSchema struct {
	inner Schema
}

// Nullable accepts either JSON null or a value matching the inner schema.
func Nullable(inner Schema) Schema { return nullableSchema{inner: inner} }

func (s nullableSchema) Validate(path string, v any) []FieldError {
	if v == nil {
		return nil
	}
	return s.inner.Validate(path, v)
}

func (s nullableSchema) Describe() string {
	return strings.TrimSuffix(s.inner.Describe(), ">") + ", or null>"
}

type arraySchema struct {
	elem     Schema
	minItems int
}

// Array accepts a JSON array whose elements all match elem.
func Array(elem Schema) Schema { return arraySchema{elem: elem} }

// ArrayMin accepts a JSON array with at least minItems elements.
func ArrayMin(elem Schema, minItems int) Schema {
	return arraySchema{elem: elem, minItems: minItems}
}

func (s arraySchema) Validate(path string, v any) []FieldError {
	items, ok := v.([]any)
	if !ok {
		return fail(path, "expected an array, got %T", v)
	}
	if len(items) < s.minItems {
		return fail(path, "must have at least %d item(s), got %d", s.minItems, len(items))
	}
	var errs []FieldError
	for i, item := range items {
		errs = append(errs, s.elem.Validate(fmt.Sprintf("%s[%d]", path, i), item)...)
	}
	return errs
}

func (s arraySchema) Describe() string {
	return "[" + s.elem.Describe() + ", ...]"
}

// ObjectField is one named field of an object schema.
type ObjectField struct {
	Name     string
	Schema   Schema
	Optional bool
	Default  any
}

// Req declares a required object field.
func Req(name string, s Schema) ObjectField {
	return ObjectField{Name: name, Schema: s}
}

// Opt declares an optional object field.
func Opt(name string, s Schema) ObjectField {
	return ObjectField{Name: name, Schema: s, Optional: true}
}

// OptDefault declares an optional field with a default noted in the contract.
func OptDefault(name string, s Schema, def any) ObjectField {
	return ObjectField{Name: name, Schema: s, Optional: true, Default: def}
}

type objectSchema struct {
	fields []ObjectField
}

// Object accepts a JSON object with the given named fields. Unknown fields
// are tolerated: the model may decorate its answer, and extra keys are
// dropped during decoding rather than failing the flow.
func Object(fields ...ObjectField) Schema { return objectSchema{fields: fields} }

func (s objectSchema) Validate(path string, v any) []FieldError {
	obj, ok := v.(map[string]any)
	if !ok {
		return fail(path, "expected an object, got %T", v)
	}
	var errs []FieldError
	for _, f := range s.fields {
		val, present := obj[f.Name]
		if !present {
			if !f.Optional {
				errs = append(errs, FieldError{Path: at(path, f.Name), Message: "required field is missing"})
			}
			continue
		}
		if val == nil && f.Optional {
			continue
		}
		errs = append(errs, f.Schema.Validate(at(path, f.Name), val)...)
	}
	return errs
}

func (s objectSchema) Describe() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(`"` + f.Name + `": ` + f.Schema.Describe())
		if f.Optional {
			if f.Default != nil {
				sb.WriteString(fmt.Sprintf(" (optional, default %v)", f.Default))
			} else {
				sb.WriteString(" (optional)")
			}
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// SortErrors orders field errors by path for stable reporting.
func SortErrors(errs []FieldError) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Message < errs[j].Message
	})
}
