// Package schema checks raw JSON values against a small JSON Schema subset.
//
// Collections use it to reject a backing document whose records do not have
// the expected shape before any of them are decoded.
//
// Supported keywords:
//   - type (string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items
//   - minimum, maximum
//   - minLength, maxLength
//   - enum
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Schema is a JSON Schema node. A nil *Schema accepts everything.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
}

// Error reports the first violation found and where.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	return e.Path + ": " + e.Message
}

// Float returns a pointer to f, for Minimum and Maximum.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n, for MinLength and MaxLength.
func Int(n int) *int { return &n }

// Bool returns a pointer to b, for AdditionalProperties.
func Bool(b bool) *bool { return &b }

// Validate decodes raw and checks it against s.
func Validate(s *Schema, raw json.RawMessage) error {
	if s == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &Error{Path: "$", Message: "invalid JSON: " + err.Error()}
	}
	return s.check(v, "$")
}

// ValidateValue checks an already decoded value (as produced by
// encoding/json into an any) against s.
func ValidateValue(s *Schema, v any) error {
	if s == nil {
		return nil
	}
	return s.check(v, "$")
}

func (s *Schema) check(v any, path string) error {
	if s.Type != "" {
		if err := checkType(s.Type, v, path); err != nil {
			return err
		}
	}
	if len(s.Enum) > 0 {
		if err := s.checkEnum(v, path); err != nil {
			return err
		}
	}

	switch val := v.(type) {
	case map[string]any:
		return s.checkObject(val, path)
	case []any:
		return s.checkArray(val, path)
	case string:
		return s.checkString(val, path)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return &Error{Path: path, Message: "invalid number " + val.String()}
		}
		return s.checkNumber(f, path)
	case float64:
		return s.checkNumber(val, path)
	}
	return nil
}

func checkType(expected string, v any, path string) error {
	actual := jsonType(v)
	switch {
	case actual == expected:
		return nil
	case expected == "number" && actual == "integer":
		return nil
	}
	return &Error{Path: path, Message: fmt.Sprintf("expected type %q, got %q", expected, actual)}
}

func jsonType(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return "integer"
		}
		return "number"
	case float64:
		if val == float64(int64(val)) {
			return "integer"
		}
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}

func (s *Schema) checkEnum(v any, path string) error {
	for _, allowed := range s.Enum {
		if reflect.DeepEqual(normalize(allowed), normalize(v)) {
			return nil
		}
	}
	return &Error{Path: path, Message: fmt.Sprintf("value not in enum %v", s.Enum)}
}

// normalize maps numbers to float64 so json.Number and Go literals compare equal.
func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return v
}

func (s *Schema) checkObject(obj map[string]any, path string) error {
	for _, field := range s.Required {
		if _, ok := obj[field]; !ok {
			return &Error{Path: path, Message: fmt.Sprintf("missing required field %q", field)}
		}
	}

	// Sorted so the reported violation is stable.
	fields := make([]string, 0, len(s.Properties))
	for field := range s.Properties {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		val, ok := obj[field]
		if !ok {
			continue
		}
		if err := s.Properties[field].checkOptional(val, path+"."+field); err != nil {
			return err
		}
	}

	if s.AdditionalProperties != nil && !*s.AdditionalProperties {
		var extra []string
		for field := range obj {
			if _, ok := s.Properties[field]; !ok {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return &Error{Path: path, Message: "additional properties not allowed: " + strings.Join(extra, ", ")}
		}
	}
	return nil
}

func (s *Schema) checkOptional(v any, path string) error {
	if s == nil {
		return nil
	}
	return s.check(v, path)
}

func (s *Schema) checkArray(arr []any, path string) error {
	if s.Items == nil {
		return nil
	}
	for i, elem := range arr {
		if err := s.Items.check(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) checkString(str string, path string) error {
	if s.MinLength != nil && len(str) < *s.MinLength {
		return &Error{Path: path, Message: fmt.Sprintf("string length %d is less than minLength %d", len(str), *s.MinLength)}
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return &Error{Path: path, Message: fmt.Sprintf("string length %d is greater than maxLength %d", len(str), *s.MaxLength)}
	}
	return nil
}

func (s *Schema) checkNumber(n float64, path string) error {
	if s.Minimum != nil && n < *s.Minimum {
		return &Error{Path: path, Message: fmt.Sprintf("%v is less than minimum %v", n, *s.Minimum)}
	}
	if s.Maximum != nil && n > *s.Maximum {
		return &Error{Path: path, Message: fmt.Sprintf("%v is greater than maximum %v", n, *s.Maximum)}
	}
	return nil
}
