// Package parser turns raw backend text into a validated domain.Email.
//
// Backends do not always follow the format instructions exactly. They may
// wrap a value in {"text": ...}, echo the schema back as
// {"properties": {...}}, or pad strings with whitespace. Each field is
// normalized by an ordered list of unwrap rules before its type is checked.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"reply_server/core/domain"
	"reply_server/pkg/apperr"

	"github.com/goccy/go-json"
)

// Schema field names.
const (
	FieldSubject = "subject"
	FieldBody    = "body"
	FieldSender  = "sender"
)

// UnwrapRule replaces an object value with one of its members.
// It reports false when it does not apply to obj.
type UnwrapRule struct {
	Name  string
	Apply func(field string, obj map[string]any) (any, bool)
}

// Rules are tried in order; the first one that applies wins.
// An echoed schema fragment takes precedence over a text wrapper.
var Rules = []UnwrapRule{
	{Name: "properties", Apply: unwrapProperties},
	{Name: "text", Apply: unwrapText},
}

func unwrapProperties(field string, obj map[string]any) (any, bool) {
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := props[field]
	return v, ok
}

func unwrapText(_ string, obj map[string]any) (any, bool) {
	v, ok := obj["text"]
	return v, ok
}

// Unwrap applies the first matching rule to an object value. Non-object
// values and objects no rule applies to are returned unchanged.
func Unwrap(field string, raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	for _, rule := range Rules {
		if v, ok := rule.Apply(field, obj); ok {
			return v
		}
	}
	return raw
}

// NormalizeField reduces a raw JSON value to a trimmed string, or nil when
// the value is null or blank. Values that are still not strings after
// unwrapping are a schema error.
func NormalizeField(field string, raw any) (*string, error) {
	switch v := Unwrap(field, raw).(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, apperr.Schema(field, fmt.Sprintf("has type %s, expected text", jsonKind(v)))
	}
}

// Parse decodes raw backend output into an Email.
// It returns an apperr ParseError when the text is not JSON and a
// SchemaError when the JSON cannot be normalized (including a blank body).
func Parse(raw string) (*domain.Email, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return nil, apperr.Parse(fmt.Errorf("empty output"))
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, apperr.Parse(err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, apperr.Schema("output", fmt.Sprintf("is %s, expected an object", jsonKind(doc)))
	}

	subject, err := NormalizeField(FieldSubject, lookup(obj, FieldSubject))
	if err != nil {
		return nil, err
	}
	body, err := NormalizeField(FieldBody, lookup(obj, FieldBody))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, apperr.Schema(FieldBody, "is missing or empty")
	}
	sender, err := NormalizeField(FieldSender, lookup(obj, FieldSender))
	if err != nil {
		return nil, err
	}

	return &domain.Email{Subject: subject, Body: *body, Sender: sender}, nil
}

// lookup reads field from the document. When the backend wrapped the whole
// answer in a schema-like {"properties": {...}} object, the field is read
// from there instead.
func lookup(obj map[string]any, field string) any {
	if v, ok := obj[field]; ok {
		return v
	}
	if v, ok := unwrapProperties(field, obj); ok {
		return v
	}
	return nil
}

var fencePattern = regexp.MustCompile("(?s)```(?:[A-Za-z]+\n|json)?(.*?)(?:```|\\z)")

// StripCodeFence returns the contents of the first Markdown code block in
// raw, which may be preceded by prose. Without a fence the whole trimmed
// text is returned.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
