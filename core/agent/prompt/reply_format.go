package prompt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

type outputSchema struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

type schemaProperty struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Type        string              `json:"type,omitempty"`
	AnyOf       []map[string]string `json:"anyOf,omitempty"`
	Default     json.RawMessage     `json:"default,omitempty"`
}

const formatInstructionsText = `The output must be a JSON instance that conforms to the JSON schema below.

For example, for the schema {"properties": {"foo": {"title": "Foo", "description": "a list of strings", "type": "array", "items": {"type": "string"}}}, "required": ["foo"]}
the object {"foo": ["bar", "baz"]} is a well-formatted instance of the schema. The object {"properties": {"foo": ["bar", "baz"]}} is not well-formatted.

Here is the output schema:
` + "```" + `
%s
` + "```"

// FormatInstructions describes the JSON shape of the struct v (or pointer
// to struct) using its json and description tags. Pointer fields are
// optional and nullable; all other fields are required.
func FormatInstructions(v any) (string, error) {
	schema, err := schemaFor(reflect.TypeOf(v))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal output schema: %w", err)
	}
	return fmt.Sprintf(formatInstructionsText, data), nil
}

func schemaFor(t reflect.Type) (*outputSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("output schema: nil type")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("output schema: %s is not a struct", t)
	}

	schema := &outputSchema{
		Properties: make(map[string]schemaProperty, t.NumField()),
		Required:   []string{},
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}

		prop := schemaProperty{
			Title:       titleCase(name),
			Description: field.Tag.Get("description"),
		}
		ft := field.Type
		optional := ft.Kind() == reflect.Ptr
		if optional {
			ft = ft.Elem()
		}
		typ, err := jsonType(ft)
		if err != nil {
			return nil, fmt.Errorf("output schema field %s: %w", name, err)
		}
		if optional {
			prop.AnyOf = []map[string]string{{"type": typ}, {"type": "null"}}
			prop.Default = json.RawMessage("null")
		} else {
			prop.Type = typ
			schema.Required = append(schema.Required, name)
		}
		schema.Properties[name] = prop
	}
	return schema, nil
}

func jsonType(t reflect.Type) (string, error) {
	switch t.Kind() {
	case reflect.String:
		return "string", nil
	case reflect.Bool:
		return "boolean", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer", nil
	case reflect.Float32, reflect.Float64:
		return "number", nil
	default:
		return "", fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
