// Package sanitize strips markup from untrusted request text before it is
// placed into a prompt.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes every angle-bracket tag. Entities and all other
// characters are kept in their original order.
func StripMarkup(text string) string {
	if text == "" {
		return text
	}
	return tagPattern.ReplaceAllString(text, "")
}

// Text renders an arbitrary decoded JSON value as prompt text and strips
// markup from the result.
//
// Arrays are treated as threads: each element is rendered and the results
// are joined with a blank line in the order supplied.
func Text(v any) string {
	return StripMarkup(render(v))
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := render(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	case map[string]any:
		if msg, ok := threadMessage(val); ok {
			return msg
		}
		return compact(val)
	case bool, float64, int, int64, json.Number:
		return fmt.Sprint(val)
	default:
		return compact(val)
	}
}

// threadMessage renders {"subject": ..., "body": ...} the way the mail
// client formats thread entries.
func threadMessage(m map[string]any) (string, bool) {
	body, hasBody := m["body"].(string)
	if !hasBody {
		return "", false
	}
	subject, _ := m["subject"].(string)
	return fmt.Sprintf("Subject: %s\nBody: %s", subject, body), true
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
