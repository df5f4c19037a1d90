// Package prompt builds backend prompts from named templates.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// TemplateID names one of the fixed prompt templates.
type TemplateID string

const (
	TemplateOptimize TemplateID = "optimize"
	TemplateReply    TemplateID = "reply"
	TemplateCompose  TemplateID = "compose"
	TemplateThread   TemplateID = "thread"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is an immutable prompt with named {placeholders}.
// Partials are bound once at construction; inputs are supplied per render.
type Template struct {
	id       TemplateID
	text     string
	inputs   []string
	partials map[string]string
}

// NewTemplate checks that the placeholders in text are exactly the union of
// inputs and partial names.
func NewTemplate(id TemplateID, text string, inputs []string, partials map[string]string) (*Template, error) {
	text = strings.TrimSpace(text)

	declared := make(map[string]bool, len(inputs)+len(partials))
	for _, name := range inputs {
		declared[name] = true
	}
	for name := range partials {
		if declared[name] {
			return nil, fmt.Errorf("template %s: %q is both an input and a partial", id, name)
		}
		declared[name] = true
	}

	found := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		found[m[1]] = true
	}
	for name := range found {
		if !declared[name] {
			return nil, fmt.Errorf("template %s: undeclared placeholder {%s}", id, name)
		}
	}
	for name := range declared {
		if !found[name] {
			return nil, fmt.Errorf("template %s: placeholder {%s} not used in text", id, name)
		}
	}

	bound := make(map[string]string, len(partials))
	for k, v := range partials {
		bound[k] = v
	}
	in := append([]string(nil), inputs...)
	sort.Strings(in)

	return &Template{id: id, text: text, inputs: in, partials: bound}, nil
}

// Render substitutes every placeholder in a single pass, so values that
// happen to contain {braces} are never expanded again.
func (t *Template) Render(values map[string]string) (string, error) {
	for _, name := range t.inputs {
		if _, ok := values[name]; !ok {
			return "", fmt.Errorf("template %s: missing value for {%s}", t.id, name)
		}
	}
	for name := range values {
		if !t.expects(name) {
			return "", fmt.Errorf("template %s: unexpected value for {%s}", t.id, name)
		}
	}

	pairs := make([]string, 0, 2*(len(values)+len(t.partials)))
	for name, v := range t.partials {
		pairs = append(pairs, "{"+name+"}", v)
	}
	for name, v := range values {
		pairs = append(pairs, "{"+name+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}

func (t *Template) expects(name string) bool {
	for _, in := range t.inputs {
		if in == name {
			return true
		}
	}
	return false
}
