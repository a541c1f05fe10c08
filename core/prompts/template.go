// Package prompts holds the per-column prompt triplets and the pure
// template renderer used by every pipeline engine.
package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Template is a prompt template with {{name}} placeholders. Placeholders
// are discovered at parse time so missing bindings are a load-time error,
// never a call-time surprise.
type Template struct {
	text     string
	required []string
}

// NewTemplate parses template text and records its placeholders.
func NewTemplate(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty template")
	}

	seen := make(map[string]bool)
	var required []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			required = append(required, name)
		}
	}
	sort.Strings(required)

	return &Template{text: text, required: required}, nil
}

// MustTemplate parses template text and panics on error. Used only for the
// built-in defaults, which are validated by tests.
func MustTemplate(text string) *Template {
	tpl, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return tpl
}

// Required returns the placeholder names the template needs, sorted.
func (t *Template) Required() []string {
	out := make([]string, len(t.required))
	copy(out, t.required)
	return out
}

// Text returns the raw template text.
func (t *Template) Text() string {
	return t.text
}

// Render substitutes bindings into the template. Every placeholder must be
// bound; unknown bindings are ignored.
func (t *Template) Render(bindings map[string]string) (string, error) {
	for _, name := range t.required {
		if _, ok := bindings[name]; !ok {
			return "", fmt.Errorf("missing binding %q", name)
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(t.text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return bindings[name]
	}), nil
}
