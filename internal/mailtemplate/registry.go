// Package mailtemplate renders the fixed set of CRM notification emails.
package mailtemplate

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
)

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Registry maps template names to parsed subject/body pairs. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	templates map[string]compiled
}

// NewRegistry parses the built-in templates.
func NewRegistry() (*Registry, error) {
	templates := make(map[string]compiled, len(builtin))
	for name, def := range builtin {
		subject, err := parse(name+".subject", def.subject)
		if err != nil {
			return nil, err
		}
		body, err := parse(name+".body", def.body)
		if err != nil {
			return nil, err
		}
		templates[name] = compiled{subject: subject, body: body}
	}

	return &Registry{templates: templates}, nil
}

// MustNewRegistry is like NewRegistry but panics on a malformed built-in template.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	return t, nil
}

// Render fills the named template with props.
func (r *Registry) Render(name string, props map[string]any) (string, string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, name)
	}

	subject, err := execute(t.subject, props)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s subject: %v", domain.ErrTemplateRender, name, err)
	}
	body, err := execute(t.body, props)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s body: %v", domain.ErrTemplateRender, name, err)
	}

	return subject, body, nil
}

// Has reports whether name is a registered template.
func (r *Registry) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names returns the registered template names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func execute(t *template.Template, props map[string]any) (string, error) {
	if props == nil {
		props = map[string]any{}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}
