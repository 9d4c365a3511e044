package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

type templateSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

// Catalog holds one compiled subject and body per Kind.
type Catalog struct {
	byKind map[Kind]compiled
}

// LoadCatalog parses the embedded template catalog. Every Kind must be
// present.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(templatesYAML)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]templateSource
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	c := &Catalog{byKind: make(map[Kind]compiled, len(raw))}
	for _, kind := range Kinds {
		src, ok := raw[string(kind)]
		if !ok {
			return nil, fmt.Errorf("email template %q missing", kind)
		}
		subject, err := texttemplate.New(string(kind) + ".subject").Option("missingkey=error").Parse(src.Subject)
		if err != nil {
			return nil, fmt.Errorf("email template %q subject: %w", kind, err)
		}
		body, err := htmltemplate.New(string(kind) + ".body").Option("missingkey=error").Parse(src.Body)
		if err != nil {
			return nil, fmt.Errorf("email template %q body: %w", kind, err)
		}
		c.byKind[kind] = compiled{subject: subject, body: body}
	}
	return c, nil
}

// Render produces the subject line and HTML body for kind.
func (c *Catalog) Render(kind Kind, p Payload) (string, string, error) {
	t, ok := c.byKind[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, p); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := t.body.Execute(&body, p); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return subject.String(), body.String(), nil
}
