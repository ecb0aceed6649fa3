package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/docudex/docudex-api/internal/core/domain"
)

//go:embed templates.yaml
var builtinTemplates []byte

// Catalog is the read-only set of workflow templates, in file order.
type Catalog struct {
	templates []domain.WorkflowTemplate
	byID      map[string]int
}

func Builtin() (*Catalog, error) {
	return Parse(builtinTemplates)
}

func Parse(raw []byte) (*Catalog, error) {
	var file struct {
		Templates []domain.WorkflowTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse workflow templates: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(file.Templates))}
	for _, t := range file.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("workflow template %q has no id", t.Name)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate workflow template id %q", t.ID)
		}
		for _, docType := range t.DocumentTypes() {
			if !docType.Valid() {
				return nil, fmt.Errorf("workflow template %q: unknown document type %q", t.ID, docType)
			}
		}
		if t.RequiredDocuments == nil {
			t.RequiredDocuments = []domain.DocumentType{}
		}
		if t.OptionalDocuments == nil {
			t.OptionalDocuments = []domain.DocumentType{}
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

func (c *Catalog) Templates() []domain.WorkflowTemplate {
	out := make([]domain.WorkflowTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *Catalog) Template(id string) (domain.WorkflowTemplate, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.WorkflowTemplate{}, false
	}
	return c.templates[i], true
}
