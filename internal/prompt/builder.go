package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

type TemplateName string

const (
	TemplateClassify TemplateName = "classify.yaml"
	TemplateAdvice   TemplateName = "advice.yaml"
)

// AllTemplates lists every template shipped with the binary.
var AllTemplates = []TemplateName{TemplateClassify, TemplateAdvice}

// templateFile is the on-disk shape of a prompt template.
type templateFile struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiledTemplate struct {
	system *template.Template
	user   *template.Template
}

// Rendered is a prompt ready to send: an optional system instruction and the
// user message.
type Rendered struct {
	System string
	User   string
}

type PromptBuilder struct {
	mu        sync.RWMutex
	templates map[TemplateName]*compiledTemplate
}

var (
	defaultBuilderOnce sync.Once
	defaultBuilder     *PromptBuilder
)

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		templates: make(map[TemplateName]*compiledTemplate),
	}
}

func DefaultPromptBuilder() *PromptBuilder {
	defaultBuilderOnce.Do(func() {
		defaultBuilder = NewPromptBuilder()
	})
	return defaultBuilder
}

// Preload compiles every shipped template so broken templates fail at startup.
func (pb *PromptBuilder) Preload() error {
	for _, name := range AllTemplates {
		if _, err := pb.getTemplate(name); err != nil {
			return err
		}
	}
	return nil
}

func (pb *PromptBuilder) Render(name TemplateName, data any) (Rendered, error) {
	tmpl, err := pb.getTemplate(name)
	if err != nil {
		return Rendered{}, err
	}

	var out Rendered
	if tmpl.system != nil {
		if out.System, err = execute(tmpl.system, data); err != nil {
			return Rendered{}, fmt.Errorf("render prompt %s (system): %w", name, err)
		}
	}
	if out.User, err = execute(tmpl.user, data); err != nil {
		return Rendered{}, fmt.Errorf("render prompt %s: %w", name, err)
	}

	return out, nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func (pb *PromptBuilder) getTemplate(name TemplateName) (*compiledTemplate, error) {
	pb.mu.RLock()
	if tmpl, ok := pb.templates[name]; ok {
		pb.mu.RUnlock()
		return tmpl, nil
	}
	pb.mu.RUnlock()

	filename := filepath.ToSlash(filepath.Join("templates", string(name)))
	content, err := templateFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load prompt template %s: %w", name, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode prompt template %s: %w", name, err)
	}
	if strings.TrimSpace(file.User) == "" {
		return nil, fmt.Errorf("prompt template %s has no user section", name)
	}

	compiled := &compiledTemplate{}
	if compiled.user, err = template.New(string(name)).Option("missingkey=error").Parse(file.User); err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	if strings.TrimSpace(file.System) != "" {
		if compiled.system, err = template.New(string(name) + ".system").Option("missingkey=error").Parse(file.System); err != nil {
			return nil, fmt.Errorf("parse prompt template %s (system): %w", name, err)
		}
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.templates[name] = compiled

	return compiled, nil
}
