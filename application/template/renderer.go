// Package template renders the prompts sent to generation models.
package template

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/reglet-dev/artefact-host/domain/ports"
)

// Prompt template names.
const (
	PromptChat       = "chat"
	PromptPredict    = "predict"
	PromptCategorise = "categorise"
)

const chatPrompt = `{{if .Context}}context:
{{join .Context "\n---\n"}}

{{end}}{{range $i, $m := .History}}{{if $i}}
{{end}}{{$m.Role}}: {{$m.Content}}{{end}}`

const predictPrompt = `Task: Generate structured JSON output based on the provided schema.

Input: {{.Content}}

Schema: {{.Schema}}

JSON Output:`

const categorisePrompt = `Task: Categorize the input into one of the following choices: {{join .Choices ", "}}

Input: {{.Content}}

Choice:`

// templateConfig holds configuration for the PromptEngine.
type templateConfig struct {
	overrides map[string]string
	strict    bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		strict:    true,
		overrides: map[string]string{},
	}
}

// TemplateOption configures a PromptEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), rendering fails if a referenced map key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithTemplate replaces the built-in template registered under name.
func WithTemplate(name, text string) TemplateOption {
	return func(c *templateConfig) {
		c.overrides[name] = text
	}
}

// PromptEngine implements PromptRenderer using text/template.
type PromptEngine struct {
	root *template.Template
}

// ChatData is the input of the chat prompt.
type ChatData struct {
	Context []string
	History []ChatLine
}

// ChatLine is one transcript line.
type ChatLine struct {
	Role    string
	Content string
}

// PredictData is the input of the predict prompt.
type PredictData struct {
	Content string
	Schema  string
}

// CategoriseData is the input of the categorise prompt.
type CategoriseData struct {
	Content string
	Choices []string
}

// NewPromptEngine parses the prompt templates.
func NewPromptEngine(opts ...TemplateOption) (ports.PromptRenderer, error) {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sources := map[string]string{
		PromptChat:       chatPrompt,
		PromptPredict:    predictPrompt,
		PromptCategorise: categorisePrompt,
	}
	for name, text := range cfg.overrides {
		sources[name] = text
	}

	root := template.New("prompts").Funcs(template.FuncMap{"join": strings.Join})
	if cfg.strict {
		root = root.Option("missingkey=error")
	}
	for name, text := range sources {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("failed to parse prompt template %q: %w", name, err)
		}
	}
	return &PromptEngine{root: root}, nil
}

// Render executes the named template.
func (e *PromptEngine) Render(name string, data any) (string, error) {
	tmpl := e.root.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %q: %w", name, err)
	}
	return buf.String(), nil
}
