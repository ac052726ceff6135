package ports

// PromptRenderer renders named prompt templates.
type PromptRenderer interface {
	// Render executes the template registered under name with data.
	Render(name string, data any) (string, error)
}
