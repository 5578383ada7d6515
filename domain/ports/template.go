package ports

// TemplateEngine renders templates with configuration values.
type TemplateEngine interface {
	// Render processes the raw configuration bytes with the provided values.
	// Returns resolved bytes with all template placeholders replaced.
	Render(raw []byte, values map[string]interface{}) ([]byte, error)
}
