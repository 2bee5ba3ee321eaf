package pipeline

import "github.com/sells-group/prospect-cli/internal/model"

// Context is the mutable key/value state shared by the stages of one
// enrichment run. It is owned by the Runner for the duration of a single
// row and discarded afterwards; rows never share a Context.
type Context struct {
	values map[string]any
}

// NewContext seeds a fresh context with the input row's fields and the
// static reference document.
func NewContext(company model.Company, document string) *Context {
	return &Context{values: map[string]any{
		"company_name":     company.Name,
		"website":          company.URL,
		"document_content": document,
	}}
}

// Get returns the value for key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the value for key as a string, or "" when absent or
// not a string.
func (c *Context) GetString(key string) string {
	if s, ok := c.values[key].(string); ok {
		return s
	}
	return ""
}

// Set writes a value into the context for later stages to read.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Snapshot returns a copy of the current context map.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
