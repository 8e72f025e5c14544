package tools

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Definition describes a tool the model can call. This is the contract
// between the orchestrator and the model.
type Definition struct {
	// Name is the tool identifier (e.g., "add_task")
	Name string `json:"name"`

	// Description explains what the tool does (shown to the model)
	Description string `json:"description"`

	// Parameters defines the JSON schema for tool arguments
	Parameters Schema `json:"parameters"`
}

// ToOpenAIFormat converts the definition to OpenAI function calling format.
func (d Definition) ToOpenAIFormat() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		},
	}
}

// Call represents a tool invocation requested by a model response.
type Call struct {
	// ID is the unique identifier for this call (from the model)
	ID string `json:"id"`

	// Name is the tool that was called
	Name string `json:"name"`

	// Arguments is the raw JSON arguments from the model
	Arguments json.RawMessage `json:"arguments"`
}

// Registry holds tool definitions. It is populated once at construction and
// read-only afterwards.
type Registry struct {
	tools map[string]Definition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds a tool definition to the registry. Returns an error if a
// tool with the same name already exists.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

// MustRegister adds a tool definition and panics on error. Use this for
// static tool definitions at construction time.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToOpenAIFormat returns all tools in OpenAI function calling format,
// ordered by name so request payloads are deterministic.
func (r *Registry) ToOpenAIFormat() []map[string]any {
	out := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name].ToOpenAIFormat())
	}
	return out
}
