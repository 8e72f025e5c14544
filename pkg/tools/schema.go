// Package tools defines the closed set of task operations a model may call.
// Instead of parsing model text output, the module declares structured
// contracts that models fill via tool calls; dispatch goes through a fixed
// registry, so the callable surface stays closed and auditable.
package tools

// Schema defines a JSON Schema for tool parameters. It is sent to the model
// so it knows the exact structure to return.
type Schema struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// Property defines a single property in a JSON Schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`
	MinLength   int      `json:"minLength,omitempty"`
}

// ObjectSchema creates a schema for an object type with the given properties.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	return Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// StringProperty creates a string property.
func StringProperty(desc string) Property {
	return Property{Type: "string", Description: desc}
}

// StringEnumProperty creates a string property constrained to specific values.
func StringEnumProperty(desc string, values ...string) Property {
	return Property{Type: "string", Description: desc, Enum: values}
}

// IntProperty creates an integer property.
func IntProperty(desc string) Property {
	return Property{Type: "integer", Description: desc}
}
