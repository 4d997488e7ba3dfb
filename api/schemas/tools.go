package schemas

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamBoolean ParamType = "boolean"
	ParamInteger ParamType = "integer"
)

// ParamSpec describes one named input of a tool.
type ParamSpec struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description"`
	Enum        []string    `json:"enum,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolSpec is what the model sees of a tool: its name, purpose and inputs.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamSpec `json:"parameters"`
}

// InputSchema renders the parameters as a JSON Schema object, the form both
// supported providers accept.
func (t ToolSpec) InputSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(t.Parameters))
	required := make([]string, 0, len(t.Parameters))

	for _, p := range t.Parameters {
		prop := map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Param returns the named parameter and whether it exists.
func (t ToolSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}
