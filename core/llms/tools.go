package llms

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Tool is a function the model may call during a completion. The wire shape
// follows the OpenAI-compatible tools format.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`

	execute func(arguments string) (string, error)
}

type ToolFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// NewTool builds a Tool whose parameter schema is reflected from T and
// whose execution unmarshals the model-provided arguments into T.
func NewTool[T any](name, description string, execute func(parameters T) (string, error)) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}

	var parameters T
	var schema *jsonschema.Schema
	if parametersType := reflect.TypeOf(parameters); parametersType != nil {
		schema = reflector.ReflectFromType(parametersType)
		// The model only needs the parameter object shape, not a full
		// document schema.
		schema.Version = ""
	}

	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		execute: func(arguments string) (string, error) {
			var parameters T
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &parameters); err != nil {
					return "", fmt.Errorf("failed to parse arguments for tool %q: %w", name, err)
				}
			}
			return execute(parameters)
		},
	}
}

// Execute runs the tool against raw model-provided arguments.
func (t Tool) Execute(arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no executor", t.Function.Name)
	}
	return t.execute(arguments)
}
