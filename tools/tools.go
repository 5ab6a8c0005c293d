// Package tools defines the tool interface the review agent exposes to the
// model, and the registry that declares and dispatches tool calls.
package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/invopop/jsonschema"
)

// ErrFailedUnmarshalInput is returned by a tool when it cannot parse the
// arguments the model supplied.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input")

// ITool is a tool for the review agent to expose to the model.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() *jsonschema.Schema

	// Call executes the tool with the given input and returns the result.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

// Callback receives tool lifecycle events.
type Callback interface {
	OnToolStart(ctx context.Context, tool ITool, agentName, input string)
	OnToolEnd(ctx context.Context, tool ITool, agentName, input, output string)
	OnToolError(ctx context.Context, tool ITool, agentName, input string, err error)
	OnToolNotFound(ctx context.Context, agentName, tool string)
}

// Tool is a typed tool with a structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns a JSON block describing the given tools, suitable
// for inclusion in a prompt.
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
