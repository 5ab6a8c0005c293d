package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "tools")

// Registry holds the tools available to a review run. Declarations are
// returned in registration order so the model sees a stable tool list.
type Registry struct {
	names   []string
	byName  map[string]ITool
	callbck Callback
}

// NewRegistry creates an empty registry.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool),
	}
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithCallback sets the callback receiving tool lifecycle events.
func (r *Registry) WithCallback(cb Callback) *Registry {
	r.callbck = cb
	return r
}

// Register adds a tool. Tool names must be unique.
func (r *Registry) Register(tool ITool) error {
	name := tool.Name()
	if _, ok := r.byName[name]; ok {
		return errors.Errorf("tool %q already registered", name)
	}
	r.names = append(r.names, name)
	r.byName[name] = tool
	return nil
}

// GetTool returns a registered tool by name.
func (r *Registry) GetTool(name string) (ITool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.names)
}

// Declarations returns the tool definitions in registration order, in the
// shape the provider adapters consume.
func (r *Registry) Declarations() []llms.Tool {
	res := make([]llms.Tool, 0, len(r.names))
	for _, name := range r.names {
		tool := r.byName[name]
		res = append(res, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return res
}

// Execute dispatches one tool call and returns its response. Failures are
// reported in the response with IsError set, never as an error: the model is
// expected to read the failure text and recover. The response always carries
// the caller's tool call ID.
func (r *Registry) Execute(ctx context.Context, agentName string, call llms.ToolCall) llms.ToolCallResponse {
	if call.FunctionCall == nil {
		return llms.ToolCallResponse{
			ToolCallID: call.ID,
			Content:    "Error: malformed tool call without a function",
			IsError:    true,
		}
	}

	name := call.FunctionCall.Name
	resp := llms.ToolCallResponse{
		ToolCallID: call.ID,
		Name:       name,
	}

	tool, ok := r.byName[name]
	if !ok {
		logger.ContextKV(ctx, xlog.DEBUG, "event", "tool_not_found", "tool", name)
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		if r.callbck != nil {
			r.callbck.OnToolNotFound(ctx, agentName, name)
		}
		resp.Content = "Error: unknown tool: " + name
		resp.IsError = true
		return resp
	}

	input := call.FunctionCall.Arguments
	if r.callbck != nil {
		r.callbck.OnToolStart(ctx, tool, agentName, input)
	}

	out, err := tool.Call(ctx, input)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "event", "tool_error", "tool", name, "err", err.Error())
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		if r.callbck != nil {
			r.callbck.OnToolError(ctx, tool, agentName, input, err)
		}
		resp.Content = "Error: " + err.Error()
		resp.IsError = true
		return resp
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	if r.callbck != nil {
		r.callbck.OnToolEnd(ctx, tool, agentName, input, out)
	}
	resp.Content = out
	return resp
}
