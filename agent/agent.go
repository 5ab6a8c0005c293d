// Package agent runs the multi-turn review conversation: it sends the
// review prompt to a model, executes the tool calls the model requests,
// and assembles the final answer into a ReviewResult.
package agent

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/callbacks"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/effective-security/protoreview/pkg/metricskey"
	"github.com/effective-security/protoreview/prompts"
	"github.com/effective-security/protoreview/tools"
	"github.com/effective-security/protoreview/validation"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "agent")

const (
	// DefaultMaxIterations bounds the conversation loop, overridable with
	// MAX_ITERATIONS.
	DefaultMaxIterations = 10
	// DefaultCallTimeout bounds a single model call.
	DefaultCallTimeout = 2 * time.Minute
	// DefaultAgentName identifies the agent in callbacks and logs.
	DefaultAgentName = "protoreview"
)

// MaxIterationsEnvVarName overrides the default iteration budget.
const MaxIterationsEnvVarName = "MAX_ITERATIONS"

// ErrIterationLimit marks a run that ran out of iteration budget. It is
// reported through ReviewResult.Incomplete, never as an error return.
var ErrIterationLimit = errors.New("maximum iterations reached")

// Config controls a review run.
type Config struct {
	AgentName     string
	Focus         prompts.Focus
	MaxIterations int
	CallTimeout   time.Duration
	MaxInputSize  int
	Structured    bool
	Callback      callbacks.Callback
}

// Option mutates the agent configuration.
type Option func(*Config)

// WithName sets the agent name used in callbacks and logs.
func WithName(name string) Option {
	return func(c *Config) { c.AgentName = name }
}

// WithFocus sets the review focus.
func WithFocus(focus prompts.Focus) Option {
	return func(c *Config) { c.Focus = focus }
}

// WithMaxIterations sets the iteration budget.
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.MaxIterations = n }
}

// WithCallTimeout bounds each model call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.CallTimeout = d }
}

// WithMaxInputSize bounds the review input in bytes.
func WithMaxInputSize(n int) Option {
	return func(c *Config) { c.MaxInputSize = n }
}

// WithStructured makes the run produce a parsed Review.
func WithStructured(structured bool) Option {
	return func(c *Config) { c.Structured = structured }
}

// WithCallback sets the run observer.
func WithCallback(cb callbacks.Callback) Option {
	return func(c *Config) { c.Callback = cb }
}

func defaultMaxIterations() int {
	if v := os.Getenv(MaxIterationsEnvVarName); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.KV(xlog.WARNING, "reason", "invalid_max_iterations", "value", v)
	}
	return DefaultMaxIterations
}

// Agent reviews proto documents with a model and a tool registry.
type Agent struct {
	llm      llms.Model
	registry *tools.Registry
	cfg      Config
}

// New creates a review agent.
func New(llm llms.Model, registry *tools.Registry, opts ...Option) *Agent {
	cfg := Config{
		AgentName:     DefaultAgentName,
		Focus:         prompts.FocusEvent,
		MaxIterations: defaultMaxIterations(),
		CallTimeout:   DefaultCallTimeout,
		Callback:      callbacks.NewNoop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Callback == nil {
		cfg.Callback = callbacks.NewNoop()
	}
	// tool lifecycle events flow through the same observer
	registry.WithCallback(cfg.Callback)
	return &Agent{llm: llm, registry: registry, cfg: cfg}
}

// Run reviews the proto content. The conversation history is append-only:
// every model turn and every tool result is added in order and the whole
// history is resent on each call. The run ends when the model answers
// without tool calls, fails, or exhausts the iteration budget.
func (a *Agent) Run(ctx context.Context, protoContent string) (*ReviewResult, error) {
	started := time.Now()
	defer metricskey.PerfReviewCall.MeasureSince(started, a.cfg.AgentName)

	cb := a.cfg.Callback

	if err := validation.Validate(protoContent, a.cfg.MaxInputSize); err != nil {
		metricskey.StatsReviewsFailed.IncrCounter(1, a.cfg.AgentName)
		cb.OnReviewError(ctx, a.cfg.AgentName, err)
		return nil, err
	}

	cb.OnReviewStart(ctx, a.cfg.AgentName, string(a.cfg.Focus), protoContent)

	history, err := prompts.ReviewPrompt(protoContent, a.cfg.Focus, a.cfg.Structured)
	if err != nil {
		metricskey.StatsReviewsFailed.IncrCounter(1, a.cfg.AgentName)
		cb.OnReviewError(ctx, a.cfg.AgentName, err)
		return nil, err
	}

	callOpts := []llms.CallOption{
		llms.WithTools(a.registry.Declarations()),
	}

	var lastText string
	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", a.cfg.AgentName,
			"iteration", iteration,
			"max_iterations", a.cfg.MaxIterations,
		)

		cb.OnLLMCallStart(ctx, a.cfg.AgentName, a.llm, history)

		modelName := a.llm.GetName()
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(history)), a.cfg.AgentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(history)), a.cfg.AgentName, modelName)

		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		resp, err := a.llm.GenerateContent(callCtx, history, callOpts...)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = errors.WithSecondaryError(
					errors.WithMessage(llms.ErrTransport, "model call timed out"), err)
			}
			metricskey.StatsReviewsFailed.IncrCounter(1, a.cfg.AgentName)
			cb.OnReviewError(ctx, a.cfg.AgentName, err)
			return nil, err
		}
		if len(resp.Choices) == 0 {
			err = errors.WithMessage(ErrMalformedResponse, "response without choices")
			metricskey.StatsReviewsFailed.IncrCounter(1, a.cfg.AgentName)
			cb.OnReviewError(ctx, a.cfg.AgentName, err)
			return nil, err
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), a.cfg.AgentName, modelName)
		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), a.cfg.AgentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), a.cfg.AgentName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), a.cfg.AgentName, modelName)

		cb.OnLLMCallEnd(ctx, a.cfg.AgentName, a.llm, resp)

		if resp.HasToolCalls() {
			lastText = resp.Choices[0].Content
			history = a.executeToolCalls(ctx, history, resp)
			continue
		}

		content := resp.Choices[0].Content
		result := &ReviewResult{
			Content:        content,
			Provider:       a.llm.GetProviderType(),
			Model:          a.llm.GetName(),
			IterationsUsed: iteration,
		}
		if a.cfg.Structured {
			review, err := ParseReview(content)
			if err != nil {
				metricskey.StatsReviewParseErrors.IncrCounter(1, a.cfg.AgentName)
				metricskey.StatsReviewsFailed.IncrCounter(1, a.cfg.AgentName)
				cb.OnReviewError(ctx, a.cfg.AgentName, err)
				return nil, err
			}
			result.Review = review
		} else {
			result.Content = values.StringsCoalesce(content, "No issues found.")
		}

		metricskey.StatsReviewsSucceeded.IncrCounter(1, a.cfg.AgentName)
		cb.OnReviewEnd(ctx, a.cfg.AgentName, iteration, result.Content)
		return result, nil
	}

	logger.ContextKV(ctx, xlog.WARNING,
		"agent", a.cfg.AgentName,
		"reason", "iteration_limit",
		"max_iterations", a.cfg.MaxIterations,
	)

	result := &ReviewResult{
		Content:        lastText,
		Provider:       a.llm.GetProviderType(),
		Model:          a.llm.GetName(),
		IterationsUsed: a.cfg.MaxIterations,
		Incomplete:     true,
	}
	if a.cfg.Structured {
		result.Review = &Review{}
	}
	metricskey.StatsReviewsIncomplete.IncrCounter(1, a.cfg.AgentName)
	cb.OnReviewEnd(ctx, a.cfg.AgentName, a.cfg.MaxIterations, result.Content)
	return result, nil
}

// executeToolCalls appends the model's tool call message(s) to the history,
// dispatches all calls, and appends one result message per call in request
// order. The batch completes before the next model turn; the tools are pure
// reads, so calls within the batch run concurrently.
func (a *Agent) executeToolCalls(ctx context.Context, history []llms.Message, resp *llms.ContentResponse) []llms.Message {
	var toolCalls []llms.ToolCall
	for _, choice := range resp.Choices {
		var choiceCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			if toolCall.ID == "" && toolCall.FunctionCall != nil {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceCalls = append(choiceCalls, toolCall)
		}
		if len(choiceCalls) == 0 {
			continue
		}
		toolCalls = append(toolCalls, choiceCalls...)
		history = append(history, llms.MessageFromToolCalls(llms.RoleAI, choiceCalls...))
	}

	results := make([]llms.ToolCallResponse, len(toolCalls))
	var wg sync.WaitGroup
	for i, toolCall := range toolCalls {
		wg.Add(1)
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			results[index] = a.registry.Execute(ctx, a.cfg.AgentName, tc)
		}(i, toolCall)
	}
	wg.Wait()

	for _, res := range results {
		history = append(history, llms.MessageFromToolResponse(llms.RoleTool, res))
	}
	return history
}
