// Package callbacks provides observers for review runs: tool and model call
// lifecycle events with logging, printing, fanout, and stats collectors.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/tools"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ Callback       = (*Noop)(nil)
	_ tools.Callback = (*Noop)(nil)
	_ Callback       = (*Printer)(nil)
	_ tools.Callback = (*Printer)(nil)
	_ Callback       = (*PackageLogger)(nil)
	_ tools.Callback = (*PackageLogger)(nil)
	_ Callback       = (*Fanout)(nil)
	_ tools.Callback = (*Fanout)(nil)
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "callbacks")

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Callback receives review run lifecycle events. It extends the tool
// callback so one observer covers the whole loop.
type Callback interface {
	tools.Callback

	OnReviewStart(ctx context.Context, agentName, focus, input string)
	OnReviewEnd(ctx context.Context, agentName string, iterations int, content string)
	OnReviewError(ctx context.Context, agentName string, err error)
	OnLLMCallStart(ctx context.Context, agentName string, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, agentName string, llm llms.Model, resp *llms.ContentResponse)
}

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []Callback
}

// NewFanout creates a fanout over the given callbacks.
func NewFanout(callbacks ...Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

// Add appends a callback to the fanout.
func (l *Fanout) Add(callback Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnReviewStart(ctx context.Context, agentName, focus, input string) {
	for _, callback := range l.callbacks {
		callback.OnReviewStart(ctx, agentName, focus, input)
	}
}

func (l *Fanout) OnReviewEnd(ctx context.Context, agentName string, iterations int, content string) {
	for _, callback := range l.callbacks {
		callback.OnReviewEnd(ctx, agentName, iterations, content)
	}
}

func (l *Fanout) OnReviewError(ctx context.Context, agentName string, err error) {
	for _, callback := range l.callbacks {
		callback.OnReviewError(ctx, agentName, err)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, agentName string, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, agentName, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, agentName string, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, agentName, llm, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, agentName, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, agentName, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, agentName, input, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, agentName, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, agentName, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, agentName, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, agentName, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, agentName, tool)
	}
}

// Noop does nothing.
type Noop struct{}

// NewNoop creates a callback that ignores all events.
func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnReviewStart(context.Context, string, string, string)              {}
func (l *Noop) OnReviewEnd(context.Context, string, int, string)                   {}
func (l *Noop) OnReviewError(context.Context, string, error)                       {}
func (l *Noop) OnLLMCallStart(context.Context, string, llms.Model, []llms.Message) {}
func (l *Noop) OnLLMCallEnd(context.Context, string, llms.Model, *llms.ContentResponse) {
}
func (l *Noop) OnToolStart(context.Context, tools.ITool, string, string)        {}
func (l *Noop) OnToolEnd(context.Context, tools.ITool, string, string, string)  {}
func (l *Noop) OnToolError(context.Context, tools.ITool, string, string, error) {}
func (l *Noop) OnToolNotFound(context.Context, string, string)                  {}

// Printer is a callback handler that prints the events to the Writer.
type Printer struct {
	out  io.Writer
	mode Mode

	lock sync.Mutex
}

// NewPrinter creates a printing callback.
func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{out: out, mode: mode}
}

func (l *Printer) printf(format string, args ...any) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.out, format, args...)
}

func (l *Printer) OnReviewStart(_ context.Context, agentName, focus, _ string) {
	l.printf("[%s] review started: focus=%s\n", agentName, focus)
}

func (l *Printer) OnReviewEnd(_ context.Context, agentName string, iterations int, content string) {
	l.printf("[%s] review completed in %d iteration(s)\n", agentName, iterations)
	if l.mode == ModeVerbose {
		l.printf("%s\n", content)
	}
}

func (l *Printer) OnReviewError(_ context.Context, agentName string, err error) {
	l.printf("[%s] review failed: %s\n", agentName, err.Error())
}

func (l *Printer) OnLLMCallStart(_ context.Context, agentName string, llm llms.Model, payload []llms.Message) {
	l.printf("[%s] calling %s: %d message(s)\n", agentName, llm.GetName(), len(payload))
}

func (l *Printer) OnLLMCallEnd(_ context.Context, agentName string, llm llms.Model, resp *llms.ContentResponse) {
	calls := resp.AllToolCalls()
	l.printf("[%s] %s responded: %d choice(s), %d tool call(s)\n",
		agentName, llm.GetName(), len(resp.Choices), len(calls))
}

func (l *Printer) OnToolStart(_ context.Context, tool tools.ITool, agentName, input string) {
	l.printf("[%s] tool %s: %s\n", agentName, tool.Name(), input)
}

func (l *Printer) OnToolEnd(_ context.Context, tool tools.ITool, agentName, _ string, output string) {
	if l.mode == ModeVerbose {
		l.printf("[%s] tool %s returned %d bytes\n", agentName, tool.Name(), len(output))
	}
}

func (l *Printer) OnToolError(_ context.Context, tool tools.ITool, agentName, _ string, err error) {
	l.printf("[%s] tool %s failed: %s\n", agentName, tool.Name(), err.Error())
}

func (l *Printer) OnToolNotFound(_ context.Context, agentName, tool string) {
	l.printf("[%s] tool not found: %s\n", agentName, tool)
}

// PackageLogger logs the events with the package logger.
type PackageLogger struct{}

// NewPackageLogger creates a logging callback.
func NewPackageLogger() *PackageLogger {
	return &PackageLogger{}
}

func (l *PackageLogger) OnReviewStart(ctx context.Context, agentName, focus, input string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "review_start",
		"agent", agentName,
		"focus", focus,
		"input_size", len(input),
	)
}

func (l *PackageLogger) OnReviewEnd(ctx context.Context, agentName string, iterations int, content string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "review_end",
		"agent", agentName,
		"iterations", iterations,
		"content_size", len(content),
	)
}

func (l *PackageLogger) OnReviewError(ctx context.Context, agentName string, err error) {
	logger.ContextKV(ctx, xlog.ERROR,
		"event", "review_error",
		"agent", agentName,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, agentName string, llm llms.Model, payload []llms.Message) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"agent", agentName,
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, agentName string, llm llms.Model, resp *llms.ContentResponse) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"agent", agentName,
		"model", llm.GetName(),
		"choices", len(resp.Choices),
		"tool_calls", len(resp.AllToolCalls()),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, agentName, input string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"agent", agentName,
		"tool", tool.Name(),
		"input_size", len(input),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, agentName, input, output string) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"agent", agentName,
		"tool", tool.Name(),
		"output_size", len(output),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, agentName, input string, err error) {
	logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"agent", agentName,
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, agentName, tool string) {
	logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"agent", agentName,
		"tool", tool,
	)
}
