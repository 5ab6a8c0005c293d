package callbacks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/effective-security/protoreview/tools"
)

var _ Callback = (*Stats)(nil)

// TimeNowFn is replaceable in tests.
var TimeNowFn = time.Now

// RunStats aggregates counters over a review run.
type RunStats struct {
	Duration        time.Duration
	LLMCalls        uint32
	LLMBytesOut     uint64
	LLMBytesIn      uint64
	LLMInputTokens  uint64
	LLMOutputTokens uint64
	LLMTotalTokens  uint64
	ToolCalls       uint32
	ToolsSucceeded  uint32
	ToolsFailed     uint32
	ToolNotFound    uint32
	Reviews         uint32
	ReviewsFailed   uint32
}

// Stats is a callback that collects run counters. Safe for concurrent use.
type Stats struct {
	started atomic.Int64

	llmCalls        atomic.Uint32
	llmBytesOut     atomic.Uint64
	llmBytesIn      atomic.Uint64
	llmInputTokens  atomic.Uint64
	llmOutputTokens atomic.Uint64
	llmTotalTokens  atomic.Uint64
	toolCalls       atomic.Uint32
	toolsSucceeded  atomic.Uint32
	toolsFailed     atomic.Uint32
	toolNotFound    atomic.Uint32
	reviews         atomic.Uint32
	reviewsFailed   atomic.Uint32
}

// NewStats creates a stats collecting callback.
func NewStats() *Stats {
	return &Stats{}
}

// Snapshot returns the current counters.
func (l *Stats) Snapshot() RunStats {
	var dur time.Duration
	if start := l.started.Load(); start > 0 {
		dur = TimeNowFn().Sub(time.Unix(0, start))
	}
	return RunStats{
		Duration:        dur,
		LLMCalls:        l.llmCalls.Load(),
		LLMBytesOut:     l.llmBytesOut.Load(),
		LLMBytesIn:      l.llmBytesIn.Load(),
		LLMInputTokens:  l.llmInputTokens.Load(),
		LLMOutputTokens: l.llmOutputTokens.Load(),
		LLMTotalTokens:  l.llmTotalTokens.Load(),
		ToolCalls:       l.toolCalls.Load(),
		ToolsSucceeded:  l.toolsSucceeded.Load(),
		ToolsFailed:     l.toolsFailed.Load(),
		ToolNotFound:    l.toolNotFound.Load(),
		Reviews:         l.reviews.Load(),
		ReviewsFailed:   l.reviewsFailed.Load(),
	}
}

func (l *Stats) OnReviewStart(_ context.Context, _, _, _ string) {
	l.started.CompareAndSwap(0, TimeNowFn().UnixNano())
}

func (l *Stats) OnReviewEnd(_ context.Context, _ string, _ int, _ string) {
	l.reviews.Add(1)
}

func (l *Stats) OnReviewError(_ context.Context, _ string, _ error) {
	l.reviews.Add(1)
	l.reviewsFailed.Add(1)
}

func (l *Stats) OnLLMCallStart(_ context.Context, _ string, _ llms.Model, payload []llms.Message) {
	l.llmCalls.Add(1)
	l.llmBytesOut.Add(llmutils.CountMessagesContentSize(payload))
}

func (l *Stats) OnLLMCallEnd(_ context.Context, _ string, _ llms.Model, resp *llms.ContentResponse) {
	l.llmBytesIn.Add(llmutils.CountResponseContentSize(resp))
	in, out, total := llmutils.CountTokens(resp)
	l.llmInputTokens.Add(uint64(in))
	l.llmOutputTokens.Add(uint64(out))
	l.llmTotalTokens.Add(uint64(total))
}

func (l *Stats) OnToolStart(_ context.Context, _ tools.ITool, _, _ string) {
	l.toolCalls.Add(1)
}

func (l *Stats) OnToolEnd(_ context.Context, _ tools.ITool, _, _, _ string) {
	l.toolsSucceeded.Add(1)
}

func (l *Stats) OnToolError(_ context.Context, _ tools.ITool, _, _ string, _ error) {
	l.toolsFailed.Add(1)
}

func (l *Stats) OnToolNotFound(_ context.Context, _, _ string) {
	l.toolNotFound.Add(1)
}
