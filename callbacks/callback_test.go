package callbacks_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/callbacks"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
)

type fakeModel struct{}

func (m *fakeModel) GetName() string                    { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderAnthropic }
func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

type fakeTool struct{}

func (t *fakeTool) Name() string                   { return "get_universal_standard" }
func (t *fakeTool) Description() string            { return "lookup" }
func (t *fakeTool) Parameters() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }
func (t *fakeTool) Call(_ context.Context, input string) (string, error) {
	return "# AIP-142", nil
}

func fireAll(cb callbacks.Callback) {
	ctx := context.Background()
	model := &fakeModel{}
	tool := &fakeTool{}

	payload := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "review this"),
	}
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: "done",
				GenerationInfo: map[string]any{
					"InputTokens":  int64(10),
					"OutputTokens": int64(5),
					"TotalTokens":  int64(15),
				},
			},
		},
	}

	cb.OnReviewStart(ctx, "reviewer", "event", "message M {}")
	cb.OnLLMCallStart(ctx, "reviewer", model, payload)
	cb.OnLLMCallEnd(ctx, "reviewer", model, resp)
	cb.OnToolStart(ctx, tool, "reviewer", `{"standard_id":"AIP-142"}`)
	cb.OnToolEnd(ctx, tool, "reviewer", `{"standard_id":"AIP-142"}`, "# AIP-142")
	cb.OnToolError(ctx, tool, "reviewer", `{}`, errors.New("boom"))
	cb.OnToolNotFound(ctx, "reviewer", "nope")
	cb.OnReviewEnd(ctx, "reviewer", 2, "done")
	cb.OnReviewError(ctx, "reviewer", errors.New("failed"))
}

func Test_Noop(t *testing.T) {
	// must not panic
	fireAll(callbacks.NewNoop())
}

func Test_PackageLogger(t *testing.T) {
	fireAll(callbacks.NewPackageLogger())
}

func Test_Printer(t *testing.T) {
	var sb strings.Builder
	fireAll(callbacks.NewPrinter(&sb, callbacks.ModeVerbose))

	out := sb.String()
	assert.Contains(t, out, "[reviewer] review started: focus=event")
	assert.Contains(t, out, "[reviewer] calling fake-model: 1 message(s)")
	assert.Contains(t, out, "[reviewer] fake-model responded: 1 choice(s), 0 tool call(s)")
	assert.Contains(t, out, "[reviewer] tool get_universal_standard:")
	assert.Contains(t, out, "[reviewer] tool get_universal_standard failed: boom")
	assert.Contains(t, out, "[reviewer] tool not found: nope")
	assert.Contains(t, out, "[reviewer] review completed in 2 iteration(s)")
	assert.Contains(t, out, "[reviewer] review failed: failed")
}

func Test_Fanout(t *testing.T) {
	var sb1, sb2 strings.Builder
	fan := callbacks.NewFanout(callbacks.NewPrinter(&sb1, callbacks.ModeDefault))
	fan.Add(callbacks.NewPrinter(&sb2, callbacks.ModeDefault))

	fireAll(fan)
	assert.Equal(t, sb1.String(), sb2.String())
	assert.Contains(t, sb1.String(), "review started")
}

func Test_Stats(t *testing.T) {
	stats := callbacks.NewStats()
	fireAll(stats)

	snap := stats.Snapshot()
	assert.GreaterOrEqual(t, snap.Duration, time.Duration(0))
	assert.Equal(t, uint32(1), snap.LLMCalls)
	// role "human" + "review this"
	assert.Equal(t, uint64(16), snap.LLMBytesOut)
	assert.Equal(t, uint64(4), snap.LLMBytesIn)
	assert.Equal(t, uint64(10), snap.LLMInputTokens)
	assert.Equal(t, uint64(5), snap.LLMOutputTokens)
	assert.Equal(t, uint64(15), snap.LLMTotalTokens)
	assert.Equal(t, uint32(1), snap.ToolCalls)
	assert.Equal(t, uint32(1), snap.ToolsSucceeded)
	assert.Equal(t, uint32(1), snap.ToolsFailed)
	assert.Equal(t, uint32(1), snap.ToolNotFound)
	assert.Equal(t, uint32(2), snap.Reviews)
	assert.Equal(t, uint32(1), snap.ReviewsFailed)
}
