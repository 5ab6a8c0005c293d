package llmutils_test

import (
	"strings"
	"testing"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_CleanJSON(t *testing.T) {
	llmOutput := "\n```json\n\n{\"severity\": \"error\", \"location\": \"OrderCreated\"}\n\n```\n\n"
	clean := llmutils.CleanJSON([]byte(llmOutput))

	expected := "{\"severity\": \"error\", \"location\": \"OrderCreated\"}"
	assert.Equal(t, expected, string(clean))

	llmOutput = "Here you go:\n```json\n\n[{\"severity\": \"warning\", \"location\": \"Order.status\"}]\n```\n\n"
	clean = llmutils.CleanJSON([]byte(llmOutput))

	expected = "[{\"severity\": \"warning\", \"location\": \"Order.status\"}]"
	assert.Equal(t, expected, string(clean))

	resp := "{\n\t\"summary\": \"Found 1 issue:\\n\\n```json\\n{\\n  \\\"severity\\\": \\\"error\\\"\\n}\\n```\",\n\t\"issues\": []\n}"
	assert.Equal(t, resp, string(llmutils.CleanJSON([]byte(resp))))
}

func Test_TrimBackticks(t *testing.T) {
	expected := "{\"severity\": \"error\", \"location\": \"OrderCreated\"}"

	assert.Equal(t, expected, llmutils.TrimBackticks("\n```json\n\n{\"severity\": \"error\", \"location\": \"OrderCreated\"}\n\n```\n\n"))
	// the same
	assert.Equal(t, expected, llmutils.TrimBackticks(expected))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```\n\n{\"severity\": \"error\", \"location\": \"OrderCreated\"}\n\n```\n\n"))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```{\"severity\": \"error\", \"location\": \"OrderCreated\"}\n\n```\n\n"))
}

func Test_BackticksJSON(t *testing.T) {
	json := "{\"issues\": [], \"summary\": \"No issues found.\"}"
	wrapped := llmutils.BackticksJSON(json)

	expected := "\n```json\n{\"issues\": [], \"summary\": \"No issues found.\"}\n```\n"
	assert.Equal(t, expected, wrapped)
}

func Test_FindLastUserQuestion(t *testing.T) {
	msgs := []llms.Message{
		{
			Role: llms.RoleSystem,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: "You are a schema reviewer."},
			},
		},
		{
			Role: llms.RoleHuman,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: "Review this proto file."},
			},
		},
		{
			Role: llms.RoleAI,
			Parts: []llms.ContentPart{
				llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "list_universal_standards", Arguments: "{}"}},
			},
		},
		{
			Role: llms.RoleTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{ToolCallID: "1", Name: "list_universal_standards", Content: "AIP-142: Time and duration"},
			},
		},
		{
			Role: llms.RoleAI,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: "Reviewing now."},
			},
		},
	}

	question := llmutils.FindLastUserQuestion(msgs)
	assert.Equal(t, "Review this proto file.", question)

	var buf strings.Builder
	llmutils.PrintMessages(&buf, msgs)
	exp := `SYSTEM: You are a schema reviewer.
HUMAN: Review this proto file.
AI: ToolCall ID=1, Type=function, Func=list_universal_standards({})
TOOL: ToolCallResponse ID=1, Name=list_universal_standards, Content=AIP-142: Time and duration
AI: Reviewing now.
`
	assert.Equal(t, exp, buf.String())
}

func Test_CountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "abc"),
	}
	// 5 for the role, 3 for the text
	assert.Equal(t, uint64(8), llmutils.CountMessagesContentSize(msgs))
}
