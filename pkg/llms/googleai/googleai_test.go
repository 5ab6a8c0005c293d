package googleai

import (
	"testing"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func Test_convertContent(t *testing.T) {
	c, err := convertContent(llms.MessageFromTextParts(llms.RoleHuman, "Review this proto file."))
	require.NoError(t, err)
	assert.Equal(t, RoleUser, c.Role)
	require.Len(t, c.Parts, 1)
	assert.Equal(t, "Review this proto file.", c.Parts[0].Text)

	c, err = convertContent(llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "get_universal_standard",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "get_universal_standard",
			Arguments: `{"standard_id": "AIP-142"}`,
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, RoleModel, c.Role)
	require.Len(t, c.Parts, 1)
	require.NotNil(t, c.Parts[0].FunctionCall)
	assert.Equal(t, "get_universal_standard", c.Parts[0].FunctionCall.Name)
	assert.Equal(t, "AIP-142", c.Parts[0].FunctionCall.Args["standard_id"])

	c, err = convertContent(llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "get_universal_standard",
		Name:       "get_universal_standard",
		Content:    "AIP-142 text",
	}))
	require.NoError(t, err)
	assert.Equal(t, RoleTool, c.Role)
	require.NotNil(t, c.Parts[0].FunctionResponse)
	assert.Equal(t, "AIP-142 text", c.Parts[0].FunctionResponse.Response["response"])
}

func Test_convertCandidates(t *testing.T) {
	resp, err := convertCandidates([]*genai.Candidate{
		{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{
				Role: RoleModel,
				Parts: []*genai.Part{
					{Text: "No issues found."},
				},
			},
		},
	}, &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     100,
		CandidatesTokenCount: 20,
		TotalTokenCount:      120,
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "No issues found.", resp.Choices[0].Content)
	assert.Equal(t, string(genai.FinishReasonStop), resp.Choices[0].StopReason)
	assert.False(t, resp.HasToolCalls())

	resp, err = convertCandidates([]*genai.Candidate{
		{
			Content: &genai.Content{
				Role: RoleModel,
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{
						Name: "list_org_standards",
						Args: map[string]any{},
					}},
				},
			},
		},
	}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].ToolCalls, 1)
	// the function name doubles as the correlation ID
	assert.Equal(t, "list_org_standards", resp.Choices[0].ToolCalls[0].ID)
	assert.True(t, resp.HasToolCalls())
}
