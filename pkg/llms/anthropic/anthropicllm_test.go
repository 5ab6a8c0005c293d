package anthropic_test

import (
	"net/http"
	"os"
	"reflect"
	"testing"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llms/anthropic"
	"github.com/effective-security/protoreview/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        []anthropic.Option
		wantErr     bool
		errContains string
	}{
		{
			name:        "missing token",
			opts:        []anthropic.Option{anthropic.WithModel("claude-sonnet-4-20250514")},
			wantErr:     true,
			errContains: "missing API key",
		},
		{
			name: "valid configuration",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithModel("claude-sonnet-4-20250514"),
			},
			wantErr: false,
		},
		{
			name: "with custom base URL",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithBaseURL("https://custom.anthropic.com"),
			},
			wantErr: false,
		},
		{
			name: "with custom HTTP client",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithHTTPClient(&http.Client{}),
			},
			wantErr: false,
		},
		{
			name: "with beta header",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithAnthropicBetaHeader("beta-feature-1"),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "missing token" {
				originalToken := os.Getenv("ANTHROPIC_API_KEY")
				os.Unsetenv("ANTHROPIC_API_KEY")
				defer func() {
					if originalToken != "" {
						os.Setenv("ANTHROPIC_API_KEY", originalToken)
					}
				}()
			}

			allm, err := anthropic.New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.True(t, llms.IsAuthError(err))
				assert.Nil(t, allm)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, allm)
				assert.NotNil(t, allm.Client)
				assert.NotNil(t, allm.Options)
			}
		})
	}
}

func TestGetProviderType(t *testing.T) {
	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
	)
	require.NoError(t, err)

	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
	assert.Equal(t, anthropic.DefaultModel, llm.GetName())
}

func TestProcessMessages(t *testing.T) {
	tests := []struct {
		name         string
		messages     []llms.Message
		wantMessages int
		wantSystem   string
		wantErr      bool
		errContains  string
	}{
		{
			name:         "empty messages",
			messages:     []llms.Message{},
			wantMessages: 0,
			wantSystem:   "",
		},
		{
			name: "system message only",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleSystem, "You are a schema reviewer."),
			},
			wantMessages: 0,
			wantSystem:   "You are a schema reviewer.",
		},
		{
			name: "multiple system messages",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleSystem, "You are a schema reviewer."),
				llms.MessageFromTextParts(llms.RoleSystem, "Respond with JSON only."),
			},
			wantMessages: 0,
			wantSystem:   "You are a schema reviewer.\nRespond with JSON only.",
		},
		{
			name: "human message with text",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleHuman, "Review this proto file."),
			},
			wantMessages: 1,
			wantSystem:   "",
		},
		{
			name: "AI message with tool call",
			messages: []llms.Message{
				llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
					ID:   "call_123",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "get_universal_standard",
						Arguments: `{"standard_id": "AIP-142"}`,
					},
				}),
			},
			wantMessages: 1,
			wantSystem:   "",
		},
		{
			name: "tool message",
			messages: []llms.Message{
				llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
					ToolCallID: "call_123",
					Name:       "get_universal_standard",
					Content:    "AIP-142: use google.protobuf.Timestamp for points in time",
				}),
			},
			wantMessages: 1,
			wantSystem:   "",
		},
		{
			name: "tool message with wrong part type",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleTool, "not a tool response"),
			},
			wantErr:     true,
			errContains: "invalid content type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, system, err := anthropic.ProcessMessages(tt.messages)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
				assert.Len(t, messages, tt.wantMessages)
				assert.Equal(t, tt.wantSystem, system)
			}
		})
	}
}

func TestToTools(t *testing.T) {
	type StandardParams struct {
		StandardID string `json:"standard_id" jsonschema:"description=Identifier of the standard"`
	}
	standardSchema, err := schema.New(reflect.TypeOf(StandardParams{}))
	require.NoError(t, err)

	assert.Nil(t, anthropic.ToTools(nil))
	assert.Nil(t, anthropic.ToTools([]llms.Tool{}))

	tools := anthropic.ToTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "get_universal_standard",
				Description: "Fetch the full text of a universal standard",
				Parameters:  standardSchema.Parameters,
			},
		},
	})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "get_universal_standard", tools[0].OfTool.Name)
	assert.Contains(t, tools[0].OfTool.InputSchema.Properties, "standard_id")
	assert.Equal(t, []string{"standard_id"}, tools[0].OfTool.InputSchema.Required)
}
