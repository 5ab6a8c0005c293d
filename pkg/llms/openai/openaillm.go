// Package openai adapts the OpenAI Chat Completions API to the llms.Model
// interface.
package openai

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var (
	ErrEmptyResponse          = errors.New("openai: no response")
	ErrMissingToken           = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("openai: invalid content type")
	ErrUnsupportedMessageType = errors.New("openai: unsupported message type")
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
)

type LLM struct {
	Client  *openai.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new OpenAI client using the official SDK.
// If no token is provided via options, the API key is read from the
// OPENAI_API_KEY environment variable.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token: os.Getenv(TokenEnvVarName),
		Model: DefaultModel,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, errors.WithSecondaryError(llms.ErrAuth, ErrMissingToken)
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}
	if options.Organization != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(options.Organization))
	}

	client := openai.NewClient(sdkOpts...)

	return &LLM{
		Client:  &client,
		Options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	sdkMessages, err := ProcessMessages(messages)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to process messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(opts.Model),
		Messages: sdkMessages,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed > 0 {
		params.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopWords,
		}
	}
	if tools := ToTools(opts.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	result, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithSecondaryError(llms.ErrProtocol, ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"ID":           result.ID,
				"Index":        i,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices[i] = choice
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}

func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return errors.WithMessage(llms.ClassifyHTTPStatus(apiErr.StatusCode, err), "openai: request failed")
	}
	return errors.WithSecondaryError(llms.ErrTransport, err)
}

// ToTools converts tool definitions to OpenAI SDK tool parameters.
// Returns nil if no tools are provided.
func ToTools(tools []llms.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		fn := shared.FunctionDefinitionParam{
			Name: tool.Function.Name,
		}
		if tool.Function.Description != "" {
			fn.Description = openai.String(tool.Function.Description)
		}
		if tool.Function.Parameters != nil {
			fn.Parameters = ToFunctionParameters(tool.Function.Parameters)
		}
		if tool.Function.Strict {
			fn.Strict = openai.Bool(true)
		}
		sdkTools[i] = openai.ChatCompletionFunctionTool(fn)
	}
	return sdkTools
}

// ToFunctionParameters converts a JSON schema into the loose map form the
// OpenAI SDK expects for function parameters.
func ToFunctionParameters(params *jsonschema.Schema) shared.FunctionParameters {
	js, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	var res shared.FunctionParameters
	if err := json.Unmarshal(js, &res); err != nil {
		return nil
	}
	return res
}

// ProcessMessages converts the normalized history to OpenAI SDK messages.
// System messages stay in the history; the Chat Completions API takes them
// inline rather than as a separate parameter.
func ProcessMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		switch msg.Role {
		case llms.RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.GetContent()))
		case llms.RoleHuman:
			chatMessages = append(chatMessages, openai.UserMessage(msg.GetContent()))
		case llms.RoleAI:
			chatMessage, err := HandleAIMessage(msg)
			if err != nil {
				return nil, err
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			for _, part := range msg.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.WithMessagef(ErrInvalidContentType, "openai: for tool message part type: %T", part)
				}
				chatMessages = append(chatMessages, openai.ToolMessage(resp.Content, resp.ToolCallID))
			}
		default:
			return nil, errors.WithMessagef(ErrUnsupportedMessageType, "openai: %v", msg.Role)
		}
	}
	return chatMessages, nil
}

// HandleAIMessage converts assistant messages, including tool calls, to the
// OpenAI assistant message shape.
func HandleAIMessage(msg llms.Message) (openai.ChatCompletionMessageParamUnion, error) {
	assistant := openai.ChatCompletionAssistantMessageParam{}

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			assistant.Content.OfString = openai.String(p.Text)
		case llms.ToolCall:
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: p.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("openai: unsupported AI message part type: %T", part)
		}
	}

	return openai.ChatCompletionMessageParamUnion{
		OfAssistant: &assistant,
	}, nil
}
