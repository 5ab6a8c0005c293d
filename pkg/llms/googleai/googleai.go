package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llms/googleai/internal/genaiutils"
	"google.golang.org/genai"
)

var (
	ErrMissingAPIKey         = errors.New("googleai: missing API key, set it in the GOOGLE_API_KEY environment variable")
	ErrNoContentInResponse   = errors.New("googleai: no content in generation response")
	ErrUnknownPartInResponse = errors.New("googleai: unknown part type in generation response")
)

const (
	CITATIONS            = "citations"
	SAFETY               = "safety"
	RoleSystem           = "system"
	RoleModel            = "model"
	RoleUser             = "user"
	RoleTool             = "tool"
	ResponseMIMETypeJSON = "application/json"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.DefaultMaxTokens,
		Temperature: g.opts.DefaultTemperature,
		TopP:        g.opts.DefaultTopP,
	}
	for _, opt := range options {
		opt(&opts)
	}

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genaiutils.Float32Ptr(float32(opts.Temperature)),
		TopP:            genaiutils.Float32Ptr(float32(opts.TopP)),
		Seed:            genaiutils.Int32Ptr(int32(opts.Seed)),
	}

	callCfg.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: g.opts.HarmThreshold,
		},
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}

	// The Gemini API rejects JSON response mode combined with tools.
	if len(callCfg.Tools) == 0 && (opts.JSONMode || opts.ResponseMIMEType == ResponseMIMETypeJSON) {
		callCfg.ResponseMIMEType = ResponseMIMETypeJSON
	}

	return g.generateFromMessages(ctx, opts.Model, messages, callCfg)
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		buf := strings.Builder{}
		var toolCalls []llms.ToolCall

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.Text != "":
					buf.WriteString(part.Text)
				case part.FunctionCall != nil:
					b, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.Wrap(err, "googleai: failed to marshal function call args")
					}
					// Gemini does not assign call IDs, use the function
					// name to correlate the eventual response.
					toolCalls = append(toolCalls, llms.ToolCall{
						ID:   part.FunctionCall.Name,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: string(b),
						},
					})
				default:
					return nil, errors.Wrapf(ErrUnknownPartInResponse, "not text or tool")
				}
			}
		}

		metadata := make(map[string]any)
		metadata[CITATIONS] = candidate.CitationMetadata
		metadata[SAFETY] = candidate.SafetyRatings

		if usage != nil {
			metadata["InputTokens"] = usage.PromptTokenCount
			metadata["OutputTokens"] = usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount
			metadata["TotalTokens"] = usage.TotalTokenCount
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			})
	}
	return &contentResponse, nil
}

// convertParts converts between normalized message parts and genai parts.
func convertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	convertedParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		out := new(genai.Part)

		switch p := part.(type) {
		case llms.TextContent:
			out.Text = p.Text
		case llms.ToolCall:
			fc := p.FunctionCall
			var argsMap map[string]any
			if err := json.Unmarshal([]byte(fc.Arguments), &argsMap); err != nil {
				return convertedParts, errors.Wrap(err, "googleai: failed to unmarshal function call args")
			}
			out.FunctionCall = &genai.FunctionCall{
				Name: fc.Name,
				Args: argsMap,
			}
		case llms.ToolCallResponse:
			out.FunctionResponse = &genai.FunctionResponse{
				Name: p.Name,
				Response: map[string]any{
					"response": p.Content,
				},
			}
		default:
			return nil, errors.Errorf("googleai: unsupported message part type: %T", part)
		}

		convertedParts = append(convertedParts, out)
	}
	return convertedParts, nil
}

// convertContent converts between a normalized message and genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	parts, err := convertParts(content.Parts)
	if err != nil {
		return nil, err
	}

	c := &genai.Content{
		Parts: parts,
	}

	switch content.Role {
	case llms.RoleSystem:
		c.Role = RoleSystem
	case llms.RoleAI:
		c.Role = RoleModel
	case llms.RoleHuman:
		c.Role = RoleUser
	case llms.RoleTool:
		c.Role = RoleTool
	default:
		return nil, errors.Errorf("googleai: role %v not supported", content.Role)
	}

	return c, nil
}

func (g *GoogleAI) generateFromMessages(
	ctx context.Context,
	model string,
	messages []llms.Message,
	config *genai.GenerateContentConfig,
) (*llms.ContentResponse, error) {
	if config == nil {
		config = &genai.GenerateContentConfig{}
	}

	history := make([]*genai.Content, 0, len(messages))
	for _, mc := range messages {
		content, err := convertContent(mc)
		if err != nil {
			return nil, err
		}
		if mc.Role == llms.RoleSystem {
			config.SystemInstruction = content
			continue
		}
		history = append(history, content)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, history, config)
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.WithSecondaryError(llms.ErrProtocol, ErrNoContentInResponse)
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata)
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return errors.WithMessage(llms.ClassifyHTTPStatus(apiErr.Code, err), "googleai: request failed")
	}
	return errors.WithSecondaryError(llms.ErrTransport, err)
}
