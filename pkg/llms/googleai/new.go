// Package googleai adapts the Gemini API to the llms.Model interface.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"google.golang.org/genai"
)

// GoogleAI is a type that represents a Google AI API client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	clientOptions.EnsureAuthPresent()

	if clientOptions.APIKey == "" && clientOptions.Credentials == nil {
		return nil, errors.WithSecondaryError(llms.ErrAuth, ErrMissingAPIKey)
	}

	gi := &GoogleAI{
		opts: clientOptions,
	}

	cfg := &genai.ClientConfig{
		Project:     clientOptions.CloudProject,
		Location:    clientOptions.CloudLocation,
		APIKey:      clientOptions.APIKey,
		Credentials: clientOptions.Credentials,
		HTTPClient:  clientOptions.HTTPClient,
		Backend:     genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return gi, errors.Wrap(err, "googleai: failed to create client")
	}
	gi.client = client

	return gi, nil
}
