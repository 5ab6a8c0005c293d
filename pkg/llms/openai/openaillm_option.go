package openai

import (
	"net/http"
)

const (
	TokenEnvVarName = "OPENAI_API_KEY" //nolint:gosec
)

type Options struct {
	Token        string
	Model        string
	BaseURL      string
	Organization string
	HttpClient   *http.Client
}

type Option func(*Options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the OpenAI model to the client.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the OpenAI base URL to the client.
// If not set, the default base URL is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client.
func WithOrganization(organization string) Option {
	return func(opts *Options) {
		opts.Organization = organization
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}
