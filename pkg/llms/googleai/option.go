package googleai

import (
	"net/http"
	"os"

	"cloud.google.com/go/auth"
	"google.golang.org/genai"
)

const (
	// APIKeyEnvVarName is the environment variable holding the Gemini API key.
	APIKeyEnvVarName = "GOOGLE_API_KEY" //nolint:gosec

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"
)

// Options is a set of options for the GoogleAI client.
type Options struct {
	CloudProject       string
	CloudLocation      string
	DefaultModel       string
	DefaultMaxTokens   int
	DefaultTemperature float64
	DefaultTopP        float64
	HarmThreshold      genai.HarmBlockThreshold
	APIKey             string
	Credentials        *auth.Credentials
	HTTPClient         *http.Client
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:       DefaultModel,
		DefaultMaxTokens:   8192,
		DefaultTemperature: 0.5,
		DefaultTopP:        0.95,
		HarmThreshold:      genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

// EnsureAuthPresent attempts to ensure that the client has authentication
// information. If it does not, it falls back to the GOOGLE_API_KEY
// environment variable.
func (o *Options) EnsureAuthPresent() {
	if o.APIKey == "" && o.Credentials == nil {
		if key := os.Getenv(APIKeyEnvVarName); key != "" {
			WithAPIKey(key)(o)
		}
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithCredentials authenticates API calls with the given credentials.
func WithCredentials(credentials *auth.Credentials) Option {
	return func(opts *Options) {
		if credentials == nil {
			return
		}
		opts.Credentials = credentials
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithCloudProject passes the GCP cloud project name to the client.
func WithCloudProject(p string) Option {
	return func(opts *Options) {
		opts.CloudProject = p
	}
}

// WithCloudLocation passes the GCP cloud location (region) name to the client.
func WithCloudLocation(l string) Option {
	return func(opts *Options) {
		opts.CloudLocation = l
	}
}

// WithDefaultModel passes a default content model name to the client. This
// model name is used if not explicitly provided in specific client invocations.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		opts.DefaultModel = defaultModel
	}
}

// WithDefaultMaxTokens sets the maximum token count for the model.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithDefaultTemperature sets the default temperature for the model.
func WithDefaultTemperature(defaultTemperature float64) Option {
	return func(opts *Options) {
		opts.DefaultTemperature = defaultTemperature
	}
}

// WithDefaultTopP sets the TopP for the model.
func WithDefaultTopP(defaultTopP float64) Option {
	return func(opts *Options) {
		opts.DefaultTopP = defaultTopP
	}
}

// WithHarmThreshold sets the safety/harm setting for the model, potentially
// limiting any harmful content it may generate.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
