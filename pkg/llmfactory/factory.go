// Package llmfactory creates provider adapters from YAML configuration or
// from credentials found in the environment.
package llmfactory

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llms/anthropic"
	"github.com/effective-security/protoreview/pkg/llms/googleai"
	"github.com/effective-security/protoreview/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "llmfactory")

// ProviderEnvVarName forces the auto-detected provider:
// openai, gemini, or anthropic.
const ProviderEnvVarName = "MODEL_PROVIDER"

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by provider type:
	// OPENAI, ANTHROPIC, GOOGLEAI.
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// Providers returns the names of the configured providers.
	Providers() []string
}

// Load returns a factory from a YAML config file. An empty location falls
// back to environment auto-detection.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	if len(cfg.Providers) == 0 {
		cfg = DetectConfig()
	}
	return New(cfg), nil
}

// DetectConfig builds provider configs from credentials in the environment.
// MODEL_PROVIDER forces a single provider; otherwise every provider with a
// key present is configured, preferring OpenAI, then Gemini, then Anthropic.
func DetectConfig() *Config {
	cfg := &Config{}

	add := func(name, provider, token string) {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{
			Name:     name,
			Provider: provider,
			Token:    token,
		})
	}

	forced := strings.ToLower(os.Getenv(ProviderEnvVarName))
	if tok := os.Getenv(openai.TokenEnvVarName); tok != "" && (forced == "" || forced == "openai") {
		add("openai", string(llms.ProviderOpenAI), tok)
	}
	if key := os.Getenv(googleai.APIKeyEnvVarName); key != "" && (forced == "" || forced == "gemini") {
		add("gemini", string(llms.ProviderGoogleAI), key)
	}
	if tok := os.Getenv(anthropic.TokenEnvVarName); tok != "" && (forced == "" || forced == "anthropic") {
		add("anthropic", string(llms.ProviderAnthropic), tok)
	}

	if len(cfg.Providers) > 0 {
		cfg.DefaultProvider = cfg.Providers[0].Name
		logger.KV(xlog.DEBUG, "detected_provider", cfg.DefaultProvider)
	}
	return cfg
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[string]llms.Model),
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}
	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM creates an adapter for the provider config.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := strings.ToUpper(cfg.Provider)
	switch llms.ProviderType(provType) {
	case llms.ProviderOpenAI:
		return newOpenAI(cfg, preferredModels...)
	case llms.ProviderAnthropic:
		return newAnthropic(cfg, preferredModels...)
	case llms.ProviderGoogleAI:
		return newGoogleAI(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []anthropic.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, anthropic.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []googleai.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, googleai.WithDefaultModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	return googleai.New(context.Background(), opts...)
}

func (f *factory) Providers() []string {
	names := make([]string, 0, len(f.cfg.Providers))
	for _, p := range f.cfg.Providers {
		names = append(names, p.Name)
	}
	return names
}

// DefaultModel returns the default provider's model.
func (f *factory) DefaultModel() (llms.Model, error) {
	if f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	key := strings.ToUpper(providerType)
	if client, ok := f.byType[key]; ok {
		return client, nil
	}

	for _, provider := range f.cfg.Providers {
		if strings.EqualFold(provider.Provider, providerType) ||
			strings.EqualFold(provider.Name, providerType) {
			client, err := NewLLM(provider, provider.DefaultModel)
			if err != nil {
				return nil, err
			}
			f.byType[key] = client
			return client, nil
		}
	}
	return nil, errors.Errorf("provider not found: %s", providerType)
}

func (f *factory) ModelByName(preferredModels ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, name := range preferredModels {
		if client, ok := f.byName[name]; ok {
			return client, nil
		}
		for _, provider := range f.cfg.Providers {
			if provider.FindModel(name) == name {
				client, err := NewLLM(provider, name)
				if err != nil {
					return nil, err
				}
				f.byName[name] = client
				return client, nil
			}
		}
	}

	logger.KV(xlog.DEBUG, "reason", "model_not_found", "preferred", preferredModels)
	return f.DefaultModel()
}
