package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

// Config describes the available model providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig describes one provider account.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// Provider specifies the provider type:
	// OPENAI|ANTHROPIC|GOOGLEAI
	Provider        string   `json:"provider" yaml:"provider"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
}

// FindModel returns the first preferred model the provider offers, or the
// provider's default.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file. Environment variables in the file are expanded, so
// tokens can be given as ${OPENAI_API_KEY}.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
