package llmfactory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/protoreview/pkg/llmfactory"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llms/anthropic"
	"github.com/effective-security/protoreview/pkg/llms/googleai"
	"github.com/effective-security/protoreview/pkg/llms/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
default_provider: anthropic
providers:
  - name: anthropic
    provider: ANTHROPIC
    token: ${TEST_ANTHROPIC_TOKEN}
    default_model: claude-sonnet-4-20250514
    available_models:
      - claude-sonnet-4-20250514
  - name: openai
    provider: OPENAI
    token: test-openai-token
    default_model: gpt-4o
    available_models:
      - gpt-4o
      - gpt-4o-mini
`

func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("TEST_ANTHROPIC_TOKEN", "test-anthropic-token")
	file := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0o644))
	return file
}

type stubModel struct {
	name     string
	provider llms.ProviderType
}

func (m *stubModel) GetName() string                    { return m.name }
func (m *stubModel) GetProviderType() llms.ProviderType { return m.provider }
func (m *stubModel) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func stubNewLLM(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
	return &stubModel{
		name:     cfg.FindModel(preferredModels...),
		provider: llms.ProviderType(cfg.Provider),
	}, nil
}

func Test_LoadConfig(t *testing.T) {
	file := writeConfig(t)

	cfg, err := llmfactory.LoadConfig(file)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)
	// env vars are expanded
	assert.Equal(t, "test-anthropic-token", cfg.Providers[0].Token)
	assert.Equal(t, "gpt-4o", cfg.Providers[1].FindModel("unknown-model"))
	assert.Equal(t, "gpt-4o-mini", cfg.Providers[1].FindModel("gpt-4o-mini"))

	cfg, err = llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}

func Test_DetectConfig(t *testing.T) {
	t.Setenv(openai.TokenEnvVarName, "sk-openai")
	t.Setenv(googleai.APIKeyEnvVarName, "g-key")
	t.Setenv(anthropic.TokenEnvVarName, "sk-ant")
	t.Setenv(llmfactory.ProviderEnvVarName, "")

	cfg := llmfactory.DetectConfig()
	require.Len(t, cfg.Providers, 3)
	// detection order prefers OpenAI
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, "openai", cfg.Providers[0].Name)
	assert.Equal(t, "gemini", cfg.Providers[1].Name)
	assert.Equal(t, "anthropic", cfg.Providers[2].Name)

	t.Setenv(llmfactory.ProviderEnvVarName, "gemini")
	cfg = llmfactory.DetectConfig()
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "gemini", cfg.DefaultProvider)

	t.Setenv(openai.TokenEnvVarName, "")
	t.Setenv(googleai.APIKeyEnvVarName, "")
	t.Setenv(anthropic.TokenEnvVarName, "")
	t.Setenv(llmfactory.ProviderEnvVarName, "")
	cfg = llmfactory.DetectConfig()
	assert.Empty(t, cfg.Providers)
}

func Test_Factory(t *testing.T) {
	orig := llmfactory.NewLLM
	llmfactory.NewLLM = stubNewLLM
	t.Cleanup(func() { llmfactory.NewLLM = orig })

	file := writeConfig(t)
	f, err := llmfactory.Load(file)
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "openai"}, f.Providers())

	m, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", m.GetName())
	assert.Equal(t, llms.ProviderAnthropic, m.GetProviderType())

	m, err = f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.GetName())

	// cached by type
	m2, err := f.ModelByType("openai")
	require.NoError(t, err)
	assert.Same(t, m, m2)

	_, err = f.ModelByType("BEDROCK")
	require.Error(t, err)

	m, err = f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", m.GetName())

	// unknown model falls back to the default provider
	m, err = f.ModelByName("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, m.GetProviderType())
}

func Test_CreateLLM_Unsupported(t *testing.T) {
	_, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{Provider: "BEDROCK"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type")
}
