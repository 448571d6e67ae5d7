package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalValidYAML = `
defaults:
  llm_provider: claude
  manager_provider: claude
  pipeline_timeout: 25m
llm_providers:
  claude:
    name: claude
    kind: anthropic
    model: claude-sonnet-4-5
    api_key_env: ANTHROPIC_API_KEY
    max_tokens: 4096
container: migration-inputs
`

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeConfig(t, minimalValidYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Defaults.LLMProvider)
	assert.Equal(t, DefaultRetryConfig, cfg.Defaults.Retry)
	assert.Equal(t, DefaultGovernorConfig, cfg.Defaults.Governor)
	assert.Equal(t, "migration-inputs", cfg.Container)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY_ENV", "MY_KEY")
	path := writeConfig(t, `
defaults:
  llm_provider: claude
  manager_provider: claude
  pipeline_timeout: 25m
llm_providers:
  claude:
    name: claude
    kind: anthropic
    model: claude-sonnet-4-5
    api_key_env: ${TEST_API_KEY_ENV}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MY_KEY", cfg.LLMProviders["claude"].APIKeyEnv)
}

func TestLoadRejectsUnknownDefaultProvider(t *testing.T) {
	path := writeConfig(t, `
defaults:
  llm_provider: nonexistent
  manager_provider: claude
  pipeline_timeout: 25m
llm_providers:
  claude:
    name: claude
    kind: anthropic
    model: claude-sonnet-4-5
    api_key_env: ANTHROPIC_API_KEY
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm_provider")
}

func TestLoadRejectsInvalidProviderKind(t *testing.T) {
	path := writeConfig(t, `
defaults:
  llm_provider: claude
  manager_provider: claude
  pipeline_timeout: 25m
llm_providers:
  claude:
    name: claude
    kind: not-a-real-kind
    model: claude-sonnet-4-5
    api_key_env: ANTHROPIC_API_KEY
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid llm_providers")
}

func TestLoadRejectsUnknownPhaseOverrideName(t *testing.T) {
	path := writeConfig(t, minimalValidYAML+`
phases:
  not_a_phase:
    max_rounds: 5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the four pipeline phases")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestRoundBudgetForUsesOverrideThenRegistryDefault(t *testing.T) {
	cfg := &Config{
		Phases: map[phase.Name]PhaseOverride{},
	}
	assert.Equal(t, phase.Descriptors[phase.Analysis].MaxRounds, cfg.RoundBudgetFor(phase.Analysis))

	override := 3
	cfg.Phases[phase.Analysis] = PhaseOverride{MaxRounds: &override}
	assert.Equal(t, 3, cfg.RoundBudgetFor(phase.Analysis))
}

func TestTruncationPolicyConvertsGovernorConfig(t *testing.T) {
	cfg := &Config{Defaults: Defaults{Governor: DefaultGovernorConfig}}
	policy := cfg.TruncationPolicy()
	assert.Equal(t, DefaultGovernorConfig.MaxTotalTokens, policy.MaxTotalTokens)
	assert.Equal(t, DefaultGovernorConfig.PreserveRecentToolCalls, policy.PreserveRecentToolCalls)
}

func TestRetryPolicyConvertsRetryConfig(t *testing.T) {
	cfg := &Config{Defaults: Defaults{Retry: DefaultRetryConfig}}
	policy := cfg.RetryPolicy()
	assert.Equal(t, DefaultRetryConfig.BaseDelay.AsDuration(), policy.BaseDelay)
	assert.Equal(t, DefaultRetryConfig.MaxRetries, policy.MaxRetries)
	assert.Equal(t, DefaultRetryConfig.JitterPct, policy.JitterPct)
}

func TestExpandEnvSubstitutesShellStyleVars(t *testing.T) {
	t.Setenv("SOME_VAR", "value123")
	out := ExpandEnv([]byte("key: ${SOME_VAR}"))
	assert.Equal(t, "key: value123", string(out))
}
