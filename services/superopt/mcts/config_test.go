// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/reward"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	assert.Equal(t, DefaultEpochs, c.Search.Epochs)
	assert.Equal(t, DefaultRolloutSteps, c.Search.RolloutSteps)
	assert.Equal(t, []string{"remove"}, c.Edit.Moves)
	assert.False(t, c.Edit.StrictReplace)
	assert.Equal(t, "subtract", c.VM.VecAdd)
	assert.Equal(t, "gated", c.Reward.Scorer)
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "superopt.yaml", `
search:
  epochs: 250
  seed: 9
vm:
  vecadd: add
edit:
  moves: [remove, add_commute]
  strict_replace: true
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250, c.Search.Epochs)
	assert.Equal(t, uint64(9), c.Search.Seed)
	assert.Equal(t, DefaultRolloutSteps, c.Search.RolloutSteps, "unset fields keep defaults")
	assert.Equal(t, "add", c.VM.VecAdd)
	assert.Equal(t, []string{"remove", "add_commute"}, c.Edit.Moves)
	assert.True(t, c.Edit.StrictReplace)

	gens, err := c.Generators()
	require.NoError(t, err)
	assert.Equal(t, []edit.Generator{edit.GenRemove, edit.GenAddCommute}, gens)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "superopt.json", `{"search": {"rollout_steps": 12, "workers": 4}, "reward": {"scorer": "graduated"}}`)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 12, c.Search.RolloutSteps)
	assert.Equal(t, 4, c.Search.Workers)
	s, err := c.Scorer()
	require.NoError(t, err)
	assert.Equal(t, reward.ScorerGraduated, s)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfig(t, "superopt.toml", `
[search]
epochs = 77
exploration_constant = 0.5

[vm]
step_limit = 500

[observability]
tracing_enabled = true
log_level = "debug"
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 77, c.Search.Epochs)
	assert.InDelta(t, 0.5, c.Search.ExplorationConstant, 1e-12)
	assert.Equal(t, 500, c.VM.StepLimit)
	assert.True(t, c.Observability.TracingEnabled)
	assert.Equal(t, "debug", c.Observability.LogLevel)
}

func TestLoadConfig_ParseErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "bad.toml", "[search\nepochs ="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")

	_, err = LoadConfig(writeConfig(t, "bad.yaml", "search: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tried YAML and JSON")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "superopt.yaml", "search:\n  epochs: 250\n")
	t.Setenv("SUPEROPT_EPOCHS", "33")
	t.Setenv("SUPEROPT_ROLLOUT_STEPS", "4")
	t.Setenv("SUPEROPT_SEED", "123")
	t.Setenv("SUPEROPT_WORKERS", "2")
	t.Setenv("SUPEROPT_EXPLORATION_CONSTANT", "2.5")
	t.Setenv("SUPEROPT_STEP_LIMIT", "900")
	t.Setenv("SUPEROPT_LOG_LEVEL", "warn")
	t.Setenv("SUPEROPT_TRACING_ENABLED", "1")
	t.Setenv("SUPEROPT_METRICS_ENABLED", "false")

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 33, c.Search.Epochs)
	assert.Equal(t, 4, c.Search.RolloutSteps)
	assert.Equal(t, uint64(123), c.Search.Seed)
	assert.Equal(t, 2, c.Search.Workers)
	assert.InDelta(t, 2.5, c.Search.ExplorationConstant, 1e-12)
	assert.Equal(t, 900, c.VM.StepLimit)
	assert.Equal(t, "warn", c.Observability.LogLevel)
	assert.True(t, c.Observability.TracingEnabled)
	assert.False(t, c.Observability.MetricsEnabled)
}

func TestLoadConfig_IgnoresMalformedEnv(t *testing.T) {
	t.Setenv("SUPEROPT_EPOCHS", "many")

	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEpochs, c.Search.Epochs)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero epochs", func(c *Config) { c.Search.Epochs = 0 }},
		{"negative rollout", func(c *Config) { c.Search.RolloutSteps = -1 }},
		{"zero exploration", func(c *Config) { c.Search.ExplorationConstant = 0 }},
		{"zero workers", func(c *Config) { c.Search.Workers = 0 }},
		{"zero step limit", func(c *Config) { c.VM.StepLimit = 0 }},
		{"unknown vecadd", func(c *Config) { c.VM.VecAdd = "multiply" }},
		{"no moves", func(c *Config) { c.Edit.Moves = nil }},
		{"unknown move", func(c *Config) { c.Edit.Moves = []string{"remove", "swap"} }},
		{"unknown scorer", func(c *Config) { c.Reward.Scorer = "best" }},
		{"unknown log level", func(c *Config) { c.Observability.LogLevel = "trace" }},
		{"no service name", func(c *Config) { c.Observability.ServiceName = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "superopt.yaml", "search:\n  epochs: 0\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
