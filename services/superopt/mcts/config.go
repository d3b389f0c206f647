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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/edit"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/reward"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/vm"
)

// Defaults for a search run.
const (
	DefaultEpochs       = 10000
	DefaultRolloutSteps = 2000
	DefaultWorkers      = 1
	DefaultServiceName  = "superopt"
)

// DefaultExplorationConstant makes the UCT exploration term
// sqrt(2·ln(N)/n).
var DefaultExplorationConstant = math.Sqrt2

var configValidate = validator.New()

// Config is the complete configuration for a superoptimizer run.
type Config struct {
	Search        SearchConfig        `yaml:"search" json:"search" toml:"search"`
	VM            VMConfig            `yaml:"vm" json:"vm" toml:"vm"`
	Edit          EditConfig          `yaml:"edit" json:"edit" toml:"edit"`
	Reward        RewardConfig        `yaml:"reward" json:"reward" toml:"reward"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" toml:"observability"`
}

// SearchConfig controls the tree search.
type SearchConfig struct {
	// Epochs is the number of select/expand/simulate/backpropagate rounds.
	Epochs int `yaml:"epochs" json:"epochs" toml:"epochs" validate:"gte=1"`

	// RolloutSteps bounds the random edits applied during one simulation.
	RolloutSteps int `yaml:"rollout_steps" json:"rollout_steps" toml:"rollout_steps" validate:"gte=0"`

	// ExplorationConstant multiplies the UCT exploration term.
	ExplorationConstant float64 `yaml:"exploration_constant" json:"exploration_constant" toml:"exploration_constant" validate:"gt=0"`

	// Seed seeds the random generator. Worker i of a parallel run uses Seed+i.
	Seed uint64 `yaml:"seed" json:"seed" toml:"seed"`

	// Workers is the number of independent root-parallel trees.
	Workers int `yaml:"workers" json:"workers" toml:"workers" validate:"gte=1,lte=256"`
}

// VMConfig controls the interpreter.
type VMConfig struct {
	// Registers overrides the fixture's register count when non-zero.
	Registers int `yaml:"registers" json:"registers" toml:"registers" validate:"gte=0,lte=64"`

	StepLimit int `yaml:"step_limit" json:"step_limit" toml:"step_limit" validate:"gte=1"`

	// VecAdd is "subtract" or "add".
	VecAdd string `yaml:"vecadd" json:"vecadd" toml:"vecadd" validate:"oneof=subtract add"`
}

// EditConfig controls the move generator and editor.
type EditConfig struct {
	Moves         []string `yaml:"moves" json:"moves" toml:"moves" validate:"min=1,dive,oneof=remove load_store_registers add_commute vecadd_fuse adjacent_move"`
	StrictReplace bool     `yaml:"strict_replace" json:"strict_replace" toml:"strict_replace"`
}

// RewardConfig selects the simulation scorer.
type RewardConfig struct {
	Scorer string `yaml:"scorer" json:"scorer" toml:"scorer" validate:"oneof=gated graduated"`
}

// ObservabilityConfig controls tracing, metrics and logging.
type ObservabilityConfig struct {
	TracingEnabled bool `yaml:"tracing_enabled" json:"tracing_enabled" toml:"tracing_enabled"`

	// TraceEpochs adds one span per epoch under the run span.
	TraceEpochs bool `yaml:"trace_epochs" json:"trace_epochs" toml:"trace_epochs"`

	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled" toml:"metrics_enabled"`
	LogLevel       string `yaml:"log_level" json:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	ServiceName    string `yaml:"service_name" json:"service_name" toml:"service_name" validate:"required"`
}

// DefaultConfig returns the default configuration: remove-only moves,
// insert-only Replace, subtracting VecAdd and the gated scorer.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Epochs:              DefaultEpochs,
			RolloutSteps:        DefaultRolloutSteps,
			ExplorationConstant: DefaultExplorationConstant,
			Workers:             DefaultWorkers,
		},
		VM: VMConfig{
			StepLimit: vm.DefaultStepLimit,
			VecAdd:    string(vm.VecAddSubtract),
		},
		Edit: EditConfig{
			Moves: []string{string(edit.GenRemove)},
		},
		Reward: RewardConfig{
			Scorer: string(reward.ScorerGated),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
			LogLevel:       "info",
			ServiceName:    DefaultServiceName,
		},
	}
}

// LoadConfig loads configuration from file and environment.
//
// Description:
//
//	Starts from DefaultConfig, overlays the file at configPath (TOML when
//	the extension is .toml, otherwise YAML with a JSON fallback), applies
//	SUPEROPT_* environment overrides and validates the result. A missing
//	file leaves the defaults in place.
//
// Inputs:
//   - configPath: Path to the config file. Empty skips the file.
//
// Outputs:
//   - Config: The loaded configuration.
//   - error: Non-nil if the file cannot be parsed or the result is invalid.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("SUPEROPT_EPOCHS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.Epochs = i
		}
	}
	if v := os.Getenv("SUPEROPT_ROLLOUT_STEPS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.RolloutSteps = i
		}
	}
	if v := os.Getenv("SUPEROPT_SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Search.Seed = u
		}
	}
	if v := os.Getenv("SUPEROPT_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.Workers = i
		}
	}
	if v := os.Getenv("SUPEROPT_EXPLORATION_CONSTANT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Search.ExplorationConstant = f
		}
	}
	if v := os.Getenv("SUPEROPT_STEP_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.VM.StepLimit = i
		}
	}

	if v := os.Getenv("SUPEROPT_TRACING_ENABLED"); v != "" {
		config.Observability.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SUPEROPT_METRICS_ENABLED"); v != "" {
		config.Observability.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SUPEROPT_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = v
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	return configValidate.Struct(c)
}

// Generators returns the configured move generators.
func (c Config) Generators() ([]edit.Generator, error) {
	return edit.ParseGenerators(c.Edit.Moves)
}

// Scorer returns the configured reward scorer.
func (c Config) Scorer() (reward.Scorer, error) {
	return reward.ParseScorer(c.Reward.Scorer)
}
