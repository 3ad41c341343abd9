// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads gleaner's file and environment configuration.
//
// Values come from a YAML file (an explicit path or the first of the
// default locations), then GLEANER_* environment variables, then defaults
// for anything still unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
)

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type Config struct {
	AI struct {
		Provider            string `yaml:"provider"`
		EmbeddingHost       string `yaml:"embedding_host"`
		CompletionHost      string `yaml:"completion_host"`
		EmbeddingModel      string `yaml:"embedding_model"`
		CompletionModel     string `yaml:"completion_model"`
		APIKey              string `yaml:"api_key"`
		EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	} `yaml:"ai"`

	Storage struct {
		Driver      string `yaml:"driver"`
		Path        string `yaml:"path"`
		InMemory    bool   `yaml:"in_memory"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"storage"`

	Fetch struct {
		MinTextLength  int           `yaml:"min_text_length"`
		Timeout        time.Duration `yaml:"timeout"`
		RateLimit      float64       `yaml:"rate_limit"`
		UserAgent      string        `yaml:"user_agent"`
		RenderEndpoint string        `yaml:"render_endpoint"`
	} `yaml:"fetch"`

	Analysis struct {
		ChunkSize     int `yaml:"chunk_size"`
		ChunkOverlap  int `yaml:"chunk_overlap"`
		ReadingSpeed  int `yaml:"reading_speed"`
		MaxKeyPhrases int `yaml:"max_key_phrases"`
	} `yaml:"analysis"`

	Embedding struct {
		BatchSize   int `yaml:"batch_size"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"embedding"`

	Pipeline struct {
		MaxConcurrency int                      `yaml:"max_concurrency"`
		MaxAttempts    int                      `yaml:"max_attempts"`
		BaseDelay      time.Duration            `yaml:"base_delay"`
		MaxDelay       time.Duration            `yaml:"max_delay"`
		StageTimeouts  map[string]time.Duration `yaml:"stage_timeouts"`
	} `yaml:"pipeline"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// defaultLocations lists where LoadConfig looks when no path is given.
func defaultLocations() []string {
	return []string{
		"gleaner.yaml",
		"gleaner.yml",
		filepath.Join(os.Getenv("HOME"), ".config/gleaner/config.yaml"),
		"/etc/gleaner/config.yaml",
	}
}

// LoadConfig reads the configuration at path, or the first default location
// that exists. With no file at all the defaults and environment are used.
func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		for _, loc := range defaultLocations() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	// Merge with environment variables
	if err := mergeWithEnv(&config); err != nil {
		return nil, err
	}

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	aiDefaults := ai.DefaultConfig()
	if config.AI.Provider == "" {
		config.AI.Provider = aiDefaults.Provider
	}
	if config.AI.EmbeddingHost == "" {
		config.AI.EmbeddingHost = aiDefaults.EmbeddingHost
	}
	if config.AI.CompletionHost == "" {
		config.AI.CompletionHost = aiDefaults.CompletionHost
	}
	if config.AI.EmbeddingModel == "" {
		config.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if config.AI.CompletionModel == "" {
		config.AI.CompletionModel = aiDefaults.CompletionModel
	}
	if config.AI.APIKey == "" {
		config.AI.APIKey = aiDefaults.APIKey
	}
	if config.AI.EmbeddingDimensions == 0 {
		config.AI.EmbeddingDimensions = aiDefaults.EmbeddingDimensions
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = DriverBadger
	}
	if config.Storage.Driver == DriverBadger && config.Storage.Path == "" && !config.Storage.InMemory {
		config.Storage.Path = filepath.Join(os.Getenv("HOME"), ".local/share/gleaner/db")
	}

	if config.Fetch.MinTextLength == 0 {
		config.Fetch.MinTextLength = 100
	}
	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 30 * time.Second
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 2.0
	}

	if config.Analysis.ChunkSize == 0 {
		config.Analysis.ChunkSize = 1000
	}
	if config.Analysis.ChunkOverlap == 0 {
		config.Analysis.ChunkOverlap = 200
	}
	if config.Analysis.ReadingSpeed == 0 {
		config.Analysis.ReadingSpeed = 200
	}
	if config.Analysis.MaxKeyPhrases == 0 {
		config.Analysis.MaxKeyPhrases = 20
	}

	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 32
	}
	if config.Embedding.Concurrency == 0 {
		config.Embedding.Concurrency = 2
	}

	if config.Pipeline.MaxConcurrency == 0 {
		config.Pipeline.MaxConcurrency = max(runtime.NumCPU()/2, 1)
	}
	if config.Pipeline.MaxAttempts == 0 {
		config.Pipeline.MaxAttempts = 3
	}
	if config.Pipeline.BaseDelay == 0 {
		config.Pipeline.BaseDelay = time.Second
	}
	if config.Pipeline.MaxDelay == 0 {
		config.Pipeline.MaxDelay = 30 * time.Second
	}
	if config.Pipeline.StageTimeouts == nil {
		config.Pipeline.StageTimeouts = make(map[string]time.Duration)
	}
	for stage, timeout := range defaultStageTimeouts {
		if _, ok := config.Pipeline.StageTimeouts[string(stage)]; !ok {
			config.Pipeline.StageTimeouts[string(stage)] = timeout
		}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

var defaultStageTimeouts = map[core.Stage]time.Duration{
	core.StageContentExtraction:   60 * time.Second,
	core.StageTextProcessing:      30 * time.Second,
	core.StageAIAnalysis:          180 * time.Second,
	core.StageEmbeddingGeneration: 120 * time.Second,
	core.StageDatabaseStorage:     30 * time.Second,
}

func mergeWithEnv(config *Config) error {
	stringVars := map[string]*string{
		"GLEANER_AI_PROVIDER":      &config.AI.Provider,
		"GLEANER_EMBEDDING_HOST":   &config.AI.EmbeddingHost,
		"GLEANER_COMPLETION_HOST":  &config.AI.CompletionHost,
		"GLEANER_EMBEDDING_MODEL":  &config.AI.EmbeddingModel,
		"GLEANER_COMPLETION_MODEL": &config.AI.CompletionModel,
		"GLEANER_API_KEY":          &config.AI.APIKey,
		"GLEANER_STORAGE_DRIVER":   &config.Storage.Driver,
		"GLEANER_STORAGE_PATH":     &config.Storage.Path,
		"GLEANER_DATABASE_URL":     &config.Storage.DatabaseURL,
		"GLEANER_RENDER_ENDPOINT":  &config.Fetch.RenderEndpoint,
		"GLEANER_LOG_LEVEL":        &config.Log.Level,
	}
	for name, target := range stringVars {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}

	intVars := map[string]*int{
		"GLEANER_EMBEDDING_DIMENSIONS": &config.AI.EmbeddingDimensions,
		"GLEANER_MAX_CONCURRENCY":      &config.Pipeline.MaxConcurrency,
		"GLEANER_MAX_ATTEMPTS":         &config.Pipeline.MaxAttempts,
	}
	for name, target := range intVars {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		*target = n
	}
	return nil
}

// AIConfig returns the provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return &ai.Config{
		Provider:            c.AI.Provider,
		EmbeddingHost:       c.AI.EmbeddingHost,
		CompletionHost:      c.AI.CompletionHost,
		EmbeddingModel:      c.AI.EmbeddingModel,
		CompletionModel:     c.AI.CompletionModel,
		APIKey:              c.AI.APIKey,
		EmbeddingDimensions: c.AI.EmbeddingDimensions,
	}
}

// RetryPolicy returns the pipeline retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = c.Pipeline.MaxAttempts
	policy.Backoff = retry.ExponentialBackoff(c.Pipeline.BaseDelay, c.Pipeline.MaxDelay)
	return policy
}

// StageTimeouts returns the per-stage timeouts keyed by stage.
func (c *Config) StageTimeouts() map[core.Stage]time.Duration {
	timeouts := make(map[core.Stage]time.Duration, len(c.Pipeline.StageTimeouts))
	for name, timeout := range c.Pipeline.StageTimeouts {
		timeouts[core.Stage(name)] = timeout
	}
	return timeouts
}
