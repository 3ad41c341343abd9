package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var logLevels = []string{"debug", "info", "warn", "error"}

// timedStages are the stages that accept a timeout.
var timedStages = []core.Stage{
	core.StageContentExtraction,
	core.StageTextProcessing,
	core.StageAIAnalysis,
	core.StageEmbeddingGeneration,
	core.StageDatabaseStorage,
}

// Validate reports every invalid setting. An empty result means the
// configuration is usable.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, format string, args ...any) {
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Validate AI config
	if c.AI.Provider != ai.ProviderOpenAI && c.AI.Provider != ai.ProviderOllama {
		add("ai.provider", "provider must be %s or %s", ai.ProviderOpenAI, ai.ProviderOllama)
	}
	for field, host := range map[string]string{
		"ai.embedding_host":  c.AI.EmbeddingHost,
		"ai.completion_host": c.AI.CompletionHost,
	} {
		if host == "" {
			add(field, "host is required")
		} else if u, err := url.Parse(host); err != nil || u.Scheme == "" || u.Host == "" {
			add(field, "invalid host URL %q", host)
		}
	}
	if c.AI.EmbeddingModel == "" {
		add("ai.embedding_model", "embedding model is required")
	}
	if c.AI.CompletionModel == "" {
		add("ai.completion_model", "completion model is required")
	}
	if c.AI.EmbeddingDimensions < 1 {
		add("ai.embedding_dimensions", "embedding_dimensions must be positive")
	}

	// Validate Storage config
	switch c.Storage.Driver {
	case DriverBadger:
		if c.Storage.Path == "" && !c.Storage.InMemory {
			add("storage.path", "path is required unless in_memory is set")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			add("storage.database_url", "database_url is required for the postgres driver")
		} else if _, err := url.Parse(c.Storage.DatabaseURL); err != nil {
			add("storage.database_url", "invalid database URL")
		}
	default:
		add("storage.driver", "driver must be %s or %s", DriverBadger, DriverPostgres)
	}

	// Validate Fetch config
	if c.Fetch.MinTextLength < 0 {
		add("fetch.min_text_length", "min_text_length must not be negative")
	}
	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout", "timeout must be positive")
	}
	if c.Fetch.RateLimit < 0 {
		add("fetch.rate_limit", "rate_limit must not be negative")
	}
	if c.Fetch.RenderEndpoint != "" {
		if u, err := url.Parse(c.Fetch.RenderEndpoint); err != nil || u.Scheme == "" {
			add("fetch.render_endpoint", "invalid render endpoint URL")
		}
	}

	// Validate Analysis config
	if c.Analysis.ChunkSize < 1 {
		add("analysis.chunk_size", "chunk_size must be positive")
	}
	if c.Analysis.ChunkOverlap < 0 || c.Analysis.ChunkOverlap >= c.Analysis.ChunkSize {
		add("analysis.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}
	if c.Analysis.ReadingSpeed < 1 {
		add("analysis.reading_speed", "reading_speed must be positive")
	}
	if c.Analysis.MaxKeyPhrases < 0 {
		add("analysis.max_key_phrases", "max_key_phrases must not be negative")
	}

	// Validate Embedding config
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}
	if c.Embedding.Concurrency < 1 {
		add("embedding.concurrency", "concurrency must be positive")
	}

	// Validate Pipeline config
	if c.Pipeline.MaxConcurrency < 1 {
		add("pipeline.max_concurrency", "max_concurrency must be positive")
	}
	if c.Pipeline.MaxAttempts < 1 {
		add("pipeline.max_attempts", "max_attempts must be positive")
	}
	if c.Pipeline.BaseDelay <= 0 {
		add("pipeline.base_delay", "base_delay must be positive")
	}
	if c.Pipeline.MaxDelay < c.Pipeline.BaseDelay {
		add("pipeline.max_delay", "max_delay must be at least base_delay")
	}
	stages := make([]string, 0, len(c.Pipeline.StageTimeouts))
	for stage := range c.Pipeline.StageTimeouts {
		stages = append(stages, stage)
	}
	slices.Sort(stages)
	for _, stage := range stages {
		field := "pipeline.stage_timeouts." + stage
		if !slices.Contains(timedStages, core.Stage(stage)) {
			add(field, "unknown stage")
		} else if c.Pipeline.StageTimeouts[stage] <= 0 {
			add(field, "timeout must be positive")
		}
	}

	// Validate Log config
	if !slices.Contains(logLevels, c.Log.Level) {
		add("log.level", "level must be one of debug, info, warn, error")
	}

	return errors
}
