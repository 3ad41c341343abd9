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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/config"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/reembed"
	"github.com/poiesic/gleaner/search"
)

// pollInterval is how often process refreshes task status while waiting.
const pollInterval = 200 * time.Millisecond

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gleaner",
		Usage: "Fetch, analyze and index content for semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides the configuration)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "Process a URL or text and store the resulting document",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "URL to fetch",
					},
					&cli.StringFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Inline text to process",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read inline text from a file",
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owner recorded on the task and document",
						Value: "default",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Do not show a progress bar",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final task as JSON",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the status of a processing task",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task-id",
						Usage:    "Task ID returned by process",
						Required: true,
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Show a stored document",
				Action: showCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document-id",
						Usage:    "Document ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "chunks",
						Usage: "Include the document's chunks",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search stored documents",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search query",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of documents to return",
						Value: search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum cosine similarity for a semantic match",
						Value: search.DefaultMinSimilarity,
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Only return documents of this owner",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Do not show a progress bar",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// openEngine loads the configuration named by the global flags and opens
// an Engine on it.
func openEngine(ctx context.Context, c *cli.Context) (*gleaner.Engine, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Driver = config.DriverBadger
		cfg.Storage.Path = db
		cfg.Storage.InMemory = false
	}
	engine, err := gleaner.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

// sourceFromFlags builds the source named by exactly one of --url, --text
// or --file.
func sourceFromFlags(c *cli.Context) (core.Source, error) {
	set := 0
	for _, name := range []string{"url", "text", "file"} {
		if c.String(name) != "" {
			set++
		}
	}
	if set != 1 {
		return core.Source{}, errors.New("exactly one of --url, --text or --file is required")
	}

	switch {
	case c.String("url") != "":
		return core.URLSource(c.String("url")), nil
	case c.String("text") != "":
		return core.TextSource(c.String("text")), nil
	default:
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return core.Source{}, fmt.Errorf("failed to read text file: %w", err)
		}
		return core.TextSource(string(data)), nil
	}
}

func processCommand(c *cli.Context) error {
	source, err := sourceFromFlags(c)
	if err != nil {
		return err
	}
	if err := core.ValidateSource(source); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(context.WithoutCancel(ctx), c)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	id, err := pipeline.Submit(context.WithoutCancel(ctx), source, c.String("owner"))
	if err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}
	slog.Debug("task submitted", "task", id, "source", source.String())

	var bar *progressbar.ProgressBar
	if !c.Bool("quiet") && !c.Bool("json") {
		bar = getProgressBar(100, "Processing")
	}

	task, err := waitForTask(ctx, pipeline, id, bar)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, task)
	}
	renderTask(c.App.Writer, task)
	if task.Status != core.StatusCompleted {
		return fmt.Errorf("task %s %s", task.ID, task.Status)
	}
	return nil
}

// taskWatcher is the part of the pipeline waitForTask needs.
type taskWatcher interface {
	GetStatus(ctx context.Context, id string) (*core.ProcessingTask, error)
	Cancel(id string) bool
}

// waitForTask polls until the task is terminal. When ctx is cancelled the
// task is asked to cancel and polling continues until it stops.
func waitForTask(ctx context.Context, pipeline taskWatcher, id string, bar *progressbar.ProgressBar) (*core.ProcessingTask, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	cancelled := false
	for {
		task, err := pipeline.GetStatus(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, fmt.Errorf("failed to get task status: %w", err)
		}
		if bar != nil {
			bar.Describe(color.BlueString("%-22s", task.Stage))
			bar.Set(int(task.Progress * 100))
		}
		if task.Status.IsTerminal() {
			return task, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				pipeline.Cancel(id)
				color.Yellow("\nCancelling task %s\n", id)
			}
			<-ticker.C
		}
	}
}

func statusCommand(c *cli.Context) error {
	ctx := c.Context
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	task, err := engine.TaskRepository().GetTask(ctx, c.String("task-id"))
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	return writeJSON(c.App.Writer, task)
}

func showCommand(c *cli.Context) error {
	ctx := c.Context
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	documents := engine.DocumentRepository()
	doc, err := documents.GetDocument(ctx, c.String("document-id"))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if !c.Bool("chunks") {
		return writeJSON(c.App.Writer, doc)
	}

	chunks, err := documents.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	return writeJSON(c.App.Writer, struct {
		*core.Document
		Chunks []core.Chunk `json:"chunks"`
	}{doc, chunks})
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	results, err := searcher.Search(ctx, c.String("query"), search.Options{
		Limit:         c.Int("limit"),
		MinSimilarity: float32(c.Float64("min-similarity")),
		Owner:         c.String("owner"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	renderResults(c.App.Writer, results)
	return nil
}

func reembedCommand(c *cli.Context) error {
	// Create reembedding config
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("batch-size"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []reembed.Option
	if !c.Bool("quiet") {
		opts = append(opts, reembed.WithReporter(&barReporter{}))
	}
	reembedder, err := engine.NewReembedder(reembedConfig, os.Stderr, opts...)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	cfg := engine.Config()
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

// barReporter shows reembedding progress as a progress bar.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func (r *barReporter) Start(total, done int) {
	r.bar = getProgressBar(total, "Reembedding")
	r.bar.Set(done)
}

func (r *barReporter) Update(done int) {
	r.bar.Set(done)
}

func (r *barReporter) Finish() {
	r.bar.Finish()
	fmt.Fprintln(os.Stderr)
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func renderTask(w io.Writer, task *core.ProcessingTask) {
	switch task.Status {
	case core.StatusCompleted:
		color.New(color.FgGreen).Fprintf(w, "✓ Task %s completed\n", task.ID)
		if task.Result != nil {
			fmt.Fprintf(w, "  Document:   %s\n", task.Result.DocumentID)
			fmt.Fprintf(w, "  Chunks:     %d\n", task.Result.ChunkCount)
			fmt.Fprintf(w, "  Characters: %d\n", task.Result.ContentLength)
			fmt.Fprintf(w, "  Strategy:   %s\n", task.Result.Strategy)
			fmt.Fprintf(w, "  Extraction: %s\n", task.Result.ExtractionMethod)
		}
	case core.StatusCancelled:
		color.New(color.FgYellow).Fprintf(w, "Task %s cancelled at %s\n", task.ID, task.Stage)
	default:
		color.New(color.FgRed).Fprintf(w, "✗ Task %s %s at %s\n", task.ID, task.Status, task.Stage)
		if task.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", task.Error)
		}
	}
	if task.RetryCount > 0 {
		fmt.Fprintf(w, "  Retries:    %d\n", task.RetryCount)
	}
}

func renderResults(w io.Writer, results []*core.SearchResult) {
	if len(results) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No matching documents")
		return
	}
	for i, result := range results {
		color.New(color.FgCyan, color.Bold).Fprintf(w, "%d. %s", i+1, result.Document.Title)
		fmt.Fprintf(w, "  (score %.3f)\n", result.Score)
		fmt.Fprintf(w, "   id: %s\n", result.Document.ID)
		if result.Document.SourceURL != "" {
			fmt.Fprintf(w, "   %s\n", result.Document.SourceURL)
		}
		if result.Chunk != nil {
			fmt.Fprintf(w, "   %s\n", excerpt(result.Chunk.Text, 200))
		}
	}
}

// excerpt shortens text to at most n runes on a single line.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
