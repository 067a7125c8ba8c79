package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/pipeline"
	"github.com/ppiankov/evigate/internal/score"
	"github.com/ppiankov/evigate/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate reports for multiple topics from a file in parallel",
	Long: `Batch processes multiple topics concurrently:
- Read topics from input file (one per line, # comments skipped)
- Run the full pipeline for each topic with a bounded worker pool
- Write a JSON and Markdown report per topic into the output directory
- Starved topics are listed as skipped, not failures

Example:
  evigate batch topics.txt
  evigate batch topics.txt --concurrency 4 --output-dir ./reports
  evigate batch topics.txt --days-back 30 --llm openai`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of concurrent topic runs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./evigate-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Shared run flags
	batchCmd.Flags().IntVar(&daysBack, "days-back", 0, "evidence window in days (0 = config default)")
	batchCmd.Flags().StringVar(&intent, "intent", score.IntentMarket, "report intent (market or theory)")
	batchCmd.Flags().StringVar(&searxURL, "searx", "", "SearXNG base URL (overrides config)")
	batchCmd.Flags().StringVar(&healthPath, "health", "", "axis health file shared across runs")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh searches)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider (openai, anthropic, ollama; empty disables generation)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// batchResult pairs one topic with its run outcome.
type batchResult struct {
	topic  string
	bundle *model.Bundle
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	topics, err := readTopics(file)
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return fmt.Errorf("no topics found in %s", file)
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processing %d topics with %d workers...\n\n", len(topics), concurrency)

	tasks := make([]worker.Task[batchResult], len(topics))
	for i, topic := range topics {
		topic := topic
		tasks[i] = func(ctx context.Context) batchResult {
			bundle, err := p.Run(ctx, pipeline.Request{Topic: topic, DaysBack: daysBack, Intent: intent})
			return batchResult{topic: topic, bundle: bundle, err: err}
		}
	}
	results := worker.Map(ctx, concurrency, tasks)

	success, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch {
		case errors.Is(result.err, pipeline.ErrInsufficientEvidence):
			skipped++
			fmt.Fprintf(os.Stderr, "- %s: skipped (%v)\n", result.topic, result.err)
			continue
		case result.err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.topic, result.err)
			continue
		case result.bundle == nil:
			// Cancelled before the task was claimed.
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: batch timeout\n", result.topic)
			continue
		}

		slug := topicSlug(result.topic)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := writeBundle(result.bundle, cfg, jsonPath, mdPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.topic, err)
			continue
		}
		success++
		fmt.Fprintf(os.Stderr, "✓ %s (%s, confidence %s)\n", result.topic, result.bundle.Regime, result.bundle.Confidence.Display)
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d reports, %d skipped, %d failed -> %s\n",
		success, skipped, failed, outputDir)
	if failed > 0 {
		return fmt.Errorf("%d of %d topics failed", failed, len(topics))
	}
	return nil
}

// readTopics loads one topic per line, skipping blanks and # comments.
func readTopics(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()

	var topics []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	return topics, nil
}

// topicSlug turns a topic into a safe filename stem.
func topicSlug(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '/':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "topic"
	}
	if len(slug) > 80 {
		slug = slug[:80]
	}
	return slug
}
