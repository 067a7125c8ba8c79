package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/pipeline"
	"github.com/ppiankov/evigate/internal/score"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	outJSON     string
	outMD       string
	daysBack    int
	intent      string
	runTimeout  time.Duration
	searxURL    string
	userAgent   string
	healthPath  string
	noCache     bool
	noFooter    bool
	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <topic>",
	Short: "Harvest evidence for a topic and generate a gated signal report",
	Long: `Report runs the full pipeline for one topic:
- Harvest sources over ranked query variants, widening the window as needed
- Grade and tier each source, classify the evidence regime
- Extract candidate signals and gate them against support thresholds
- Align kept claims to strict evidence anchors
- Score calibrated confidence with regime and intent caps

A starved evidence regime aborts the run instead of shipping a thin report.

Example:
  evigate report "enterprise ai adoption"
  evigate report "enterprise ai adoption" --days-back 30 --json out.json --md out.md
  evigate report "agi timelines" --intent theory --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Output flags
	reportCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	reportCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	reportCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Run flags
	reportCmd.Flags().IntVar(&daysBack, "days-back", 0, "evidence window in days (0 = config default)")
	reportCmd.Flags().StringVar(&intent, "intent", score.IntentMarket, "report intent (market or theory)")
	reportCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall run timeout")

	// Retrieval flags
	reportCmd.Flags().StringVar(&searxURL, "searx", "", "SearXNG base URL (overrides config)")
	reportCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (overrides config)")
	reportCmd.Flags().StringVar(&healthPath, "health", "", "axis health file (default: in-memory only)")
	reportCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh searches)")
	reportCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	reportCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	reportCmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider (openai, anthropic, ollama; empty disables generation)")
	reportCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runReport(cmd *cobra.Command, args []string) error {
	topic := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Topic: %s\n", topic)
		fmt.Fprintf(os.Stderr, "Intent: %s\n", intent)
		fmt.Fprintf(os.Stderr, "Search: %s\n", cfg.Search.BaseURL)
		if cfg.LLM.Provider != "" {
			fmt.Fprintf(os.Stderr, "LLM: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	bundle, err := p.Run(ctx, pipeline.Request{Topic: topic, DaysBack: daysBack, Intent: intent})
	if errors.Is(err, pipeline.ErrInsufficientEvidence) {
		fmt.Fprintf(os.Stderr, "No report: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try widening the window (--days-back) or a broader topic phrasing.\n")
		os.Exit(2)
	}
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Harvested %d sources (%s regime)\n", bundle.SourceStats.Total, bundle.Regime)
		fmt.Fprintf(os.Stderr, "✓ Kept %d signals, demoted %d\n", len(bundle.Signals), len(bundle.Appendix))
		fmt.Fprintf(os.Stderr, "✓ Confidence: %s\n", bundle.Confidence.Display)
		fmt.Fprintln(os.Stderr)
	}

	return writeBundle(bundle, cfg, outJSON, outMD)
}

// buildConfig assembles the effective configuration: defaults, then config
// file values, then flags and API-key environment variables.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if searxURL != "" {
		cfg.Search.BaseURL = searxURL
	}
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if healthPath != "" {
		cfg.Harvest.HealthPath = healthPath
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter

	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if err := resolveLLMKey(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveLLMKey pulls provider credentials from the environment.
func resolveLLMKey(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "":
		// Generation disabled; nothing to resolve.
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

// writeBundle renders a bundle to the requested JSON and Markdown paths.
func writeBundle(bundle *model.Bundle, cfg *model.Config, jsonPath, mdPath string) error {
	if jsonPath != "" {
		data, err := pipeline.MarshalBundle(bundle)
		if err != nil {
			return err
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		md := pipeline.RenderMarkdown(bundle, cfg.Output.IncludeFooter)
		if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", mdPath)
		}
	}
	return nil
}
