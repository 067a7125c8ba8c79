package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/evigate/internal/harvest"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/spf13/cobra"
)

var axesHealthPath string

// axesCmd represents the axes command
var axesCmd = &cobra.Command{
	Use:   "axes <topic>",
	Short: "Show the ranked query axes for a topic",
	Long: `Axes shows how query templates would be ordered for a topic:
the matched axis set, each template's historical hit rate, and which
templates have been demoted to the fallback tier.

Example:
  evigate axes "enterprise ai adoption"
  evigate axes "chip supply" --health ~/.evigate/axes.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAxes,
}

func init() {
	rootCmd.AddCommand(axesCmd)
	axesCmd.Flags().StringVar(&axesHealthPath, "health", "", "axis health file (default: no history)")
}

func runAxes(cmd *cobra.Command, args []string) error {
	topic := args[0]
	cfg := model.DefaultConfig()

	health := map[string]harvest.AxisHealth{}
	if axesHealthPath != "" {
		repo := harvest.NewFileHealthRepo(axesHealthPath)
		loaded, err := repo.Load()
		if err != nil {
			return fmt.Errorf("load axis health: %w", err)
		}
		health = loaded
	}

	templates := harvest.TemplatesFor(topic, cfg.Harvest)
	primary, fallback := harvest.RankAxes(templates, health, cfg.Harvest)

	fmt.Fprintf(os.Stdout, "Topic: %s\n\nPrimary tier:\n", topic)
	printAxes(primary, health, cfg.Harvest.HealthDefaultRatio)
	if len(fallback) > 0 {
		fmt.Fprintf(os.Stdout, "\nFallback tier (low historical hit rate):\n")
		printAxes(fallback, health, cfg.Harvest.HealthDefaultRatio)
	}
	return nil
}

func printAxes(templates []string, health map[string]harvest.AxisHealth, defaultRatio float64) {
	for i, template := range templates {
		h := health[template]
		if h.Runs == 0 {
			fmt.Fprintf(os.Stdout, "  %d. %-40s (no history, assumed %.2f)\n", i+1, template, defaultRatio)
			continue
		}
		fmt.Fprintf(os.Stdout, "  %d. %-40s %d/%d hits (%.2f)\n", i+1, template, h.Hits, h.Runs, h.Ratio(defaultRatio))
	}
}
