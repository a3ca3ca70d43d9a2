package main

import (
	"fmt"

	"github.com/aretw0/reel/internal/presentation/graph"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the deck graph visualization",
	Long: `Loads the deck and outputs a Mermaid diagram (graph TD) of the linear sequence
and every connection rule. --visited and --current highlight a viewer's path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		deck, err := env.loadDeck(cmd.Context())
		if err != nil {
			return err
		}

		visited, _ := cmd.Flags().GetStringSlice("visited")
		current, _ := cmd.Flags().GetString("current")
		var overlay *graph.GraphOverlay
		if len(visited) > 0 || current != "" {
			overlay = &graph.GraphOverlay{VisitedSlides: visited, CurrentSlide: current}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(domain.NewGraph(deck), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSlice("visited", nil, "Slides to highlight as visited")
	graphCmd.Flags().String("current", "", "Slide to highlight as current")
}
