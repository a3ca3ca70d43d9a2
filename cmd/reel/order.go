package main

import (
	"fmt"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:   "order [slide-id...]",
	Short: "Show or rearrange the slide order",
	Long: `Without arguments, prints the deck as a table in its canonical order.
With slide ids, moves those slides to the front in the given order, renumbers
the deck and writes every changed order to the store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		render := tui.NewRenderer(out)

		if len(args) == 0 {
			deck, err := env.loadDeck(ctx)
			if err != nil {
				return err
			}
			return printDeck(cmd, render, domain.NewGraph(deck))
		}

		backend, err := cli.OpenStore(ctx, env.cfg.Store, cli.StoreOptions{Logger: env.logger})
		if err != nil {
			return err
		}
		defer backend.Close()

		engine, err := reel.New(ctx, backend.Store, reel.WithLogger(env.logger))
		if err != nil {
			return err
		}
		defer engine.Close(ctx)

		_, report, err := engine.Reorder(ctx, args)
		if err != nil {
			return err
		}
		for _, res := range report {
			fmt.Fprintf(out, "%-20s %s\n", res.SlideID, res.Outcome)
		}
		if err := report.Err(); err != nil {
			return err
		}
		return printDeck(cmd, render, engine.Graph())
	},
}

func printDeck(cmd *cobra.Command, render func(string) (string, error), g *domain.Graph) error {
	s, err := render(tui.DeckMarkdown(g, nil))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), s)
	return nil
}

func init() {
	rootCmd.AddCommand(orderCmd)
}
