package main

import (
	"fmt"

	"github.com/aretw0/reel/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the deck for consistency",
	Long: `Loads the deck and reports dangling connection targets, unknown folders, duplicate ids,
non-contiguous orders, unknown element kinds and slides no viewer can reach.`,
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

		report := validator.Validate(deck)
		out := cmd.OutOrStdout()
		fmt.Fprint(out, report.String())
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(out, "Deck is valid! ✅ (%d slides)\n", len(deck.Slides))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
