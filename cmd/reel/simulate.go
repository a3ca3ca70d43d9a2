package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <script>",
	Short: "Replay a scripted viewer session against the deck",
	Long: `Feeds the motion, key, action and element inputs of a YAML script to a playback
controller on a virtual clock and prints what the viewer would have seen.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script, err := cli.ParseScript(raw)
		if err != nil {
			return err
		}

		deck, err := env.loadDeck(cmd.Context())
		if err != nil {
			return err
		}

		results, err := cli.Simulate(domain.NewGraph(deck), script, env.cfg.Playback(), env.logger)
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(results); encErr != nil {
				return encErr
			}
		} else {
			cli.WriteTrace(cmd.OutOrStdout(), results)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Bool("json", false, "Print the trace as JSON")
}
