package main

import (
	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine in server mode: an HTTP API for deck editing and viewer sessions,
Prometheus metrics and, when a broker is configured, an MQTT bridge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			env.cfg.HTTP.Addr = addr
		}
		readOnly, _ := cmd.Flags().GetBool("read-only")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		tui.PrintBanner(cmd.OutOrStdout())
		err = cli.Serve(ctx, cli.ServeOptions{
			Config:   env.cfg,
			Logger:   env.logger,
			Out:      cmd.OutOrStdout(),
			ReadOnly: readOnly,
		})
		if sig := ctx.Signal(); sig != nil {
			env.logger.Info("stopped by signal", "signal", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("read-only", false, "Reject deck edits")
}
