package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Reel is a navigation and gating engine for swipeable slide decks",
	Long: `Reel decides which slide a viewer lands on after a swipe, a key press or a tap,
holds them on slides whose interactive elements are still locked, and keeps
author edits to order and connections in sync with a shared store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFile, "Path to the reel configuration file")
	rootCmd.PersistentFlags().String("deck", "", "Deck file to use instead of the configured store")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// environment is what every command needs before doing its work.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *environment) Close() {
	_ = e.closer.Close()
}

// setup loads the configuration named by the persistent flags. A missing
// default file is fine; an explicit one must exist.
func setup(cmd *cobra.Command) (*environment, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	deck, _ := cmd.Flags().GetString("deck")

	cfg, err := config.Load(path, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if deck != "" {
		cfg.Store = config.StoreConfig{Kind: config.StoreFile, Path: deck}
	}

	logger, closer, err := cli.CreateLogger(cfg.Log, debug)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger, closer: closer}, nil
}

// loadDeck reads the deck once from the configured store.
func (e *environment) loadDeck(ctx context.Context) (*domain.Deck, error) {
	backend, err := cli.OpenStore(ctx, e.cfg.Store, cli.StoreOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	return backend.Store.LoadDeck(ctx)
}
