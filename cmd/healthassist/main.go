package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/logger"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "healthassist",
		Short: "Healthcare insurance assistant client",
		Long: `HealthAssist keeps your conversations with the healthcare insurance assistant,
as a guest in memory or, once signed in, stored by the backend.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger.SetLevel(loaded.Log.Level)
			cfg = loaded
			return nil
		},
	}

	loadConfig := func() *config.Config { return cfg }
	rootCmd.AddCommand(
		newServeCommand(loadConfig),
		newChatCommand(loadConfig),
		newVersionCommand(),
	)
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "healthassist", version)
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
