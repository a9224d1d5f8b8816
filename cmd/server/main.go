// Package main 是应用程序的入口点。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "regenai"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "ReGenAI farm advisory API server",
		Long: "ReGenAI collects farmer land profiles and answers farming questions with an LLM,\n" +
			"enriched with weather, market trends and optional web search.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "path to the YAML config file")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		checkConfigCmd(&configPath),
	)
	return cmd
}
