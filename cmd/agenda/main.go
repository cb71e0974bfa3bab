package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agenda",
		Short:        "Conversational calendar assistant for Telegram",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "Path to config file")
	root.PersistentFlags().String("env-file", "", "Path to .env file (optional)")

	root.AddCommand(newServeCmd(), newAuthorizeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agenda v%s\n", version)
		},
	}
}

// loadEnv loads the given .env file, or the default locations when none is
// given. Missing default files are not an error.
func loadEnv(envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("could not load env file", "path", envFile, "error", err)
		}
		return
	}
	_ = godotenv.Load(".env")
	_ = godotenv.Load("/etc/agenda/agenda.env")
}
