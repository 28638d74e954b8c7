// Command catctl categorizes and inspects transaction CSV files from the
// command line, using the same pipeline as the HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/boddenberg/categorizer-go/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "catctl",
		Short:         "Categorize bank transactions from CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(v.GetString("env-file"))
		},
	}

	defaults := config.Load()
	flags := root.PersistentFlags()
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("memory-db-path", defaults.MemoryDBPath, "SQLite file holding the learned memory")
	flags.String("openai-api-key", "", "OpenAI API key; empty disables the LLM classifier")
	flags.String("openai-model", defaults.OpenAIModel, "OpenAI model")
	flags.String("openai-base-url", defaults.OpenAIBaseURL, "OpenAI-compatible API base URL")
	flags.String("min-ai-confidence", defaults.MinAIConfidence, "rule strength below which the LLM is consulted")
	_ = v.BindPFlags(flags)

	// OPENAI_API_KEY, MEMORY_DB_PATH, ... are read when the flag is not given.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(categorizeCmd(v))
	root.AddCommand(anomaliesCmd(v))
	return root
}

// loadConfig overlays flags and environment on the service defaults.
func loadConfig(v *viper.Viper) *config.Config {
	cfg := config.Load()
	cfg.LogLevel = v.GetString("log-level")
	cfg.MemoryDBPath = v.GetString("memory-db-path")
	cfg.OpenAIAPIKey = v.GetString("openai-api-key")
	cfg.OpenAIModel = v.GetString("openai-model")
	cfg.OpenAIBaseURL = v.GetString("openai-base-url")
	cfg.MinAIConfidence = v.GetString("min-ai-confidence")
	return cfg
}
