// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-fetch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetch/internal/logging"
	"github.com/pdiddy/paper-fetch/internal/secrets"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is the merged configuration for the current invocation.
var cfg types.Config

// logger is built from cfg.Logging before any subcommand runs.
var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "paper-fetch",
	Short: "Search open catalogs and download papers and books",
	Long: `paper-fetch searches PubMed Central, arXiv, Semantic Scholar, Google Scholar,
Google Books and Wikibooks, in that order, and downloads the freely available
files it finds until the requested number have been saved.

At most three downloads run at once. Failed downloads are retried, and every
file gets a unique, filesystem-safe name in the output directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir, os.Stderr)
		if err != nil {
			return err
		}
		if applied := secrets.Apply(&c.Sources, s); len(applied) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", applied)
		}

		cfg = c
		logger = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-fetch.yaml or ~/.config/paper-fetch/paper-fetch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json (default console)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-fetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-fetch"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultConfig())
	viper.SetEnvPrefix("PAPER_FETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables such as
// PAPER_FETCH_SOURCES_NCBI_API_KEY are seen by Unmarshal.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("sources.enabled", d.Sources.Enabled)
	v.SetDefault("sources.rate_per_second", d.Sources.RatePerSecond)
	v.SetDefault("sources.ncbi_api_key", d.Sources.NCBIAPIKey)
	v.SetDefault("sources.semantic_scholar_api_key", d.Sources.SemanticScholarAPIKey)
	v.SetDefault("sources.google_books_api_key", d.Sources.GoogleBooksAPIKey)
	v.SetDefault("sources.mailto", d.Sources.Mailto)
	v.SetDefault("download.output_dir", d.Download.OutputDir)
	v.SetDefault("download.max_concurrent", d.Download.MaxConcurrent)
	v.SetDefault("download.max_attempts", d.Download.MaxAttempts)
	v.SetDefault("download.backoff_base", d.Download.BackoffBase)
	v.SetDefault("download.max_bytes", d.Download.MaxBytes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}

// loadConfig unmarshals viper's merged view of file, environment and flags
// over the defaults.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	c := types.DefaultConfig()
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	c.ApplyDefaults()
	return c, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
