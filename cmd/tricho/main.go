// Copyright Caddis Lab, 2026. All rights reserved.

// Package main is the entry point for the tricho CLI, the bibliometric
// pipeline behind the Trichoptera literature review: fetch, combine,
// enrich, overlap, classify, and report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caddislab/trichoptera-biblio/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and .env at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the loaded secret
// for key, otherwise "".
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the tricho CLI.
var rootCmd = &cobra.Command{
	Use:   "tricho",
	Short: "Bibliometric pipeline for the Trichoptera literature review",
	Long: `tricho assembles a deduplicated, enriched, and classified corpus of
Trichoptera (caddisfly) literature from multiple bibliographic providers.

Each pipeline stage is a subcommand: fetch pulls records from the Scopus
API, combine merges and deduplicates provider exports, enrich fills
missing abstracts and author lists from OpenAlex, Semantic Scholar,
CrossRef, and PubMed, overlap compares provider coverage, classify codes
records with an LLM, and report runs the RQ1-RQ4 analyses.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if err := secrets.LoadDotenv(".env", s); err != nil {
			return err
		}
		loadedSecrets = s
		if len(loadedSecrets) > 0 {
			keys := make([]string, 0, len(loadedSecrets))
			for k := range loadedSecrets {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./tricho.yaml or ~/.config/tricho/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("tricho")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "tricho"))
		}
	}

	viper.SetEnvPrefix("TRICHO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
