// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the retraction-meta CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/retraction-meta/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the retraction-meta CLI.
var rootCmd = &cobra.Command{
	Use:   "retraction-meta",
	Short: "Citation metadata for retracted scholarly articles",
	Long: `retraction-meta enriches a Retraction Watch dataset with citation metadata
from the OpenCitations index. For each retracted article it fetches the list
of citing works and counts how many appeared before versus after the
retraction date, writing the result as JSON lines.

Run the full pipeline with "run", or fetch the citation list for individual
DOIs with "fetch".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./retraction-meta.yaml or ~/.config/retraction-meta/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("retraction-meta")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "retraction-meta"))
		}
	}

	viper.SetEnvPrefix("RETRACTION_META")
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
