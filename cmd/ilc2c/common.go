package main

import (
	"github.com/spf13/cobra"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/config"
)

// effectiveConfig layers persistent cobra flags over the TOML+env
// config, the same defaults < file < env < flags order cfgx documents
// for its own generated configs.
func effectiveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("standard") {
		cfg.Standard = flagStandard
	}
	if flags.Changed("add-headers") {
		cfg.AddHeaders = flagAddHeaders
	}
	if flags.Changed("add-comments") {
		cfg.AddComments = flagAddComments
	}
	if flags.Changed("use-strict-types") {
		cfg.UseStrictTypes = flagUseStrictTypes
	}
	if flags.Changed("use-const-correctness") {
		cfg.UseConstCorrectness = flagUseConstCorrectness
	}
	if flags.Changed("strict-lengths") {
		cfg.StrictLengths = flagStrictLengths
	}
	return cfg, nil
}
