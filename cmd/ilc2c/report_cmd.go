package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/lower"
)

var reportHTML bool

var reportCmd = &cobra.Command{
	Use:   "report <input.json>",
	Short: "Lower one IL AST JSON file and print its diagnostics ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		program, err := ilast.Decode(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", args[0], err)
		}

		t := lower.NewTransformer(cfg.ToOptions())
		_, diags, err := t.Transform(program)
		if err != nil {
			return err
		}

		if reportHTML {
			html, err := lower.RenderReportHTML(diags)
			if err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), html)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), lower.RenderReport(diags))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "render the report as HTML via goldmark instead of Markdown")
}
