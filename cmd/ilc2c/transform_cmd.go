package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/lower"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/render"
)

var (
	transformOut string
)

var transformCmd = &cobra.Command{
	Use:   "transform <input.json>",
	Short: "Lower one IL AST JSON file into a C rendering",
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
		file, diags, err := t.Transform(program)
		if err != nil {
			return err
		}
		printDiagnostics(cmd, diags)

		out := render.File(file)
		if transformOut == "" || transformOut == "-" {
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		}
		return os.WriteFile(transformOut, []byte(out), 0o644)
	},
}

func init() {
	transformCmd.Flags().StringVarP(&transformOut, "out", "o", "", "output .c file path (default: stdout)")
}

func printDiagnostics(cmd *cobra.Command, diags []lower.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	colorize := isTerminal(os.Stderr.Fd())
	for _, d := range diags {
		if colorize {
			fmt.Fprintf(os.Stderr, "\x1b[33m%s\x1b[0m\n", d.String())
			continue
		}
		fmt.Fprintln(os.Stderr, d.String())
	}
}
