// Command ilc2c lowers an IL AST JSON file into a typed C AST and writes
// a smoke-testable C rendering of it to disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string

	flagStandard            string
	flagAddHeaders          bool
	flagAddComments         bool
	flagUseStrictTypes      bool
	flagUseConstCorrectness bool
	flagStrictLengths       bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ilc2c:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ilc2c",
	Short: "Lower IL AST JSON into a typed C AST",
	Long: `ilc2c lowers a language-independent intermediate AST into a typed C
AST, following the struct-promotion, array-length-companion and idiom
lowering rules described by the transformer's own documentation.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a TOML config file (defaults layered under env and flags)")
	rootCmd.PersistentFlags().StringVar(&flagStandard, "standard", "", "target C standard: c89|c99|c11|c17|c23")
	rootCmd.PersistentFlags().BoolVar(&flagAddHeaders, "add-headers", false, "emit #include directives")
	rootCmd.PersistentFlags().BoolVar(&flagAddComments, "add-comments", false, "emit a generated-by header comment")
	rootCmd.PersistentFlags().BoolVar(&flagUseStrictTypes, "use-strict-types", false, "reserved: accepted and passed to the lowering, which does not use it")
	rootCmd.PersistentFlags().BoolVar(&flagUseConstCorrectness, "use-const-correctness", false, "reserved: accepted and passed to the lowering, which does not use it")
	rootCmd.PersistentFlags().BoolVar(&flagStrictLengths, "strict-lengths", false, "fail to compile instead of defaulting unresolved lengths to 0U")

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
}
