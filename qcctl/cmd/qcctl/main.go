// qcctl evaluates window measurements and renders inspection reports offline.
//
// Usage:
//
//	qcctl eval --code W-1 --nominal-width 1200 --nominal-height 1500 --limit 3 \
//	    --width 1198,1201,1199 --height 1499,1502,1500
//	qcctl report project.yaml [--format text|json|csv] [-o out.csv]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "qcctl",
	Short: "Window installation quality control",
	Long: "qcctl derives tolerances for installed windows, classifies them as\n" +
		"pass, warning or fail, and renders project reports from YAML files.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
