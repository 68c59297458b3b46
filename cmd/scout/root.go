package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Multi-pass opportunity discovery for business entities",
	Long: "Scout investigates a business entity over multiple evidence-gathering\n" +
		"passes, accumulating confidence in opportunity hypotheses until the\n" +
		"findings are actionable or the leads are exhausted.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
