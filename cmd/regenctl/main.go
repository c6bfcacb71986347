package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "regenctl",
	Short:         "blockregen - offline tooling for block regeneration configs",
	Long:          `regenctl validates block regeneration files, explains pattern matches, dry-runs gather cycles and exports the event journal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(hashTokenCmd)
	rootCmd.AddCommand(journalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
