package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/udisondev/blockregen/internal/bridge"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Print the bcrypt hash to put in bridge_token_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bridge.HashToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
