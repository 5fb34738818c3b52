package main

import (
	"github.com/spf13/cobra"
)

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <blob|->",
		Short: "Verify and print a page-state blob",
		Long: `Decode checks the blob signature and version with the configured
codec settings and prints the snapshot tree as JSON. Pass - to read the blob
from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			snap, err := a.codec(cmd.ErrOrStderr()).Decode(blob)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), viewOf(snap))
		},
	}
}
