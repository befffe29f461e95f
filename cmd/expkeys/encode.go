package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maurice/expkeys"
)

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode",
		Short: "Write a keys file from a JSON object",
		Long:  "Read a flat JSON object from standard input and write it as ExpKeys statements. Strings become text, unsigned decimal numbers stay numbers and arrays become cell lists.",
		Args:  usageError(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var keys expkeys.Keys
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&keys); err != nil {
				return fmt.Errorf("error parsing JSON: %w", err)
			}
			return keys.Encode(cmd.OutOrStdout())
		},
	}
}
