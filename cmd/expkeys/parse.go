package main

import (
	"github.com/spf13/cobra"

	"github.com/maurice/expkeys"
	"github.com/maurice/expkeys/internal/ctxlog"
)

func newParseCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "parse [FILE|-]",
		Short: "Parse a keys file and print its mapping",
		Long:  "Parse a keys file and print the decoded mapping in source order. With no FILE, or when FILE is -, read standard input.",
		Args:  usageError(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			logger := ctxlog.FromContext(cmd.Context())

			var (
				keys *expkeys.Keys
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				logger.Debug("Parsing standard input.")
				keys, err = expkeys.ParseReader("<stdin>", cmd.InOrStdin())
			} else {
				logger.Debug("Parsing keys file.", "path", args[0])
				keys, err = expkeys.ParseFile(args[0])
			}
			if err != nil {
				return err
			}
			logger.Debug("Parsed keys.", "count", keys.Len())
			return writeKeys(cmd.OutOrStdout(), keys, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json or yaml.")
	return cmd
}
