package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maurice/expkeys/internal/ctxlog"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "expkeys",
		Short:         "Read experiment keys files",
		Long:          "expkeys reads MATLAB-style ExpKeys.key = value; session files and derives dataset metadata from them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageError(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logLevels[strings.ToLower(opts.logLevel)]
			if !ok {
				return &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
			}
			handlerOpts := &slog.HandlerOptions{Level: level}
			var handler slog.Handler
			switch strings.ToLower(opts.logFormat) {
			case "text":
				handler = slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts)
			case "json":
				handler = slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts)
			default:
				return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
			}
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), slog.New(handler)))
			return nil
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn or error.")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json.")

	cmd.AddCommand(
		newParseCmd(),
		newEncodeCmd(),
		newMetadataCmd(),
		newCheckCmd(),
		newVocabularyCmd(),
	)
	return cmd
}

// usageError wraps cobra's positional argument checks so that they exit
// with status 2.
func usageError(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		return nil
	}
}
