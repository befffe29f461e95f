package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maurice/expkeys/internal/ctxlog"
	"github.com/maurice/expkeys/session"
)

func newCheckCmd() *cobra.Command {
	var (
		workers   int
		enrich    bool
		vocabPath string
	)
	cmd := &cobra.Command{
		Use:   "check ROOT",
		Short: "Parse every session under a data directory",
		Long:  "Find every session laid out as ROOT/<subject>/preprocessed/<subject>-<date>/ and parse its keys file. With --enrich, also derive its metadata. Exits with status 1 if any session fails.",
		Args:  usageError(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return &ExitError{Code: 2, Message: "invalid workers: must be at least 1"}
			}
			logger := ctxlog.FromContext(cmd.Context())

			var vocab *session.Vocabulary
			if enrich {
				var err error
				if vocab, err = loadVocabulary(vocabPath); err != nil {
					return err
				}
			}

			sessions, err := session.Discover(args[0])
			if err != nil {
				return err
			}
			logger.Info("Discovered sessions.", "root", args[0], "count", len(sessions))

			results, err := session.ParseAll(cmd.Context(), sessions, workers)
			if err != nil && results == nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				rerr := r.Err
				if rerr == nil && enrich {
					_, rerr = session.Enrich(r.Keys, r.Session.Name, vocab)
				}
				if rerr != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Session.Name, rerr)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%d keys)\n", r.Session.Name, r.Keys.Len())
			}
			if failed > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d sessions failed", failed, len(results))}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", session.DefaultWorkers, "Number of keys files parsed concurrently.")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Also derive metadata and report unknown vocabulary.")
	cmd.Flags().StringVar(&vocabPath, "vocabulary", "", "TOML vocabulary merged over the built-in one.")
	return cmd
}
