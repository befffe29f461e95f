package main

import (
	"github.com/spf13/cobra"

	"github.com/maurice/expkeys"
	"github.com/maurice/expkeys/internal/ctxlog"
	"github.com/maurice/expkeys/session"
)

// loadVocabulary returns the vocabulary at path, or the defaults when path
// is empty.
func loadVocabulary(path string) (*session.Vocabulary, error) {
	if path == "" {
		return session.DefaultVocabulary(), nil
	}
	return session.LoadVocabulary(path)
}

func newMetadataCmd() *cobra.Command {
	var format, vocabPath string
	cmd := &cobra.Command{
		Use:   "metadata DIR",
		Short: "Derive dataset metadata for one session directory",
		Long:  "Parse the keys file of the session directory DIR (named <subject>-<YYYY>-<MM>-<DD>) and print the derived session and subject metadata.",
		Args:  usageError(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			logger := ctxlog.FromContext(cmd.Context())

			vocab, err := loadVocabulary(vocabPath)
			if err != nil {
				return err
			}
			s, err := session.Open(args[0])
			if err != nil {
				return err
			}
			logger.Debug("Reading session.", "session", s.Name.String(), "path", s.KeysPath())
			keys, err := expkeys.ParseFile(s.KeysPath())
			if err != nil {
				return err
			}
			md, err := session.Enrich(keys, s.Name, vocab)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), md, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json or yaml.")
	cmd.Flags().StringVar(&vocabPath, "vocabulary", "", "TOML vocabulary merged over the built-in one.")
	return cmd
}
