package main

import (
	"github.com/spf13/cobra"
)

func newVocabularyCmd() *cobra.Command {
	var vocabPath string
	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Print the effective vocabulary as TOML",
		Args:  usageError(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			vocab, err := loadVocabulary(vocabPath)
			if err != nil {
				return err
			}
			return vocab.Encode(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&vocabPath, "vocabulary", "", "TOML vocabulary merged over the built-in one.")
	return cmd
}
