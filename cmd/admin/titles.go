package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docforest/internal/repository"
)

func newCanonicalizeTitlesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize-titles",
		Short: "Turn placeholder titles such as \"Untitled\" into empty titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDatabase(); err != nil {
				return err
			}

			stores, err := repository.Open(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := stores.Documents.CanonicalizeTitles(cmd.Context())
			if err != nil {
				return fmt.Errorf("canonicalize titles: %w", err)
			}

			a.logger.Info("titles canonicalized", "updated", n)
			fmt.Fprintf(cmd.OutOrStdout(), "%d titles updated\n", n)
			return nil
		},
	}
}
