package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the local citation cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openCache()
			if err != nil {
				return err
			}
			a.store = store

			if store.Purger == nil {
				fmt.Fprintf(a.out, "The %s cache evicts entries on its own; nothing to purge.\n", store.Backend)
				return nil
			}
			n, err := store.Purger.PurgeExpired(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			fmt.Fprintf(a.out, "Purged %d expired entries.\n", n)
			return nil
		},
	})
	return cmd
}
