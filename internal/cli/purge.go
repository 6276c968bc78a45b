package cli

import (
	"fmt"

	"github.com/jrsteele09/go-session-auth/internal/app"
	"github.com/spf13/cobra"
)

// NewPurgeCmd creates the purge command
func NewPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), cmd.ErrOrStderr(), func(stores *app.Stores) error {
				removed, err := stores.Sessions.DeleteExpired(cmd.Context())
				if err != nil {
					return fmt.Errorf("purge: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s)\n", removed)
				return nil
			})
		},
	}
}
