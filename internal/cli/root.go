// Package cli implements sessionctl, the maintenance tool for the session and
// credential stores.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-session-auth/internal/app"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/logger"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the sessionctl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Maintain session and credential stores",
		Long: `sessionctl inspects and maintains the stores used by the session auth CGI.

Backends and paths come from the same environment variables (and .env files)
the CGI program reads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewPurgeCmd())
	rootCmd.AddCommand(NewUserCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// withStores opens the configured stores for the duration of fn.
func withStores(ctx context.Context, stderr io.Writer, fn func(*app.Stores) error) error {
	c := config.New()
	l := logger.Init(c.GetLogLevel(), "console", stderr)

	stores, err := app.OpenStores(ctx, c, l)
	if err != nil {
		return err
	}
	defer stores.Close()
	return fn(stores)
}
