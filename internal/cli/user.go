package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/app"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/spf13/cobra"
)

// NewUserCmd creates the user command group
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
	}
	cmd.AddCommand(newUserAddCmd(), newUserListCmd(), newUserCheckCmd())
	return cmd
}

// readPassword takes the first line of stdin so passwords stay out of shell history.
func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newUserAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user; the password is read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), cmd.ErrOrStderr(), func(stores *app.Stores) error {
				userID, err := stores.Credentials.Register(cmd.Context(), args[0], password)
				if err != nil {
					return fmt.Errorf("add %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", args[0], userID)
				return nil
			})
		},
	}
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List registered users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), cmd.ErrOrStderr(), func(stores *app.Stores) error {
				list, err := stores.Credentials.List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "USERNAME\tUSER ID\tCREATED")
				for _, c := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.Username, c.UserID, c.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func newUserCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <username>",
		Short: "Verify a password read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), cmd.ErrOrStderr(), func(stores *app.Stores) error {
				_, err := stores.Credentials.Authenticate(cmd.Context(), args[0], password)
				if errors.Is(err, apperrors.ErrInvalidCredentials) {
					fmt.Fprintln(cmd.OutOrStdout(), "invalid")
					return err
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}
