package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kushtati/kushtati-immo-api/internal/app"
	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

var (
	userEmail string
	confirm   bool
)

// purgeUserCmd deletes an account and its dependents
var purgeUserCmd = &cobra.Command{
	Use:   "purge-user",
	Short: "Delete an account with everything that depends on it",
	Long: `Delete an account together with its properties, the contracts on them or signed
by it, and the payments on those contracts, in one transaction.

Examples:
  kushtati purge-user --email abdoul@gmail.com --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm {
			return errors.New("refusing to delete without --yes")
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		user, err := lookupUser(cmd, e)
		if err != nil {
			return err
		}
		svc := app.NewServices(e.cfg, e.storage, nil, e.log)
		self := domain.Principal{ID: user.ID, Email: user.Email, Role: user.Role}
		summary, err := svc.Users.DeleteAccount(ctx, self, user.ID)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), summary, func(w io.Writer) {
			fmt.Fprintf(w, "deleted %s: %d properties, %d contracts, %d payments\n",
				user.Email, summary.Properties, summary.Contracts, summary.Payments)
		})
	},
}

// tokenCmd issues a bearer token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an account",
	Long: `Sign a token for an existing account without its password, for support and
local testing. The token carries the configured issuer and lifetime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		user, err := lookupUser(cmd, e)
		if err != nil {
			return err
		}
		svc := app.NewServices(e.cfg, e.storage, nil, e.log)
		token, expiresAt, err := svc.Tokens.GenerateToken(user)
		if err != nil {
			return err
		}
		out := struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}{token, expiresAt}
		return printResult(cmd.OutOrStdout(), out, func(w io.Writer) {
			fmt.Fprintln(w, token)
		})
	},
}

func lookupUser(cmd *cobra.Command, e *env) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return nil, errors.New("--email is required")
	}
	user, err := e.storage.Users.GetByEmail(cmd.Context(), email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no account with email %s", email)
	}
	return user, err
}

func init() {
	purgeUserCmd.Flags().StringVar(&userEmail, "email", "", "Account email")
	purgeUserCmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the deletion")
	tokenCmd.Flags().StringVar(&userEmail, "email", "", "Account email")
}
