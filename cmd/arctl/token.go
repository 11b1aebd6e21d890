package main

import (
	"fmt"
	"time"

	"github.com/erp/collections/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCmd(flags *globalFlags) *cobra.Command {
	var (
		userID   string
		username string
		role     string
		ttl      time.Duration
	)
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured JWT secret",
		Long: `Issue a bearer token for service accounts and local testing.
Interactive users get tokens from the identity service.`,
		Example: `  arctl token --username reminder-bot --role COLLECTOR --ttl 24h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
			}

			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			signed, expiresAt, err := auth.NewJWTService(cfg.JWT).Issue(auth.IssueInput{
				UserID:   id,
				Username: username,
				Role:     r,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	token.Flags().StringVar(&userID, "user-id", "", "Subject UUID (default: random)")
	token.Flags().StringVar(&username, "username", "", "Username recorded as the actor")
	token.Flags().StringVar(&role, "role", string(auth.RoleViewer), "VIEWER, COLLECTOR or ADMIN")
	token.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return token
}
