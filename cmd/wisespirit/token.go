package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/auth"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token signed with ADMIN_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return err
			}

			if len(roles) == 0 {
				roles = []string{cfg.Auth.AdminRole}
			}

			token, err := issueToken(cfg.Auth.AdminJWTSecret, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to grant (default: the configured admin role)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func issueToken(secret, subject string, roles []string, ttl time.Duration) (string, error) {
	validator, err := auth.NewHS256Validator(secret)
	if err != nil {
		return "", err
	}
	return validator.Issue(subject, roles, ttl)
}
