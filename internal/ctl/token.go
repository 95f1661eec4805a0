package ctl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/server/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an operator",
		Long: "Mint an HS256 access token signed with the server secret. The " +
			"token subject is the operator UUID that owns every record created with it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.New("--user is required")
			}
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user must be a UUID: %q", userID)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.AccessTokenValidityDuration
			}

			token, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Operator UUID (token subject)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token validity (defaults to the configured access token TTL)")

	return cmd
}
