package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/aura/backend/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var opts struct {
		User string
		TTL  time.Duration
	}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed session token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, opts.User, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "User id to embed in the token")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
