package main

import (
	"agora/internal/middleware"
	"agora/internal/utils"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newTokenCmd prints a bearer token for local testing against the API.
func newTokenCmd(configFile *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer JWT for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, ok := utils.ParseUint(args[0])
			if !ok {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			tok, err := middleware.SignToken(userID, []byte(cfg.Auth.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
