package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an access token for an active user",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		user, err := a.services.Parties.GetActiveUser(ctx, args[0])
		if err != nil {
			return err
		}
		token, expiresAt, err := auth.NewTokenManager(&a.cfg.Auth).Issue(user.Username, user.Name, user.Role)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		fmt.Printf("expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
