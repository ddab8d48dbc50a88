package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/config"
)

// contextCmd builds an encrypted context header for exercising the API
// without the host client.
func contextCmd() *cobra.Command {
	var uid, email, accountID, aad string
	cmd := &cobra.Command{
		Use:   "context-seal",
		Short: "Print an encrypted context token for the given identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.ContextSecret == "" {
				return fmt.Errorf("ZOOM_CLIENT_SECRET is not set")
			}
			claims := auth.Claims{"uid": uid}
			if email != "" {
				claims["email"] = email
			}
			if accountID != "" {
				claims["aid"] = accountID
			}
			iv := make([]byte, 12)
			if _, err := rand.Read(iv); err != nil {
				return err
			}
			token, err := auth.Seal(cfg.ContextSecret, iv, []byte(aad), claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "platform user id")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&accountID, "account", "", "account id claim")
	cmd.Flags().StringVar(&aad, "aad", "", "additional authenticated data")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
