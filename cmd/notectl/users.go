package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hangpark123/zoomnote/internal/directory"
	"github.com/hangpark123/zoomnote/internal/identity"
)

func syncUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-users",
		Short: "Import every directory user into the local user table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			dir := directory.New(directory.Config{
				ClientID:     cfg.DirectoryClientID,
				ClientSecret: cfg.ContextSecret,
				AccountID:    cfg.DirectoryAccount,
				APIBase:      cfg.DirectoryAPIBase,
				TokenURL:     cfg.DirectoryTokenURL,
				Timeout:      cfg.DirectoryTimeout,
			})
			resolver := identity.NewResolver(st, dir, identity.DevIdentity{}, cliLogger(cfg))
			res, err := resolver.SyncDirectory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d of %d users (%d failed)\n", res.Synced, res.Total, res.Failed)
			return nil
		},
	}
}
