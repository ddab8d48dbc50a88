package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hangpark123/zoomnote/internal/serial"
)

func serialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serial-offset",
		Short: "Inspect or change the per-year serial numbering offset",
	}
	cmd.AddCommand(serialShowCmd())
	cmd.AddCommand(serialSetCmd())
	return cmd
}

func serialShowCmd() *cobra.Command {
	var year, limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the offset and the latest serials of a year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, db, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			offset, err := st.SerialOffset(ctx, year)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s = %d\n", serial.OffsetKey(year), offset)

			recent, err := st.RecentSerials(ctx, year, limit)
			if err != nil {
				return err
			}
			if len(recent) == 0 {
				fmt.Fprintf(out, "no notes for %d\n", year)
				return nil
			}
			for _, r := range recent {
				fmt.Fprintf(out, "  #%d  %s  %s\n", r.NoteID, r.SerialNo, r.WriterID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "report year")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent serials to list")
	return cmd
}

func serialSetCmd() *cobra.Command {
	var year, value int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the offset added to newly allocated sequences of a year",
		Long: `Set the numbering offset of a report year.

The offset is added to the allocated sequence when a serial is formatted, so
notes created after the change continue from the new base. Existing serials
are left as they are.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if value < 0 {
				return fmt.Errorf("offset must not be negative, got %d", value)
			}
			ctx := cmd.Context()
			_, db, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			key := serial.OffsetKey(year)
			if err := st.SetConfig(ctx, key, fmt.Sprint(value)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", key, value)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "report year")
	cmd.Flags().IntVar(&value, "value", 0, "new offset")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
