package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/vaultscribe/internal/hostid"
	"github.com/user/vaultscribe/internal/types"
)

func init() {
	logCmd.Flags().StringVar(&logOldPath, "old-path", "", "previous path for renamed events")
	logCmd.Flags().StringVar(&logSource, "source", "cli", "origin recorded in the event metadata")
	rootCmd.AddCommand(logCmd)
}

var (
	logOldPath string
	logSource  string
)

var logCmd = &cobra.Command{
	Use:   "log <eventType> [filePath]",
	Short: "Submit an event to the running daemon",
	Long:  "Submits an externally observed event, such as a note being opened, to the daemon's buffer. The event type must be one of: created, modified, renamed, deleted, opened, plugin-lifecycle, application-quit.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := types.EventKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown event type %q", args[0])
		}
		path := ""
		if len(args) == 2 {
			path = args[1]
		}

		cfg := loadConfig()
		rec := types.NewRecord(kind, path, cfg.VaultName, hostid.Resolve(cfg.VaultPath))
		rec.Metadata.Source = logSource
		if logOldPath != "" {
			rec.Metadata.OldPath = logOldPath
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client := controlClient()
		if !client.Healthy(ctx) {
			return fmt.Errorf("no running daemon on the control address")
		}
		resp, err := client.Ingest(ctx, rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Logged %s event %s.\n", kind, resp.ID)
		if resp.Warning != "" {
			fmt.Fprintf(os.Stdout, "Warning: %s\n", resp.Warning)
		}
		return nil
	},
}
