package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"protospace/internal/config"
	"protospace/internal/core"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Maintenance commands that work on the database directly",
	}
	admin.AddCommand(newAdminGCBlobsCmd(cfg, jsonOutput))
	return admin
}

func newAdminGCBlobsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		apply     bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "gc-blobs",
		Short: "Garbage-collect image blobs no prototype references",
		Long:  "Lists image blobs that no prototype points at. Pass --apply to delete them from the blob store and the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openLocalRuntime(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.service.GCBlobs(cmd.Context(), batchSize, apply)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(result)
			}
			return writePlain("%s\n", summarizeGC(result))
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete unreferenced blobs (default is a dry run)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "blobs deleted per pass when applying")
	return cmd
}

func summarizeGC(r core.BlobGCResult) string {
	if r.DryRun {
		return fmt.Sprintf("dry run: %d unreferenced blobs, %d bytes reclaimable", r.CandidateCount, r.ReclaimedBytes)
	}
	return fmt.Sprintf("applied: deleted %d of %d blobs (%d failed), reclaimed %d bytes",
		r.DeletedCount, r.CandidateCount, r.FailedCount, r.ReclaimedBytes)
}
