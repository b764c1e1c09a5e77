package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOut        string
	exportS3         bool
	exportIndustries []string
	exportYears      []int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSONL snapshot of the derived datasets",
	Long: `Write a JSONL snapshot of the derived datasets for one filter state.

The snapshot goes to stdout unless --out names a file. With --s3 it is also
uploaded to the bucket configured by UNICORNS_SNAPSHOT_S3_*.`,
	GroupID:           "data",
	PersistentPreRunE: localPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, tuning, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := loadEntities(ctx, cfg, logger)
		if err != nil {
			return err
		}
		f, err := buildFilter(e, exportIndustries, exportYears, "")
		if err != nil {
			return err
		}

		src := func(context.Context) (*derive.Datasets, error) {
			return derive.Compute(e, f, tuning.DeriveOptions()), nil
		}
		id, data, err := export.Snapshot(ctx, src)
		if err != nil {
			return err
		}

		var dests []export.Destination
		if exportOut != "" {
			dests = append(dests, &export.FileDestination{Path: exportOut})
		}
		if exportS3 {
			if cfg.SnapshotS3Bucket == "" {
				return fmt.Errorf("--s3 requires UNICORNS_SNAPSHOT_S3_BUCKET")
			}
			d, err := export.NewS3Destination(ctx, cfg.SnapshotS3Bucket, cfg.SnapshotS3Key, cfg.SnapshotS3Region, cfg.SnapshotS3Endpoint)
			if err != nil {
				return err
			}
			dests = append(dests, d)
		}
		if len(dests) == 0 {
			_, err := os.Stdout.Write(data)
			return err
		}

		for _, d := range dests {
			if err := d.Write(ctx, data); err != nil {
				return err
			}
			logger.Info("snapshot written", "id", id, "destination", d, "bytes", len(data))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write the snapshot to this file")
	exportCmd.Flags().BoolVar(&exportS3, "s3", false, "upload the snapshot to the configured S3 bucket")
	exportCmd.Flags().StringArrayVar(&exportIndustries, "industry", nil, "restrict to this industry, repeatable (default all)")
	exportCmd.Flags().IntSliceVar(&exportYears, "years", nil, "join-year range as start,end")
}
