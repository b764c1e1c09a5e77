package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/unicorns/internal/config"
	"github.com/alfredjeanlab/unicorns/internal/store"
	"github.com/alfredjeanlab/unicorns/internal/store/csvsource"
	"github.com/alfredjeanlab/unicorns/internal/store/postgres"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/spf13/cobra"
)

var migrateImportDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and optionally import CSV data",
	Long: `Apply the Postgres schema migrations for UNICORNS_DATABASE_URL.

With --import, the CSV and GeoJSON files in the given directory are loaded
and written to the database, replacing any previous import.`,
	GroupID:           "data",
	PersistentPreRunE: localPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("UNICORNS_DATABASE_URL is required")
		}

		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		fmt.Printf("%s Migrations applied\n", ui.StatusIcon(true))

		if migrateImportDir == "" {
			return nil
		}
		src := csvsource.New(migrateImportDir)
		src.Logger = logger
		e, err := store.Load(ctx, src, logger)
		if err != nil {
			return err
		}
		if err := pg.Import(ctx, e); err != nil {
			return err
		}
		fmt.Printf("%s Imported %d companies, %d investments, %d regions from %s\n",
			ui.StatusIcon(true), len(e.Companies()), len(e.Investments()), len(e.Regions()), migrateImportDir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateImportDir, "import", "", "directory of CSV files to import")
}
