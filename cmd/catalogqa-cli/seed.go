package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogqa/internal/app"
	"github.com/kailas-cloud/catalogqa/internal/config"
	"github.com/kailas-cloud/catalogqa/internal/repository/catalog"
	"github.com/kailas-cloud/catalogqa/internal/repository/vectorindex"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalog's precomputed vectors into the Redis index",
		Long: `seed copies the vectors stored in the catalog file into the Redis vector
index, creating the index when it does not exist. Vectors are never computed
here; they come from the offline ingestion job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg, err := root.loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.Index.Backend != config.BackendRedis {
				return fmt.Errorf("seed needs index.backend %q, got %q", config.BackendRedis, cfg.Index.Backend)
			}
			logger, err := root.newLogger(cfg)
			if err != nil {
				return err
			}

			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			vectors := cat.Vectors()
			if vectors == nil {
				return fmt.Errorf("catalog %s carries no vectors", cfg.Catalog.Path)
			}

			entries := make([]vectorindex.Entry, cat.Len())
			for i := range entries {
				doc, _ := cat.Document(i)
				entries[i] = vectorindex.Entry{Position: i, DocID: doc.ID, Vector: vectors[i]}
			}

			a := &app.App{Config: cfg, Logger: logger}
			defer a.Close()
			repo, err := a.OpenRedisIndex(ctx)
			if err != nil {
				return err
			}
			if err := repo.Seed(ctx, entries); err != nil {
				return err
			}

			printOK(cmd.OutOrStdout(), "seeded %d vectors into %s", len(entries), cfg.Index.Name)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	return cmd
}
