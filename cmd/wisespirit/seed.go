package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories/postgres"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/seed"
)

func newSeedCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all policies with the airline catalog",
		Long: `Deletes every decision log and airline policy, then loads the
airline catalog. The bundled catalog is used unless --catalog is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			catalog, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			cfg, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()

			factory, err := postgres.NewRepositoryFactory(cfg, logger)
			if err != nil {
				return err
			}
			defer factory.Close()

			if err := factory.GetDB().Migrate(ctx); err != nil {
				return err
			}

			repos := factory.NewRepositories()
			txMgr := factory.GetTransactionManager().WithIsolation(sql.LevelSerializable)
			seeder := seed.NewSeeder(txMgr, repos.Policies, repos.DecisionLogs, catalog, logger)

			n, err := seeder.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed data inserted: %d airlines\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to a catalog YAML file")
	return cmd
}

func loadCatalog(path string) (*seed.Catalog, error) {
	if path == "" {
		return seed.DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return seed.ParseCatalog(data)
}
