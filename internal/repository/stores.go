// Package repository selects the forest store implementation from config.
package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"docforest/internal/config"
	"docforest/internal/domain/repositories"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	"docforest/internal/repository/memory"
	"docforest/internal/repository/postgres"
	postgresDocsys "docforest/internal/repository/postgres/docsystem"
)

// Stores bundles the repositories one process uses.
type Stores struct {
	Documents docsysRepo.DocumentRepository
	Access    docsysRepo.AccessRepository
	Favorites docsysRepo.FavoriteRepository
	TxManager repositories.TransactionManager

	// Pool is nil for the in-memory store.
	Pool *pgxpool.Pool
}

// Ping checks the database, if there is one.
func (s *Stores) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Open connects to Postgres when DATABASE_URL is set and falls back to the
// in-memory store otherwise.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using the in-memory forest store")
		s := memory.NewStore(codec, logger)
		return &Stores{
			Documents: memory.NewDocumentRepository(s),
			Access:    memory.NewAccessRepository(s),
			Favorites: memory.NewFavoriteRepository(s),
			TxManager: memory.NewTransactionManager(),
		}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected",
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
		"table_prefix", cfg.TablePrefix,
	)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Codec:  codec,
		Logger: logger,
	}
	return &Stores{
		Documents: postgresDocsys.NewDocumentRepository(repoConfig),
		Access:    postgresDocsys.NewAccessRepository(repoConfig),
		Favorites: postgresDocsys.NewFavoriteRepository(repoConfig),
		TxManager: postgres.NewTransactionManager(pool, logger),
		Pool:      pool,
	}, nil
}
