package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	"docforest/internal/repository/postgres"
)

// PostgresFavoriteRepository implements the FavoriteRepository interface
type PostgresFavoriteRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	docs   *PostgresDocumentRepository
	logger *slog.Logger
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(config *postgres.RepositoryConfig) docsysRepo.FavoriteRepository {
	return &PostgresFavoriteRepository{
		pool:   config.Pool,
		tables: config.Tables,
		docs:   NewDocumentRepository(config).(*PostgresDocumentRepository),
		logger: config.Logger,
	}
}

// Add marks a live document as favorite
func (r *PostgresFavoriteRepository) Add(ctx context.Context, userID, documentID string) error {
	if _, err := r.docs.getLive(ctx, documentID, false); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, document_id) VALUES ($1, $2)
		ON CONFLICT (user_id, document_id) DO NOTHING
	`, r.tables.Favorites)
	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, userID, documentID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return notFound(documentID, err)
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove unmarks a document
func (r *PostgresFavoriteRepository) Remove(ctx context.Context, userID, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND document_id = $2`, r.tables.Favorites)
	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, userID, documentID); err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return nil
		}
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether the user marked the document
func (r *PostgresFavoriteRepository) IsFavorite(ctx context.Context, userID, documentID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND document_id = $2)`, r.tables.Favorites)

	var ok bool
	if err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, userID, documentID).Scan(&ok); err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}

// ListAccessible lists live favorites the user can still access, newest mark first
func (r *PostgresFavoriteRepository) ListAccessible(ctx context.Context, userID string, opts models.ListOptions) (*models.DocumentPage, error) {
	opts.ApplyDefaults()

	from := fmt.Sprintf(`
		FROM %s f
		JOIN %s d ON d.id = f.document_id
		WHERE f.user_id = $1
		  AND d.ancestors_deleted_at IS NULL
		  AND EXISTS (
			SELECT 1 FROM %s a
			JOIN %s ad ON ad.id = a.document_id
			WHERE a.user_id = $1 AND d.path LIKE ad.path || '%%'
		  )
	`, r.tables.Favorites, r.tables.Documents, r.tables.Accesses, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)

	page := &models.DocumentPage{}
	if err := executor.QueryRow(ctx, "SELECT count(*) "+from, userID).Scan(&page.Count); err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY f.seq DESC LIMIT %d OFFSET %d", documentColumns("d"), from, opts.Limit, opts.Offset)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if page.Results, err = collectDocuments(rows); err != nil {
		return nil, fmt.Errorf("scan favorites: %w", err)
	}
	return page, nil
}
