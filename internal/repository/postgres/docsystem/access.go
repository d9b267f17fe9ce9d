package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	"docforest/internal/mpath"
	"docforest/internal/repository/postgres"
)

// PostgresAccessRepository implements the AccessRepository interface
type PostgresAccessRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	codec  *mpath.Codec
	logger *slog.Logger
}

// NewAccessRepository creates a new access repository
func NewAccessRepository(config *postgres.RepositoryConfig) docsysRepo.AccessRepository {
	codec := config.Codec
	if codec == nil {
		codec = mpath.Default
	}
	return &PostgresAccessRepository{
		pool:   config.Pool,
		tables: config.Tables,
		codec:  codec,
		logger: config.Logger,
	}
}

// Grant creates or replaces a role
func (r *PostgresAccessRepository) Grant(ctx context.Context, access *models.Access) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at
	`, r.tables.Accesses)

	err := postgres.GetExecutor(ctx, r.pool).
		QueryRow(ctx, query, access.DocumentID, access.UserID, string(access.Role)).
		Scan(&access.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) || postgres.IsPgInvalidTextError(err) {
			return &domain.NotFoundError{Resource: "document", ID: access.DocumentID}
		}
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}

// Revoke removes a role
func (r *PostgresAccessRepository) Revoke(ctx context.Context, documentID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1 AND user_id = $2`, r.tables.Accesses)
	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, documentID, userID); err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return nil
		}
		return fmt.Errorf("revoke access: %w", err)
	}
	return nil
}

// ListGranted lists live documents with a direct role for the user
func (r *PostgresAccessRepository) ListGranted(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s a
		JOIN %s d ON d.id = a.document_id
		WHERE a.user_id = $1 AND d.ancestors_deleted_at IS NULL
		ORDER BY d.path
	`, documentColumns("d"), r.tables.Accesses, r.tables.Documents)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list granted documents: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan granted documents: %w", err)
	}
	return docs, nil
}

// RoleFor returns the strongest role held on doc or an ancestor
func (r *PostgresAccessRepository) RoleFor(ctx context.Context, userID string, doc *models.Document) (models.Role, error) {
	query := fmt.Sprintf(`
		SELECT a.role
		FROM %s a
		JOIN %s d ON d.id = a.document_id
		WHERE a.user_id = $1 AND d.path = ANY($2)
	`, r.tables.Accesses, r.tables.Documents)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, userID, r.codec.Lineage(doc.Path))
	if err != nil {
		return "", fmt.Errorf("resolve role: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return "", fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, models.Role(role))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve role: %w", err)
	}
	return models.Strongest(roles...), nil
}
