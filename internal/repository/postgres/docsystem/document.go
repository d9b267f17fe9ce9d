package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/domain/repositories"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	"docforest/internal/forest"
	"docforest/internal/mpath"
	"docforest/internal/repository/postgres"
)

// errLocksMoved restarts a write whose targets moved to another tree while it
// waited for advisory locks.
var errLocksMoved = errors.New("lock targets moved")

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	codec  *mpath.Codec
	txm    repositories.TransactionManager
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) docsysRepo.DocumentRepository {
	codec := config.Codec
	if codec == nil {
		codec = mpath.Default
	}
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		codec:  codec,
		txm:    postgres.NewTransactionManager(config.Pool, config.Logger),
		logger: config.Logger,
	}
}

func documentColumns(alias string) string {
	cols := []string{
		"id::text", "path", "depth", "numchild", "child_seq", "title", "content_ref", "attachments",
		"creator_id", "created_at", "updated_at", "deleted_at", "ancestors_deleted_at",
	}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.Path,
		&d.Depth,
		&d.NumChild,
		&d.ChildSeq,
		&d.Title,
		&d.ContentRef,
		&d.Attachments,
		&d.CreatorID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
		&d.AncestorsDeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if d.Attachments == nil {
		d.Attachments = []string{}
	}
	return &d, nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	defer rows.Close()
	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func notFound(id string, err error) error {
	if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
		return &domain.NotFoundError{Resource: "document", ID: id}
	}
	return err
}

// likeEscape escapes LIKE wildcards in s.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// getLive loads a live document. forUpdate row-locks it in the current transaction.
func (r *PostgresDocumentRepository) getLive(ctx context.Context, id string, forUpdate bool) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND ancestors_deleted_at IS NULL
	`, documentColumns(""), r.tables.Documents)
	if forUpdate {
		query += " FOR UPDATE"
	}

	doc, err := scanDocument(postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get document: %w", notFound(id, err))
	}
	return doc, nil
}

// GetByID retrieves a live document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.getLive(ctx, id, false)
}

// Children lists direct children in sibling order
func (r *PostgresDocumentRepository) Children(ctx context.Context, id string) ([]models.Document, error) {
	parent, err := r.getLive(ctx, id, false)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE path LIKE $1 || '%%' AND depth = $2 AND ancestors_deleted_at IS NULL
		ORDER BY path
	`, documentColumns(""), r.tables.Documents)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, parent.Path, parent.Depth+1)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return collectDocuments(rows)
}

// Descendants lists strict descendants in path order, filtered and paginated
func (r *PostgresDocumentRepository) Descendants(ctx context.Context, id string, filters models.DescendantFilters, opts models.ListOptions) (*models.DocumentPage, error) {
	opts.ApplyDefaults()

	root, err := r.getLive(ctx, id, false)
	if err != nil {
		return nil, err
	}

	where := "path LIKE $1 || '%' AND path <> $1 AND ancestors_deleted_at IS NULL"
	args := []any{root.Path}
	if filters.Title != "" {
		args = append(args, likeEscape(forest.FoldTitle(filters.Title)))
		where += fmt.Sprintf(" AND title_search LIKE '%%' || $%d || '%%'", len(args))
	}

	executor := postgres.GetExecutor(ctx, r.pool)

	page := &models.DocumentPage{}
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, r.tables.Documents, where)
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&page.Count); err != nil {
		return nil, fmt.Errorf("count descendants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY path
		LIMIT %d OFFSET %d
	`, documentColumns(""), r.tables.Documents, where, opts.Limit, opts.Offset)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	if page.Results, err = collectDocuments(rows); err != nil {
		return nil, fmt.Errorf("scan descendants: %w", err)
	}
	return page, nil
}

// Ancestors lists strict ancestors, root first
func (r *PostgresDocumentRepository) Ancestors(ctx context.Context, id string) ([]models.Document, error) {
	doc, err := r.getLive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	lineage := r.codec.Lineage(doc.Path)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE path = ANY($1)
		ORDER BY path
	`, documentColumns(""), r.tables.Documents)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, lineage[:len(lineage)-1])
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	return collectDocuments(rows)
}

// Subtree returns the document and its live descendants in path order
func (r *PostgresDocumentRepository) Subtree(ctx context.Context, id string) ([]models.Document, error) {
	doc, err := r.getLive(ctx, id, false)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE path LIKE $1 || '%%' AND ancestors_deleted_at IS NULL
		ORDER BY path
	`, documentColumns(""), r.tables.Documents)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("load subtree: %w", err)
	}
	return collectDocuments(rows)
}

// Insert places a new document relative to referenceID
func (r *PostgresDocumentRepository) Insert(ctx context.Context, doc *models.Document, referenceID *string, pos models.Position) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	var reference *models.Document
	resolve := func(ctx context.Context) (forest.LockSet, error) {
		reference = nil
		if referenceID != nil {
			ref, err := r.getLive(ctx, *referenceID, false)
			if err != nil {
				return forest.LockSet{}, err
			}
			reference = ref
		}
		parent, err := forest.TargetParent(r.codec, nil, reference, pos)
		if err != nil {
			return forest.LockSet{}, err
		}
		return forest.WriteLocks(r.codec, parent), nil
	}

	err := r.lockedTx(ctx, doc.ID, resolve, func(ctx context.Context) error {
		parent, err := forest.TargetParent(r.codec, nil, reference, pos)
		if err != nil {
			return err
		}
		refPath := ""
		if reference != nil {
			refPath = reference.Path
		}

		level, err := r.level(ctx, parent)
		if err != nil {
			return err
		}
		plan, err := forest.PlanPlacement(r.codec, "", refPath, pos, level)
		if err != nil {
			return err
		}
		for _, rl := range plan.Relabels {
			if err := r.relabel(ctx, rl); err != nil {
				return err
			}
		}

		title := forest.CanonicalTitle(doc.Title)
		query := fmt.Sprintf(`
			INSERT INTO %s (id, path, depth, title, title_search, content_ref, attachments, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING %s
		`, r.tables.Documents, documentColumns(""))

		attachments := doc.Attachments
		if attachments == nil {
			attachments = []string{}
		}
		created, err := scanDocument(postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query,
			doc.ID,
			plan.Path,
			len(plan.Path)/r.codec.StepLen,
			title,
			searchTitle(title),
			doc.ContentRef,
			attachments,
			doc.CreatorID,
		))
		if err != nil {
			if postgres.IsPgDuplicateError(err) {
				return &domain.ConflictError{Message: "document already exists", ResourceType: "document", ResourceID: doc.ID}
			}
			return fmt.Errorf("insert document: %w", err)
		}

		if err := r.adjustNumChild(ctx, parent, 1); err != nil {
			return err
		}
		if err := r.setChildSeq(ctx, parent, plan.ChildSeq); err != nil {
			return err
		}
		*doc = *created
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("document inserted", "id", doc.ID, "path", doc.Path)
	return nil
}

// Move re-paths the subject's subtree to pos relative to referenceID
func (r *PostgresDocumentRepository) Move(ctx context.Context, subjectID, referenceID string, pos models.Position) (*models.Document, error) {
	var subject, reference *models.Document
	var parent string
	resolve := func(ctx context.Context) (forest.LockSet, error) {
		var err error
		if subject, err = r.getLive(ctx, subjectID, false); err != nil {
			return forest.LockSet{}, err
		}
		if reference, err = r.getLive(ctx, referenceID, false); err != nil {
			return forest.LockSet{}, err
		}
		if parent, err = forest.TargetParent(r.codec, subject, reference, pos); err != nil {
			return forest.LockSet{}, err
		}
		return forest.WriteLocks(r.codec, parent, subject.Path), nil
	}

	var moved *models.Document
	var plan *forest.Plan
	err := r.lockedTx(ctx, subjectID, resolve, func(ctx context.Context) error {
		oldParent := r.codec.ParentOrRoot(subject.Path)
		oldParentID, err := r.idAt(ctx, oldParent)
		if err != nil {
			return err
		}

		level, err := r.level(ctx, parent)
		if err != nil {
			return err
		}
		if plan, err = forest.PlanPlacement(r.codec, subject.Path, reference.Path, pos, level); err != nil {
			return err
		}
		if plan.NoOp {
			moved = subject
			return nil
		}

		for _, rl := range plan.Relabels {
			if err := r.relabel(ctx, rl); err != nil {
				return err
			}
		}
		if err := r.relabel(ctx, forest.Relabel{From: plan.SubjectFrom, To: plan.Path}); err != nil {
			return err
		}

		if oldParent != parent {
			if oldParentID != "" {
				if err := r.adjustNumChildByID(ctx, oldParentID, -1); err != nil {
					return err
				}
			}
			if err := r.adjustNumChild(ctx, parent, 1); err != nil {
				return err
			}
		}
		if err := r.setChildSeq(ctx, parent, plan.ChildSeq); err != nil {
			return err
		}

		query := fmt.Sprintf(`
			UPDATE %s SET updated_at = now()
			WHERE id = $1
			RETURNING %s
		`, r.tables.Documents, documentColumns(""))
		moved, err = scanDocument(postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, subjectID))
		if err != nil {
			return fmt.Errorf("touch moved document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !plan.NoOp {
		r.logger.Info("document moved",
			"id", subjectID,
			"from", plan.SubjectFrom,
			"to", plan.Path,
			"relabels", len(plan.Relabels),
		)
	}
	return moved, nil
}

// SetContent writes content_ref and attachments in one row update
func (r *PostgresDocumentRepository) SetContent(ctx context.Context, id, contentRef string, attachments []string) (*models.Document, error) {
	if attachments == nil {
		attachments = []string{}
	}
	query := fmt.Sprintf(`
		UPDATE %s SET content_ref = $2, attachments = $3, updated_at = now()
		WHERE id = $1 AND ancestors_deleted_at IS NULL
		RETURNING %s
	`, r.tables.Documents, documentColumns(""))

	doc, err := scanDocument(postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, contentRef, attachments))
	if err != nil {
		return nil, fmt.Errorf("set content: %w", notFound(id, err))
	}
	return doc, nil
}

// UpdateTitle sets or clears the title
func (r *PostgresDocumentRepository) UpdateTitle(ctx context.Context, id string, title *string) (*models.Document, error) {
	title = forest.CanonicalTitle(title)
	query := fmt.Sprintf(`
		UPDATE %s SET title = $2, title_search = $3, updated_at = now()
		WHERE id = $1 AND ancestors_deleted_at IS NULL
		RETURNING %s
	`, r.tables.Documents, documentColumns(""))

	doc, err := scanDocument(postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, title, searchTitle(title)))
	if err != nil {
		return nil, fmt.Errorf("update title: %w", notFound(id, err))
	}
	return doc, nil
}

// SoftDelete marks the document deleted and hides its subtree
func (r *PostgresDocumentRepository) SoftDelete(ctx context.Context, id string) error {
	var doc *models.Document
	resolve := func(ctx context.Context) (forest.LockSet, error) {
		var err error
		if doc, err = r.getLive(ctx, id, false); err != nil {
			return forest.LockSet{}, err
		}
		return forest.WriteLocks(r.codec, doc.Path), nil
	}

	return r.lockedTx(ctx, id, resolve, func(ctx context.Context) error {
		executor := postgres.GetExecutor(ctx, r.pool)
		query := fmt.Sprintf(`UPDATE %s SET deleted_at = now() WHERE id = $1`, r.tables.Documents)
		if _, err := executor.Exec(ctx, query, id); err != nil {
			return fmt.Errorf("soft delete document: %w", err)
		}

		query = fmt.Sprintf(`
			UPDATE %s SET ancestors_deleted_at = now()
			WHERE path LIKE $1 || '%%' AND ancestors_deleted_at IS NULL
		`, r.tables.Documents)
		tag, err := executor.Exec(ctx, query, doc.Path)
		if err != nil {
			return fmt.Errorf("soft delete subtree: %w", err)
		}
		r.logger.Info("document soft deleted", "id", id, "path", doc.Path, "hidden", tag.RowsAffected())
		return nil
	})
}

// HardDelete removes the subtree; accesses and favorites cascade
func (r *PostgresDocumentRepository) HardDelete(ctx context.Context, id string) error {
	var path string
	resolve := func(ctx context.Context) (forest.LockSet, error) {
		query := fmt.Sprintf(`SELECT path FROM %s WHERE id = $1`, r.tables.Documents)
		if err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&path); err != nil {
			return forest.LockSet{}, fmt.Errorf("hard delete: %w", notFound(id, err))
		}
		return forest.WriteLocks(r.codec, path), nil
	}

	return r.lockedTx(ctx, id, resolve, func(ctx context.Context) error {
		query := fmt.Sprintf(`DELETE FROM %s WHERE path LIKE $1 || '%%'`, r.tables.Documents)
		tag, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, path)
		if err != nil {
			return fmt.Errorf("hard delete subtree: %w", err)
		}
		if err := r.adjustNumChild(ctx, r.codec.ParentOrRoot(path), -1); err != nil {
			return err
		}
		r.logger.Info("document hard deleted", "id", id, "path", path, "removed", tag.RowsAffected())
		return nil
	})
}

// ListIDs pages through every document ID in ascending order
func (r *PostgresDocumentRepository) ListIDs(ctx context.Context, after string, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id::text FROM %s
		WHERE id::text > $1
		ORDER BY id
	`, r.tables.Documents)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan document ids: %w", err)
	}
	return ids, nil
}

// CanonicalizeTitles clears placeholder titles
func (r *PostgresDocumentRepository) CanonicalizeTitles(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET title = NULL, title_search = ''
		WHERE title IS NOT NULL AND (btrim(title) = '' OR btrim(title) = ANY($1))
	`, r.tables.Documents)

	tag, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, forest.PlaceholderTitles)
	if err != nil {
		return 0, fmt.Errorf("canonicalize titles: %w", err)
	}
	r.logger.Info("titles canonicalized", "updated", tag.RowsAffected())
	return int(tag.RowsAffected()), nil
}

func searchTitle(title *string) string {
	if title == nil {
		return ""
	}
	return forest.FoldTitle(*title)
}
