package docsystem

import (
	"context"
	"errors"
	"fmt"

	"docforest/internal/domain"
	"docforest/internal/forest"
	"docforest/internal/repository/postgres"
)

// lockedTx runs fn in a transaction holding the advisory locks resolve names.
// resolve runs again once the locks are held; if the locks it asks for are
// no longer covered, the transaction restarts.
func (r *PostgresDocumentRepository) lockedTx(ctx context.Context, id string, resolve func(context.Context) (forest.LockSet, error), fn func(context.Context) error) error {
	for attempt := 0; attempt < forest.MaxLockAttempts; attempt++ {
		err := r.txm.ExecTx(ctx, func(ctx context.Context) error {
			held, err := resolve(ctx)
			if err != nil {
				return err
			}
			if err := r.acquire(ctx, held); err != nil {
				return err
			}
			want, err := resolve(ctx)
			if err != nil {
				return err
			}
			if !held.Covers(want) {
				return errLocksMoved
			}
			return fn(ctx)
		})
		if !errors.Is(err, errLocksMoved) {
			return err
		}
		r.logger.Debug("lock targets moved, retrying", "id", id, "attempt", attempt+1)
	}
	return &domain.ConflictError{
		Message:      "target tree kept changing, retry the operation",
		ResourceType: "document",
		ResourceID:   id,
	}
}

func (r *PostgresDocumentRepository) lockKey(name string) string {
	return "docforest:" + r.tables.Documents + ":" + name
}

// acquire takes transaction-scoped advisory locks: the root level exclusively,
// or the root level shared plus one exclusive lock per tree in sorted order.
func (r *PostgresDocumentRepository) acquire(ctx context.Context, ls forest.LockSet) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	if ls.RootLevel {
		if _, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, r.lockKey("root-level")); err != nil {
			return fmt.Errorf("lock root level: %w", err)
		}
		return nil
	}

	if _, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock_shared(hashtextextended($1, 0))`, r.lockKey("root-level")); err != nil {
		return fmt.Errorf("lock root level shared: %w", err)
	}
	for _, tree := range ls.Trees {
		if _, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, r.lockKey("tree:"+tree)); err != nil {
			return fmt.Errorf("lock tree %s: %w", tree, err)
		}
	}
	return nil
}

// level loads the child paths of parent, deleted ones included, and its
// high-water mark.
func (r *PostgresDocumentRepository) level(ctx context.Context, parent string) (forest.Level, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	lvl := forest.Level{Parent: parent, Siblings: []string{}}

	query := fmt.Sprintf(`
		SELECT path FROM %s
		WHERE path LIKE $1 || '%%' AND depth = $2
		ORDER BY path
	`, r.tables.Documents)
	rows, err := executor.Query(ctx, query, parent, len(parent)/r.codec.StepLen+1)
	if err != nil {
		return lvl, fmt.Errorf("load level: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return lvl, fmt.Errorf("scan level: %w", err)
		}
		lvl.Siblings = append(lvl.Siblings, p)
	}
	if err := rows.Err(); err != nil {
		return lvl, fmt.Errorf("load level: %w", err)
	}

	var seq int64
	if parent == "" {
		query = fmt.Sprintf(`SELECT value FROM %s WHERE name = 'root'`, r.tables.Sequences)
		err = executor.QueryRow(ctx, query).Scan(&seq)
	} else {
		query = fmt.Sprintf(`SELECT child_seq FROM %s WHERE path = $1`, r.tables.Documents)
		err = executor.QueryRow(ctx, query, parent).Scan(&seq)
	}
	if err != nil && !postgres.IsPgNoRowsError(err) {
		return lvl, fmt.Errorf("load child sequence: %w", err)
	}
	lvl.ChildSeq = uint64(seq)
	return lvl, nil
}

// relabel rewrites the path prefix of a subtree and shifts its depth.
func (r *PostgresDocumentRepository) relabel(ctx context.Context, rl forest.Relabel) error {
	shift := (len(rl.To) - len(rl.From)) / r.codec.StepLen
	query := fmt.Sprintf(`
		UPDATE %s SET path = $2 || substr(path, $3), depth = depth + $4
		WHERE path LIKE $1 || '%%'
	`, r.tables.Documents)

	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, rl.From, rl.To, len(rl.From)+1, shift); err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{Message: fmt.Sprintf("path %s is taken", rl.To), ResourceType: "document"}
		}
		return fmt.Errorf("relabel %s to %s: %w", rl.From, rl.To, err)
	}
	return nil
}

func (r *PostgresDocumentRepository) adjustNumChild(ctx context.Context, path string, delta int) error {
	if path == "" {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET numchild = numchild + $2 WHERE path = $1`, r.tables.Documents)
	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, path, delta); err != nil {
		return fmt.Errorf("update numchild: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) adjustNumChildByID(ctx context.Context, id string, delta int) error {
	query := fmt.Sprintf(`UPDATE %s SET numchild = numchild + $2 WHERE id = $1`, r.tables.Documents)
	if _, err := postgres.GetExecutor(ctx, r.pool).Exec(ctx, query, id, delta); err != nil {
		return fmt.Errorf("update numchild: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) setChildSeq(ctx context.Context, parent string, seq uint64) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	var err error
	if parent == "" {
		query := fmt.Sprintf(`UPDATE %s SET value = GREATEST(value, $1) WHERE name = 'root'`, r.tables.Sequences)
		_, err = executor.Exec(ctx, query, int64(seq))
	} else {
		query := fmt.Sprintf(`UPDATE %s SET child_seq = GREATEST(child_seq, $2) WHERE path = $1`, r.tables.Documents)
		_, err = executor.Exec(ctx, query, parent, int64(seq))
	}
	if err != nil {
		return fmt.Errorf("update child sequence: %w", err)
	}
	return nil
}

// idAt returns the id of the document at path, or "" for the root level.
func (r *PostgresDocumentRepository) idAt(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var id string
	query := fmt.Sprintf(`SELECT id::text FROM %s WHERE path = $1`, r.tables.Documents)
	if err := postgres.GetExecutor(ctx, r.pool).QueryRow(ctx, query, path).Scan(&id); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", nil
		}
		return "", fmt.Errorf("resolve parent: %w", err)
	}
	return id, nil
}
