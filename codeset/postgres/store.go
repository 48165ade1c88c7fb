package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vexary/backupcodes/codeset"
)

// Schema is the DDL expected by [Store]. Callers run it through their own
// migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS backup_code_sets (
	owner_id     TEXT PRIMARY KEY,
	generated_at BIGINT NOT NULL,
	expires_at   BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backup_codes (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES backup_code_sets(owner_id) ON DELETE CASCADE,
	hash       BYTEA NOT NULL,
	ciphertext BYTEA,
	used       BOOLEAN NOT NULL DEFAULT FALSE,
	used_at    BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS backup_codes_owner_idx ON backup_codes (owner_id) WHERE NOT used;
`

// Store is a [codeset.Store] backed by Postgres, for callers who keep code
// sets alongside their relational user data instead of in Redis. One row
// per code; consumption is a conditional single-row update.
type Store struct {
	db *pgxpool.Pool
}

// NewStore describes the new store operation and its observable behavior.
//
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// SaveSet describes the save set operation and its observable behavior.
//
// The prior set is deleted and the new rows inserted in one transaction, so
// replacement is atomic.
//
// SaveSet may return an error when input validation, dependency calls, or security checks fail.
// SaveSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) SaveSet(ctx context.Context, ownerID string, set *codeset.CodeSet) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_code_sets WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO backup_code_sets (owner_id, generated_at, expires_at) VALUES ($1, $2, $3)`,
		ownerID, set.GeneratedAt, set.ExpiresAt,
	); err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}

	rows := make([][]interface{}, len(set.Records))
	for i, record := range set.Records {
		rows[i] = []interface{}{record.ID, ownerID, record.Hash, record.Ciphertext, record.Used, record.UsedAt}
	}
	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"backup_codes"},
		[]string{"id", "owner_id", "hash", "ciphertext", "used", "used_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	return nil
}

// GetSet describes the get set operation and its observable behavior.
//
// GetSet may return an error when input validation, dependency calls, or security checks fail.
// GetSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetSet(ctx context.Context, ownerID string) (*codeset.CodeSet, error) {
	set := &codeset.CodeSet{OwnerID: ownerID}
	err := s.db.QueryRow(ctx,
		`SELECT generated_at, expires_at FROM backup_code_sets WHERE owner_id = $1`, ownerID,
	).Scan(&set.GeneratedAt, &set.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, codeset.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, hash, ciphertext, used, used_at FROM backup_codes WHERE owner_id = $1 ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var record codeset.CodeRecord
		if err := rows.Scan(&record.ID, &record.Hash, &record.Ciphertext, &record.Used, &record.UsedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
		}
		set.Records = append(set.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	return set, nil
}

// ConsumeMatching describes the consume matching operation and its observable behavior.
//
// Matching scans a snapshot of unused rows; the consumption itself is a
// conditional update on used = FALSE with a RowsAffected check, so a racer
// that lost simply moves on. At most one caller wins any given row.
//
// ConsumeMatching may return an error when input validation, dependency calls, or security checks fail.
// ConsumeMatching does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) ConsumeMatching(
	ctx context.Context,
	ownerID string,
	usedAt int64,
	match func(record codeset.CodeRecord) bool,
) (codeset.ConsumeOutcome, error) {
	set, err := s.GetSet(ctx, ownerID)
	if err != nil {
		return codeset.ConsumeOutcome{}, err
	}

	for _, record := range set.Records {
		if record.Used || !match(record) {
			continue
		}

		tag, err := s.db.Exec(ctx,
			`UPDATE backup_codes SET used = TRUE, used_at = $2 WHERE id = $1 AND used = FALSE`,
			record.ID, usedAt,
		)
		if err != nil {
			return codeset.ConsumeOutcome{}, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			// lost the race for this row
			continue
		}

		remaining, err := s.countUnused(ctx, ownerID)
		if err != nil {
			return codeset.ConsumeOutcome{}, err
		}
		return codeset.ConsumeOutcome{Matched: true, CodeID: record.ID, Remaining: remaining}, nil
	}

	remaining, err := s.countUnused(ctx, ownerID)
	if err != nil {
		return codeset.ConsumeOutcome{}, err
	}
	return codeset.ConsumeOutcome{Remaining: remaining}, nil
}

// ClearSet describes the clear set operation and its observable behavior.
//
// ClearSet may return an error when input validation, dependency calls, or security checks fail.
// ClearSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) ClearSet(ctx context.Context, ownerID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM backup_code_sets WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) countUnused(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE owner_id = $1 AND NOT used`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", codeset.ErrUnavailable, err)
	}
	return count, nil
}

var _ codeset.Store = (*Store)(nil)
