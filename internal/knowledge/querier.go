package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations the store needs. The interface is
// defined here, by the consumer, so tests can substitute an in-memory fake.
type Querier interface {
	// UpsertEntry inserts an entry or replaces the existing row with the
	// same id.
	UpsertEntry(ctx context.Context, id, content string, embedding pgvector.Vector, metadata []byte) error

	// SearchEntries returns the limit nearest entries by cosine distance.
	SearchEntries(ctx context.Context, embedding pgvector.Vector, limit int) ([]entryRow, error)

	// CountEntries counts stored entries.
	CountEntries(ctx context.Context) (int64, error)

	// DeleteAllEntries removes every stored entry.
	DeleteAllEntries(ctx context.Context) error
}

// entryRow is a raw search result before metadata decoding.
type entryRow struct {
	ID         string
	Content    string
	Metadata   []byte
	Similarity float64
}

// pgxConn is the subset of pgxpool.Pool the querier uses, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGQuerier implements Querier against the entries table.
type PGQuerier struct {
	conn pgxConn
}

// NewPGQuerier wraps a pgx connection source.
func NewPGQuerier(conn pgxConn) *PGQuerier {
	return &PGQuerier{conn: conn}
}

const upsertEntrySQL = `INSERT INTO entries (id, content, embedding, metadata)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET content = EXCLUDED.content,
	    embedding = EXCLUDED.embedding,
	    metadata = EXCLUDED.metadata,
	    updated_at = now()`

// UpsertEntry implements Querier.
func (q *PGQuerier) UpsertEntry(ctx context.Context, id, content string, embedding pgvector.Vector, metadata []byte) error {
	if _, err := q.conn.Exec(ctx, upsertEntrySQL, id, content, embedding, metadata); err != nil {
		return fmt.Errorf("upserting entry %s: %w", id, err)
	}
	return nil
}

const searchEntriesSQL = `SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
	FROM entries
	ORDER BY embedding <=> $1
	LIMIT $2`

// SearchEntries implements Querier.
func (q *PGQuerier) SearchEntries(ctx context.Context, embedding pgvector.Vector, limit int) ([]entryRow, error) {
	rows, err := q.conn.Query(ctx, searchEntriesSQL, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()

	var results []entryRow
	for rows.Next() {
		var r entryRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}
	return results, nil
}

// CountEntries implements Querier.
func (q *PGQuerier) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	if err := q.conn.QueryRow(ctx, `SELECT count(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// DeleteAllEntries implements Querier.
func (q *PGQuerier) DeleteAllEntries(ctx context.Context) error {
	if _, err := q.conn.Exec(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	return nil
}

// decodeMetadata unmarshals a jsonb column into a map, tolerating NULL.
func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}
