package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/boonlink/bridge/internal/config"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. WAL-equivalent
// durability comes from Postgres's own write-ahead log: once Enqueue's
// INSERT commits, the row survives a crash.
type PostgresStore struct {
	db        *sql.DB
	ownsDB    bool
	tableName string
}

// NewPostgresStore opens a PostgreSQL-backed queue.
func NewPostgresStore(connectionString string, poolConfig config.PostgresPoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("queue: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("queue: ping postgres: %w", err)
	}

	config.ApplyPostgresPoolSettings(db, poolConfig)

	s := &PostgresStore{db: db, ownsDB: true, tableName: "queue"}
	if err := s.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB builds a queue store on an existing connection
// pool.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db, ownsDB: false, tableName: "queue"}
	if err := s.createTable(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithTableName overrides the default "queue" table name.
func (s *PostgresStore) WithTableName(name string) *PostgresStore {
	if name != "" {
		s.tableName = name
	}
	_ = s.createTable()
	return s
}

func (s *PostgresStore) createTable() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			signed_tx TEXT NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_retry TIMESTAMP,
			next_retry TIMESTAMP,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_next_retry ON %s(next_retry);
		CREATE INDEX IF NOT EXISTS idx_%s_order_id ON %s(order_id);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("queue: create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Enqueue(ctx context.Context, item Item) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, order_id, signed_tx, retry_count, last_retry, next_retry, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.OrderID, item.SignedTx, item.RetryCount,
		item.LastRetry, item.NextRetry, item.Status, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("queue: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Dequeue(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName)
	return s.mustAffectRow(ctx, query, id)
}

func (s *PostgresStore) UpdateRetry(ctx context.Context, id string, retryCount int, lastRetry time.Time, nextRetry time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET retry_count=$2, last_retry=$3, next_retry=$4 WHERE id = $1`, s.tableName)
	return s.mustAffectRow(ctx, query, id, retryCount, lastRetry, nextRetry)
}

func (s *PostgresStore) MarkStatus(ctx context.Context, id string, status Status) error {
	query := fmt.Sprintf(`UPDATE %s SET status=$2 WHERE id = $1`, s.tableName)
	return s.mustAffectRow(ctx, query, id, status)
}

func (s *PostgresStore) mustAffectRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("queue: exec: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Item, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, signed_tx, retry_count, last_retry, next_retry, status, created_at
		FROM %s WHERE id = $1
	`, s.tableName)

	row := s.db.QueryRowContext(ctx, query, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("queue: scan: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) GetReadyItems(ctx context.Context, now time.Time) ([]Item, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, signed_tx, retry_count, last_retry, next_retry, status, created_at
		FROM %s
		WHERE status = $1 AND (next_retry IS NULL OR next_retry <= $2)
		ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("queue: query ready items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) GetAll(ctx context.Context) ([]Item, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, signed_tx, retry_count, last_retry, next_retry, status, created_at
		FROM %s ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue: query all: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) GetStats(ctx context.Context, lookup AmountLookup) (Stats, error) {
	items, err := s.GetAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(items, lookup), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.OrderID, &item.SignedTx, &item.RetryCount,
		&item.LastRetry, &item.NextRetry, &item.Status, &item.CreatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var result []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("queue: scan row: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: rows error: %w", err)
	}
	return result, nil
}
