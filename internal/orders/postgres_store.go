package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/boonlink/bridge/internal/config"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. The quote embedded in an
// order is stored as JSONB since it is read-only once written and never
// queried by field.
type PostgresStore struct {
	db        *sql.DB
	ownsDB    bool
	tableName string // configurable via schema_mapping
}

// NewPostgresStore opens a PostgreSQL-backed order store.
func NewPostgresStore(connectionString string, poolConfig config.PostgresPoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("orders: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("orders: ping postgres: %w", err)
	}

	config.ApplyPostgresPoolSettings(db, poolConfig)

	s := &PostgresStore{db: db, ownsDB: true, tableName: "orders"}
	if err := s.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB builds an order store on an existing connection
// pool, for sharing one pool across several stores.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db, ownsDB: false, tableName: "orders"}
	if err := s.createTable(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithTableName overrides the default "orders" table name and recreates the
// table under that name if missing.
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
			user_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			status TEXT NOT NULL,
			quote JSONB NOT NULL,
			signature TEXT,
			tx_hash TEXT,
			settlement_id TEXT,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("orders: create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, order Order) error {
	quoteJSON, err := json.Marshal(order.Quote)
	if err != nil {
		return fmt.Errorf("orders: marshal quote: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, chat_id, status, quote, signature, tx_hash, settlement_id, error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		order.ID, order.UserID, order.ChatID, order.Status, quoteJSON,
		order.Signature, order.TxHash, order.SettlementID, order.Error,
		order.CreatedAt, order.UpdatedAt, order.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("orders: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, chat_id, status, quote, signature, tx_hash, settlement_id, error, created_at, updated_at, completed_at
		FROM %s WHERE id = $1
	`, s.tableName)

	row := s.db.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: scan: %w", err)
	}
	return order, nil
}

func (s *PostgresStore) Update(ctx context.Context, order Order) error {
	quoteJSON, err := json.Marshal(order.Quote)
	if err != nil {
		return fmt.Errorf("orders: marshal quote: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET status=$2, signature=$3, tx_hash=$4, settlement_id=$5, error=$6, updated_at=$7, completed_at=$8, quote=$9
		WHERE id = $1
	`, s.tableName)

	result, err := s.db.ExecContext(ctx, query,
		order.ID, order.Status, order.Signature, order.TxHash, order.SettlementID,
		order.Error, order.UpdatedAt, order.CompletedAt, quoteJSON,
	)
	if err != nil {
		return fmt.Errorf("orders: update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("orders: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, chat_id, status, quote, signature, tx_hash, settlement_id, error, created_at, updated_at, completed_at
		FROM %s WHERE user_id = $1 ORDER BY created_at DESC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("orders: query by user: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, chat_id, status, quote, signature, tx_hash, settlement_id, error, created_at, updated_at, completed_at
		FROM %s WHERE status = $1 ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("orders: query by status: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("orders: delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("orders: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for a shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var quoteJSON []byte

	err := row.Scan(
		&o.ID, &o.UserID, &o.ChatID, &o.Status, &quoteJSON,
		&o.Signature, &o.TxHash, &o.SettlementID, &o.Error,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		return Order{}, err
	}

	if err := json.Unmarshal(quoteJSON, &o.Quote); err != nil {
		return Order{}, fmt.Errorf("orders: unmarshal quote: %w", err)
	}
	return o, nil
}

func scanOrders(rows *sql.Rows) ([]Order, error) {
	var result []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("orders: scan row: %w", err)
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders: rows error: %w", err)
	}
	return result, nil
}
