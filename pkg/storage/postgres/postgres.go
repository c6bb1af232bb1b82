// Package postgres provides a PostgreSQL storage.Store. It uses pgx/v5 for
// connection pooling and stores message trees as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/vzero/pkg/storage"
	"github.com/rhuss/vzero/pkg/tree"
)

// Store is a PostgreSQL-backed message store.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New connects to PostgreSQL and, if cfg.MigrateOnStart is set, applies
// pending schema migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// SaveMessage inserts a message.
func (s *Store) SaveMessage(ctx context.Context, msg *storage.Message) error {
	content := msg.Content
	if content == nil {
		content = tree.Tree{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshaling content: %w", err)
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO messages (id, chat_id, title, content, error, complete, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ChatID, msg.Title, contentJSON, msg.Error, msg.Complete, created,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// GetMessage returns a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*storage.Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, chat_id, title, content, error, complete, created_at
		FROM messages WHERE id = $1`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListMessages returns a page of messages ordered by creation time.
func (s *Store) ListMessages(ctx context.Context, opts storage.ListOptions) (*storage.MessageList, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	cmp, dir := ">", "ASC"
	if opts.Order == storage.OrderDesc {
		cmp, dir = "<", "DESC"
	}
	if opts.ChatID != "" {
		where = append(where, "chat_id = "+arg(opts.ChatID))
	}
	if opts.After != "" {
		// An unknown cursor yields NULL and therefore an empty page.
		where = append(where, fmt.Sprintf(
			"(created_at, id) %s (SELECT created_at, id FROM messages WHERE id = %s)", cmp, arg(opts.After)))
	}

	limit := opts.PageLimit()
	query := "SELECT id, chat_id, title, content, error, complete, created_at FROM messages"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT %s", dir, dir, arg(limit+1))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	result := &storage.MessageList{Data: []*storage.Message{}}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		result.Data = append(result.Data, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	if len(result.Data) > limit {
		result.Data = result.Data[:limit]
		result.HasMore = true
	}
	if n := len(result.Data); n > 0 {
		result.FirstID = result.Data[0].ID
		result.LastID = result.Data[n-1].ID
	}
	return result, nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanMessage(row pgx.Row) (*storage.Message, error) {
	var (
		msg         storage.Message
		contentJSON []byte
	)
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.Title, &contentJSON, &msg.Error, &msg.Complete, &msg.CreatedAt); err != nil {
		return nil, err
	}
	content, err := tree.Parse(contentJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding content of %s: %w", msg.ID, err)
	}
	msg.Content = content
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}

// isDuplicateKey reports a unique violation (SQLSTATE 23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
