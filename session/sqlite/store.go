// Package sqlite provides a durable core.TurnStore backed by a SQLite file.
//
// The store keeps one table, chat_turns, ordered per user by an
// autoincrement sequence column; created_at is informational. All
// connections share WAL pragmas; writes that delete (pruning) run in an
// IMMEDIATE transaction.
package sqlite

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_turns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	user_id    TEXT    NOT NULL,
	role       TEXT    NOT NULL,
	message    TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_turns_user_seq ON chat_turns (user_id, seq);
`

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the filesystem path to the database file. The parent
	// directory must exist; the file is created if missing.
	Path string

	// PoolSize is the number of pooled connections. Defaults to
	// max(runtime.NumCPU(), 4) when zero or negative.
	PoolSize int

	// Logger receives open/close messages. Defaults to a no-op logger.
	Logger logging.Logger
}

// Store is a SQLite TurnStore. It is safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger logging.Logger
	path   string
}

var _ core.TurnStore = (*Store)(nil)

// Open creates the connection pool and ensures the schema exists. The caller
// must call Close when the store is no longer needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}

	s := &Store{pool: pool, logger: logger, path: cfg.Path}

	if err := s.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("store.sqlite.opened", "path", cfg.Path, "pool_size", poolSize)

	return s, nil
}

// Close closes all pooled connections. Blocks until borrowed connections
// are returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("store.sqlite.close_failed", "path", s.path, "error", err.Error())
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("store.sqlite.closed", "path", s.path)
	return nil
}

// Append inserts the turn and returns its generated id.
func (s *Store) Append(ctx context.Context, turn core.ConversationTurn) (string, error) {
	if turn.UserID == "" {
		return "", fmt.Errorf("sqlite store: append: user id is required")
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("sqlite store: append: %w", err)
	}
	defer s.pool.Put(conn)

	id := core.NewID()
	err = sqlitex.Execute(conn,
		`INSERT INTO chat_turns (id, user_id, role, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{id, turn.UserID, string(turn.Role), turn.Message, turn.CreatedAt.UnixNano()},
		})
	if err != nil {
		return "", fmt.Errorf("sqlite store: append: %w", err)
	}

	return id, nil
}

// ListRecent returns up to limit turns newest first; limit <= 0 returns all.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer s.pool.Put(conn)

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var turns []core.ConversationTurn
	err = sqlitex.Execute(conn,
		`SELECT id, user_id, role, message, created_at FROM chat_turns
		 WHERE user_id = ? ORDER BY seq DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{userID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				turns = append(turns, core.ConversationTurn{
					ID:        stmt.ColumnText(0),
					UserID:    stmt.ColumnText(1),
					Role:      core.Role(stmt.ColumnText(2)),
					Message:   stmt.ColumnText(3),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(4)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}

	return turns, nil
}

// PruneOlderThan deletes the oldest turns for userID so at most keep remain.
func (s *Store) PruneOlderThan(ctx context.Context, userID string, keep int) (removed int, err error) {
	if keep < 0 {
		keep = 0
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: prune: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: prune: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`DELETE FROM chat_turns WHERE user_id = ? AND seq NOT IN (
			SELECT seq FROM chat_turns WHERE user_id = ?
			ORDER BY seq DESC LIMIT ?
		)`,
		&sqlitex.ExecOptions{Args: []any{userID, userID, keep}})
	if err != nil {
		return 0, fmt.Errorf("sqlite store: prune: %w", err)
	}

	return conn.Changes(), nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: migrate: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return nil
}

// prepareConnection applies the standard pragmas once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", pragma, err)
		}
	}

	return nil
}
