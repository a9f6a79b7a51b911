// Package postgres implements remote.Store on a single JSONB document table.
// Realtime snapshot delivery rides on LISTEN/NOTIFY: every mutation notifies
// a per-partition channel, and each subscription holds a dedicated
// connection that re-reads the full collection on every notification.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifelog/internal/domain"
	"lifelog/internal/remote"
)

// StoreConfig holds everything a partition-scoped store needs.
type StoreConfig struct {
	Pool      *pgxpool.Pool
	Table     string // prefixed documents table name
	Partition string // app id + device identity
	Logger    *slog.Logger
}

// Store is a remote.Store scoped to one session partition.
type Store struct {
	pool      *pgxpool.Pool
	table     string
	partition string
	logger    *slog.Logger

	mu     sync.Mutex
	cancel []context.CancelFunc // open subscription listeners
	closed bool
}

func NewStore(cfg *StoreConfig) *Store {
	return &Store{
		pool:      cfg.Pool,
		table:     cfg.Table,
		partition: cfg.Partition,
		logger:    cfg.Logger,
	}
}

// CreateConnectionPool creates a pgx pool sized for one interactive session
// plus its listener connections.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	// PgBouncer transaction pooling (port 6543) breaks prepared statements;
	// cache_describe uses the extended protocol without preparing.
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func (s *Store) Create(ctx context.Context, coll string, data map[string]any) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (partition, collection, id, data)
		VALUES ($1, $2, $3, $4)
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, s.partition, coll, id, payload); err != nil {
		if IsPgDuplicateError(err) {
			return "", fmt.Errorf("create %s document: id %s exists: %w", coll, id, domain.ErrConflict)
		}
		return "", fmt.Errorf("create %s document: %w: %v", coll, domain.ErrRemote, err)
	}

	s.notify(ctx, coll)
	return id, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (partition, collection, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (partition, collection, id)
		DO UPDATE SET data = EXCLUDED.data
	`, s.table)

	if _, err := s.pool.Exec(ctx, query, s.partition, coll, id, payload); err != nil {
		return fmt.Errorf("set %s/%s: %w: %v", coll, id, domain.ErrRemote, err)
	}

	s.notify(ctx, coll)
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, patch map[string]any) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	// jsonb || merges top-level keys, matching the partial-document contract.
	query := fmt.Sprintf(`
		UPDATE %s
		SET data = data || $4::jsonb
		WHERE partition = $1 AND collection = $2 AND id = $3
	`, s.table)

	result, err := s.pool.Exec(ctx, query, s.partition, coll, id, payload)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w: %v", coll, id, domain.ErrRemote, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update %s/%s: %w", coll, id, domain.ErrNotFound)
	}

	s.notify(ctx, coll)
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE partition = $1 AND collection = $2 AND id = $3
	`, s.table)

	result, err := s.pool.Exec(ctx, query, s.partition, coll, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w: %v", coll, id, domain.ErrRemote, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete %s/%s: %w", coll, id, domain.ErrNotFound)
	}

	s.notify(ctx, coll)
	return nil
}

func (s *Store) Get(ctx context.Context, coll, id string) (*remote.Document, error) {
	query := fmt.Sprintf(`
		SELECT data, created_at
		FROM %s
		WHERE partition = $1 AND collection = $2 AND id = $3
	`, s.table)

	var payload []byte
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, query, s.partition, coll, id).Scan(&payload, &createdAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("get %s/%s: %w", coll, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w: %v", coll, id, domain.ErrRemote, err)
	}

	doc := &remote.Document{ID: id, CreatedAt: createdAt}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", coll, id, err)
	}
	return doc, nil
}

// Subscribe LISTENs on the partition channel with a dedicated connection.
// Each notification whose payload names the collection triggers a full
// re-read; the complete result is delivered as the next snapshot. Listener
// errors are logged and end the stream without reconnecting - the last
// delivered snapshot stays in effect.
func (s *Store) Subscribe(ctx context.Context, coll string, fn remote.SnapshotFunc) (remote.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed: %w", coll, domain.ErrRemote)
	}
	s.mu.Unlock()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener connection: %w: %v", domain.ErrRemote, err)
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	channel := pgx.Identifier{s.channel()}.Sanitize()
	if _, err := conn.Exec(listenCtx, "LISTEN "+channel); err != nil {
		cancel()
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w: %v", coll, domain.ErrRemote, err)
	}

	// LISTEN must precede the initial read. A write committing while the
	// read runs queues its notification on the already-listening connection
	// and triggers a re-read; with the opposite order that notification
	// fires with no listener attached and the change stays invisible until
	// the next unrelated write.
	docs, err := s.fetchAll(ctx, coll)
	if err != nil {
		cancel()
		conn.Release()
		return nil, err
	}

	s.mu.Lock()
	s.cancel = append(s.cancel, cancel)
	s.mu.Unlock()

	// Initial snapshot before any change event.
	fn(docs)

	go s.listen(listenCtx, conn, coll, fn)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (s *Store) listen(ctx context.Context, conn *pgxpool.Conn, coll string, fn remote.SnapshotFunc) {
	defer conn.Release()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("snapshot stream failed", "collection", coll, "error", err)
			}
			return
		}
		if notification.Payload != coll {
			continue
		}

		docs, err := s.fetchAll(ctx, coll)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("snapshot read failed", "collection", coll, "error", err)
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		fn(docs)
	}
}

func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	cancels := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Store) fetchAll(ctx context.Context, coll string) ([]remote.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, data, created_at
		FROM %s
		WHERE partition = $1 AND collection = $2
	`, s.table)

	rows, err := s.pool.Query(ctx, query, s.partition, coll)
	if err != nil {
		return nil, fmt.Errorf("read %s collection: %w: %v", coll, domain.ErrRemote, err)
	}
	defer rows.Close()

	var docs []remote.Document
	for rows.Next() {
		var doc remote.Document
		var payload []byte
		if err := rows.Scan(&doc.ID, &payload, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", coll, err)
		}
		if err := json.Unmarshal(payload, &doc.Data); err != nil {
			// Malformed rows are skipped, not fatal to the snapshot.
			s.logger.Warn("skipping malformed document", "collection", coll, "id", doc.ID, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s collection: %w: %v", coll, domain.ErrRemote, err)
	}
	return docs, nil
}

// notify is best effort: a write that lands but fails to notify still shows
// up on the next notification. Failures are logged only.
func (s *Store) notify(ctx context.Context, coll string) {
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify($1, $2)", s.channel(), coll); err != nil {
		s.logger.Warn("notify failed", "collection", coll, "error", err)
	}
}

// channel derives the NOTIFY channel for this partition. Postgres channel
// names are capped at 63 bytes, so the partition is hashed rather than
// embedded.
func (s *Store) channel() string {
	h := fnv.New64a()
	h.Write([]byte(s.partition))
	return fmt.Sprintf("%s_%x", s.table, h.Sum64())
}
