// Package simcache is the persistent similarity cache: a SQLite table that
// maps (content digest, model) to an embedding vector, fronted by a bounded
// in-memory LRU tier.
//
// Entries are append-only. Writes use INSERT ... ON CONFLICT DO NOTHING, so
// concurrent writers racing on the same key both succeed and the first value
// wins. Every storage failure is logged and reported to the caller as a miss;
// the cache never aborts a run.
package simcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/metrics"
)

// Defaults
const (
	DefaultBusyTimeout   = 5 * time.Second
	DefaultMemoryEntries = 10000
	DefaultMaxOpenConns  = 4
)

// ErrDimensionMismatch is reported when a vector does not match its
// declared dimensionality.
var ErrDimensionMismatch = errors.New("vector length does not match dims")

// CacheError wraps a storage failure for one cache operation.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("similarity cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Options configures a Cache. Zero values select defaults.
type Options struct {
	BusyTimeout   time.Duration
	MemoryEntries int
	Logger        *zap.Logger
	Metrics       *metrics.Collector
}

type cacheKey struct {
	digest string
	model  string
}

// Cache is safe for concurrent use.
type Cache struct {
	db      *sql.DB // nil in memory-only mode
	path    string
	mem     *lru.Cache[cacheKey, []float32]
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Open opens (creating if needed) the cache database at path and applies
// migrations.
func Open(ctx context.Context, path string, opts Options) (*Cache, error) {
	opts = opts.withDefaults()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &CacheError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open(DriverName, dsn(path, int(opts.BusyTimeout.Milliseconds())))
	if err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}

	// WAL lets readers proceed while one writer holds the lock; the busy
	// timeout bounds how long a writer waits.
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxOpenConns)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &CacheError{Op: "open", Err: err}
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, &CacheError{Op: "migrate", Err: err}
	}

	c := newCache(opts)
	c.db = db
	c.path = path
	return c, nil
}

// NewMemoryOnly returns a cache without persistence. It is used when the
// database cannot be opened.
func NewMemoryOnly(opts Options) *Cache {
	return newCache(opts.withDefaults())
}

func newCache(opts Options) *Cache {
	mem, err := lru.New[cacheKey, []float32](opts.MemoryEntries)
	if err != nil {
		mem, _ = lru.New[cacheKey, []float32](DefaultMemoryEntries)
	}
	return &Cache{
		mem:     mem,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = DefaultBusyTimeout
	}
	if o.MemoryEntries <= 0 {
		o.MemoryEntries = DefaultMemoryEntries
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Persistent reports whether the cache is backed by a database.
func (c *Cache) Persistent() bool {
	return c.db != nil
}

// Path returns the database path, empty in memory-only mode.
func (c *Cache) Path() string {
	return c.path
}

// Get returns a copy of the vector stored for (digest, model). Storage
// failures and malformed rows are reported as a miss.
func (c *Cache) Get(ctx context.Context, digest, model string) ([]float32, bool) {
	key := cacheKey{digest: digest, model: model}
	if v, ok := c.mem.Get(key); ok {
		c.metrics.ObserveCacheHit()
		return clone(v), true
	}
	if c.db == nil {
		c.metrics.ObserveCacheMiss()
		return nil, false
	}

	v, err := c.load(ctx, key)
	if err != nil {
		c.fail("get", err, key)
		c.metrics.ObserveCacheMiss()
		return nil, false
	}
	if v == nil {
		c.metrics.ObserveCacheMiss()
		return nil, false
	}

	c.mem.Add(key, v)
	c.metrics.ObserveCacheHit()
	return clone(v), true
}

func (c *Cache) load(ctx context.Context, key cacheKey) ([]float32, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	var (
		dims int
		blob []byte
	)
	err = conn.QueryRowContext(ctx,
		"SELECT dims, embedding FROM embeddings WHERE content_digest = ? AND model = ?",
		key.digest, key.model).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v, err := deserializeVector(blob)
	if err != nil {
		return nil, err
	}
	if len(v) != dims {
		return nil, fmt.Errorf("%w: stored %d, decoded %d", ErrDimensionMismatch, dims, len(v))
	}
	return v, nil
}

// Put stores vector for (digest, model) unless an entry already exists.
// A failure is logged and returned; callers may ignore it.
func (c *Cache) Put(ctx context.Context, digest, model string, dims int, vector []float32) error {
	key := cacheKey{digest: digest, model: model}
	if len(vector) != dims || dims == 0 {
		err := &CacheError{Op: "put", Err: fmt.Errorf("%w: dims %d, len %d", ErrDimensionMismatch, dims, len(vector))}
		c.fail("put", err, key)
		return err
	}

	if c.db != nil {
		if err := c.store(ctx, key, dims, vector); err != nil {
			c.fail("put", err, key)
			return &CacheError{Op: "put", Err: err}
		}
	}

	if !c.mem.Contains(key) {
		c.mem.Add(key, clone(vector))
	}
	return nil
}

func (c *Cache) store(ctx context.Context, key cacheKey, dims int, vector []float32) error {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.ExecContext(ctx, `
		INSERT INTO embeddings (content_digest, model, dims, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_digest, model) DO NOTHING`,
		key.digest, key.model, dims, serializeVector(vector), time.Now().UTC())
	return err
}

// Count returns the number of persisted entries, or the in-memory size in
// memory-only mode.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if c.db == nil {
		return c.mem.Len(), nil
	}
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, &CacheError{Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) fail(op string, err error, key cacheKey) {
	c.metrics.ObserveCacheError(op)
	c.logger.Warn("similarity cache failure, treating as miss",
		zap.String("op", op),
		zap.String("digest", key.digest),
		zap.String("model", key.model),
		zap.Error(err))
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
