package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"hal9001.dev/internal/obs"
)

// Backend identifiers reported by Manager.Backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ErrBackendUnavailable indicates the pool could not produce a connection.
var ErrBackendUnavailable = errors.New("store: backend unavailable")

// Config describes the storage target. An empty PrimaryDSN selects the
// embedded backend outright.
type Config struct {
	PrimaryDSN  string
	SQLitePath  string
	PoolMin     int
	PoolMax     int
	PingTimeout time.Duration

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c *Config) applyDefaults() {
	if c.SQLitePath == "" {
		c.SQLitePath = "file:hal9001.db?_busy_timeout=5000"
	}
	if c.PoolMin < 1 {
		c.PoolMin = 2
	}
	if c.PoolMax < c.PoolMin {
		c.PoolMax = c.PoolMin * 10
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
}

// Manager selects a storage backend once, lazily, and hands out scoped
// pooled connections afterwards. Construction failure of the primary
// backend is non-fatal: the manager logs it and falls back permanently to
// the embedded backend for the rest of the process lifetime. After the
// one-time selection the manager holds no mutable state beyond the pool's
// own counters.
type Manager struct {
	cfg Config

	selectOnce sync.Once
	db         *sql.DB
	backend    string
	selectErr  error
}

// NewManager prepares a manager; no connection is made until first use.
func NewManager(cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{cfg: cfg}
}

// Acquire returns a scoped connection handle. Closing the handle releases
// it back to the pool. The call blocks until a pool slot frees or the
// context expires.
func (m *Manager) Acquire(ctx context.Context) (*sql.Conn, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return conn, nil
}

// DB exposes the selected pool for schema bootstrap and readiness pings.
func (m *Manager) DB(ctx context.Context) (*sql.DB, error) {
	return m.database()
}

// Backend reports which backend the manager selected, forcing selection if
// it has not happened yet.
func (m *Manager) Backend() (string, error) {
	if _, err := m.database(); err != nil {
		return "", err
	}
	return m.backend, nil
}

// Ping verifies the selected backend answers.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.database()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the pool. Safe to call before first use.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *Manager) database() (*sql.DB, error) {
	m.selectOnce.Do(m.selectBackend)
	return m.db, m.selectErr
}

// selectBackend runs exactly once. The backend choice is immutable for the
// process lifetime and is never re-evaluated per call.
func (m *Manager) selectBackend() {
	if m.cfg.PrimaryDSN != "" {
		db, err := m.openPrimary()
		if err == nil {
			m.db = db
			m.backend = BackendPostgres
			obs.ObserveBackendSelected(BackendPostgres)
			return
		}
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "warn",
			"msg":   "primary backend unavailable, falling back to embedded",
			"error": err.Error(),
		})
		obs.ObserveBackendFallback()
	}

	db, err := m.openEmbedded()
	if err != nil {
		m.selectErr = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		return
	}
	m.db = db
	m.backend = BackendSQLite
	obs.ObserveBackendSelected(BackendSQLite)
}

func (m *Manager) openPrimary() (*sql.DB, error) {
	db, err := sql.Open("pgx", m.cfg.PrimaryDSN)
	if err != nil {
		return nil, fmt.Errorf("open primary: %w", err)
	}
	db.SetMaxOpenConns(m.cfg.PoolMax)
	db.SetMaxIdleConns(m.cfg.PoolMin)
	db.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(m.cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping primary: %w", err)
	}
	return db, nil
}

func (m *Manager) openEmbedded() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", m.cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open embedded: %w", err)
	}
	db.SetMaxOpenConns(m.cfg.PoolMax)
	db.SetMaxIdleConns(m.cfg.PoolMin)
	db.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(m.cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping embedded: %w", err)
	}
	return db, nil
}
