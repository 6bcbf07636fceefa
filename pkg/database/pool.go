package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/apperrors"
	"github.com/nu0ma/spanwright-sub002/pkg/logging"
	"github.com/nu0ma/spanwright-sub002/pkg/retry"
)

const (
	DefaultMaxConnections     = 10
	DefaultIdleTimeout        = 5 * time.Minute
	DefaultMaxLifetime        = 10 * time.Minute
	DefaultCleanupInterval    = 1 * time.Minute
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Factory creates a client for a full database path. Injected so tests
// can run the pool against fakes.
type Factory func(ctx context.Context, databasePath string) (Conn, error)

// PoolConfig holds pool sizing and lifetime settings.
type PoolConfig struct {
	MaxConnections     int
	IdleTimeout        time.Duration
	MaxLifetime        time.Duration
	CleanupInterval    time.Duration
	HealthCheckTimeout time.Duration
}

// Pool manages a bounded set of live database clients keyed by database
// path, with health checks on reuse, idle and lifetime eviction through a
// background cleanup goroutine, and capacity-pressure eviction of the
// globally oldest idle entry.
//
// The pool is an explicitly constructed object: create it at process
// start, Close it at process end.
type Pool struct {
	mu      sync.RWMutex
	conns   map[string]*pooledConn
	cfg     PoolConfig
	factory Factory
	logger  *zap.Logger

	closed   bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// pooledConn wraps a live client with pool bookkeeping.
type pooledConn struct {
	conn      Conn
	key       string
	createdAt time.Time
	lastUsed  time.Time
	inUse     bool
	useCount  int64
}

// PoolStats is a read-only snapshot of pool occupancy.
type PoolStats struct {
	Total  int
	Active int
	Idle   int
	Max    int
}

// NewPool creates a pool and starts its background cleanup goroutine,
// which runs until Close is called. Zero config fields fall back to the
// package defaults.
func NewPool(cfg PoolConfig, factory Factory, logger *zap.Logger) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = DefaultMaxLifetime
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = DefaultHealthCheckTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		conns:    make(map[string]*pooledConn),
		cfg:      cfg,
		factory:  factory,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	go p.cleanupLoop()
	return p
}

// GetClient returns a healthy client for the database path, marked in-use.
// An idle pooled entry is health-checked and reused; an unhealthy one is
// closed and replaced. When the pool is full, the globally oldest idle
// entry is evicted to make room; if every entry is in use, the acquisition
// fails with apperrors.ErrPoolExhausted rather than exceeding the bound.
func (p *Pool) GetClient(ctx context.Context, databasePath string) (Conn, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, apperrors.ErrPoolClosed
	}

	if entry, ok := p.conns[databasePath]; ok {
		if entry.inUse {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: connection for %s is already in use", apperrors.ErrPoolExhausted, databasePath)
		}
		// Reserve the entry before releasing the lock for the health
		// check, so a concurrent caller cannot grab the same handle.
		entry.inUse = true
		p.mu.Unlock()

		healthCtx, cancel := context.WithTimeout(ctx, p.cfg.HealthCheckTimeout)
		err := retry.Do(healthCtx, "health-check", retry.QuickConfig(), func() error {
			return entry.conn.Ping(healthCtx)
		})
		cancel()

		if err == nil {
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				return nil, apperrors.ErrPoolClosed
			}
			entry.lastUsed = time.Now()
			entry.useCount++
			p.mu.Unlock()
			return entry.conn, nil
		}

		p.logger.Warn("pooled connection unhealthy, recreating",
			zap.String("database", databasePath),
			zap.String("error", logging.SanitizeError(err)),
		)
		p.mu.Lock()
		entry.conn.Close()
		delete(p.conns, databasePath)
		// Fall through to creation with the lock held.
	}

	defer p.mu.Unlock()

	if p.closed {
		return nil, apperrors.ErrPoolClosed
	}

	if len(p.conns) >= p.cfg.MaxConnections {
		if !p.evictOldestIdleLocked() {
			return nil, fmt.Errorf("%w: %d connections, all in use", apperrors.ErrPoolExhausted, len(p.conns))
		}
	}

	conn, err := retry.DoWithResult(ctx, "create-client", retry.QuickConfig(), func() (Conn, error) {
		return p.factory(ctx, databasePath)
	})
	if err != nil {
		return nil, fmt.Errorf("creating client for %s: %w", databasePath, err)
	}

	now := time.Now()
	p.conns[databasePath] = &pooledConn{
		conn:      conn,
		key:       databasePath,
		createdAt: now,
		lastUsed:  now,
		inUse:     true,
		useCount:  1,
	}

	p.logger.Info("created pooled connection",
		zap.String("database", databasePath),
		zap.Int("total", len(p.conns)),
		zap.Int("max", p.cfg.MaxConnections),
	)
	return conn, nil
}

// ReleaseClient marks the entry idle and stamps its last-used time. The
// underlying client stays open for reuse.
func (p *Pool) ReleaseClient(databasePath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.conns[databasePath]; ok {
		entry.inUse = false
		entry.lastUsed = time.Now()
	}
}

// evictOldestIdleLocked removes the idle entry with the oldest last-used
// time across all keys. Returns false when nothing is evictable.
// Caller must hold p.mu.
func (p *Pool) evictOldestIdleLocked() bool {
	var oldest *pooledConn
	for _, entry := range p.conns {
		if entry.inUse {
			continue
		}
		if oldest == nil || entry.lastUsed.Before(oldest.lastUsed) {
			oldest = entry
		}
	}
	if oldest == nil {
		return false
	}

	oldest.conn.Close()
	delete(p.conns, oldest.key)
	p.logger.Debug("evicted idle connection for capacity",
		zap.String("database", oldest.key),
	)
	return true
}

// cleanupLoop periodically removes idle-expired and over-age entries.
func (p *Pool) cleanupLoop() {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanup()
		case <-p.stopChan:
			return
		}
	}
}

// cleanup closes idle entries whose idle duration exceeds the idle
// timeout or whose total age exceeds the max lifetime. This bounds stale
// connections independent of capacity pressure.
func (p *Pool) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	now := time.Now()
	removed := 0
	for key, entry := range p.conns {
		if entry.inUse {
			continue
		}
		if now.Sub(entry.lastUsed) > p.cfg.IdleTimeout || now.Sub(entry.createdAt) > p.cfg.MaxLifetime {
			entry.conn.Close()
			delete(p.conns, key)
			removed++
		}
	}

	if removed > 0 {
		p.logger.Info("cleaned up expired connections",
			zap.Int("removed", removed),
			zap.Int("remaining", len(p.conns)),
		)
	}
}

// Close stops the cleanup goroutine, waiting for it to fully stop before
// draining the map, then closes every entry unconditionally, in-use ones
// included. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopChan)
	p.mu.Unlock()

	// The cleanup goroutine takes the same lock, so wait for it outside.
	<-p.doneChan

	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.conns {
		entry.conn.Close()
		delete(p.conns, key)
	}
	p.logger.Info("connection pool closed")
}

// Stats returns a point-in-time occupancy snapshot.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		Total: len(p.conns),
		Max:   p.cfg.MaxConnections,
	}
	for _, entry := range p.conns {
		if entry.inUse {
			stats.Active++
		} else {
			stats.Idle++
		}
	}
	return stats
}
