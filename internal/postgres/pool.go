// Package postgres provides the connection pool and query instrumentation
// shared by the PostgreSQL-backed stores.
package postgres

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/go-core/log"
)

// PoolConfig tunes the pool returned by NewPool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	// SlowQuery only logs successful queries at least this slow. 0 logs every query.
	SlowQuery time.Duration
	// Observer, when set, receives every query duration by operation.
	Observer QueryObserver
}

// NewPool parses cfg.URL, installs the otelpgx tracer wrapped with
// per-operation instrumentation and verifies connectivity.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.ConnConfig.Tracer = newQueryTracer(otelpgx.NewTracer(), cfg.Observer, cfg.SlowQuery)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Middleware attaches RequestStats to each request and logs them, with the
// matched route, once the handler returns. Requests that issued no queries
// are not logged.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestStats(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))

		st, _ := RequestStatsFromContext(ctx)
		snap := st.Snapshot()
		if snap.Queries == 0 {
			return
		}

		route := "unknown"
		if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		log.FromContext(ctx).Info(ctx, "request db stats",
			"http.route", route,
			"db.queries", snap.Queries,
			"db.errors", snap.Errors,
			"db.duration", snap.Total.Seconds(),
			"db.operations", snap.Operations,
		)
	})
}
