package postgres

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

// Unlabeled is the operation reported for queries issued without
// WithOperation, such as pool pings or ad hoc statements.
const Unlabeled = "unlabeled"

// Query outcomes passed to QueryObserver.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type operationKey struct{}

type queryKey struct{}

type statsKey struct{}

// WithOperation labels every query issued with ctx. Stores call it with a
// stable name per method (for example "session_get") so metrics and logs
// group by what the query is for rather than by its SQL text.
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the label set by WithOperation, or Unlabeled.
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok {
		return op
	}
	return Unlabeled
}

// QueryObserver receives the duration of every query.
type QueryObserver interface {
	ObserveQuery(ctx context.Context, op, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, op, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, op, outcome string, dur time.Duration) {
	f(ctx, op, outcome, dur)
}

// RequestStats accumulates the queries issued while serving one request.
type RequestStats struct {
	mu      sync.Mutex
	queries int
	errors  int
	total   time.Duration
	ops     map[string]int
}

// StatsSnapshot is a point in time copy of RequestStats.
type StatsSnapshot struct {
	Queries    int
	Errors     int
	Total      time.Duration
	Operations map[string]int
}

func (s *RequestStats) record(op string, dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops == nil {
		s.ops = make(map[string]int)
	}
	s.queries++
	s.total += dur
	s.ops[op]++
	if err != nil {
		s.errors++
	}
}

// Snapshot returns a copy of the counters.
func (s *RequestStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Queries:    s.queries,
		Errors:     s.errors,
		Total:      s.total,
		Operations: maps.Clone(s.ops),
	}
}

// WithRequestStats returns ctx carrying an empty RequestStats.
func WithRequestStats(ctx context.Context) context.Context {
	return context.WithValue(ctx, statsKey{}, &RequestStats{})
}

// RequestStatsFromContext returns the stats attached by WithRequestStats.
func RequestStatsFromContext(ctx context.Context) (*RequestStats, bool) {
	s, ok := ctx.Value(statsKey{}).(*RequestStats)
	return s, ok
}

type queryStart struct {
	op    string
	sql   string
	start time.Time
}

// queryTracer wraps another pgx.QueryTracer (otelpgx in production) with
// per-operation metrics, request stats and a log line for slow or failed
// queries. Query arguments are never logged since session rows carry user
// data.
type queryTracer struct {
	inner    pgx.QueryTracer
	observer QueryObserver
	// slow is the logging threshold for successful queries. 0 logs all.
	slow time.Duration
	now  func() time.Time
}

func newQueryTracer(inner pgx.QueryTracer, observer QueryObserver, slow time.Duration) *queryTracer {
	return &queryTracer{inner: inner, observer: observer, slow: slow, now: time.Now}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	op := OperationFromContext(ctx)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("reclaim.db.operation", op))
	}
	return context.WithValue(ctx, queryKey{}, queryStart{op: op, sql: data.SQL, start: t.now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	q, ok := ctx.Value(queryKey{}).(queryStart)
	if !ok {
		return
	}
	dur := t.now().Sub(q.start)

	if s, ok := RequestStatsFromContext(ctx); ok {
		s.record(q.op, dur, data.Err)
	}

	outcome := OutcomeOK
	if data.Err != nil {
		outcome = OutcomeError
	}
	if t.observer != nil {
		t.observer.ObserveQuery(ctx, q.op, outcome, dur)
	}

	if data.Err == nil && t.slow > 0 && dur < t.slow {
		return
	}

	fields := []any{
		"db.operation", q.op,
		"db.duration", dur.Seconds(),
	}
	if data.Err != nil {
		fields = append(fields, "db.statement", q.sql)
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code)
		}
		log.FromContext(ctx).Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	fields = append(fields, "db.rows", data.CommandTag.RowsAffected())
	log.FromContext(ctx).Info(ctx, "db query", fields...)
}
