// Package pgstore provides a PostgreSQL implementation of session.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/postgres"
	"github.com/linnemanlabs/reclaim/internal/session"
)

var tracer = otel.Tracer("github.com/linnemanlabs/reclaim/internal/session/pgstore")

//go:embed schema.sql
var schema string

// Operation labels attached to every query for metrics and logs.
const (
	OpMigrate   = "session_migrate"
	OpGet       = "session_get"
	OpPut       = "session_put"
	OpDelete    = "session_delete"
	OpPruneIdle = "session_prune_idle"
)

// Store persists sessions in PostgreSQL. The ledger, current asset and
// transcript are stored as JSONB columns on one row per session.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(postgres.WithOperation(ctx, OpMigrate), schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const sessionColumns = `id, created_at, updated_at, ledger, current, transcript`

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", OpGet, "SELECT")
	defer span.End()

	sess, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		recordError(span, err)
		return nil, false, err
	}
	if sess == nil {
		return nil, false, nil
	}
	return sess, true, nil
}

// Put inserts or replaces a session.
func (s *Store) Put(ctx context.Context, sess *session.Session) error {
	ctx, span := startSpan(ctx, "pgstore.Put", OpPut, "UPSERT")
	defer span.End()

	ledger := sess.Ledger
	if ledger == nil {
		ledger = asset.NewLedger()
	}
	ledgerJSON, err := json.Marshal(ledger)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("marshal ledger: %w", err)
	}

	var currentJSON []byte
	if sess.Current != nil {
		if currentJSON, err = json.Marshal(sess.Current); err != nil {
			recordError(span, err)
			return fmt.Errorf("marshal current: %w", err)
		}
	}

	transcript := sess.Transcript
	if transcript == nil {
		transcript = []session.Turn{}
	}
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("marshal transcript: %w", err)
	}

	query := `INSERT INTO sessions (` + sessionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		updated_at = EXCLUDED.updated_at,
		ledger     = EXCLUDED.ledger,
		current    = EXCLUDED.current,
		transcript = EXCLUDED.transcript`

	_, err = s.pool.Exec(ctx, query,
		sess.ID, sess.CreatedAt, sess.UpdatedAt, ledgerJSON, currentJSON, transcriptJSON,
	)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes a session, reporting whether a row existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Delete", OpDelete, "DELETE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		recordError(span, err)
		return false, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// PruneIdle deletes sessions not updated since before cutoff and returns how
// many were removed.
func (s *Store) PruneIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.PruneIdle", OpPruneIdle, "DELETE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	span.SetAttributes(attribute.Int64("db.rows", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// scanSession scans a single row. Returns (nil, nil) when no row is found.
func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		sess           session.Session
		ledgerJSON     []byte
		currentJSON    []byte
		transcriptJSON []byte
	)
	err := row.Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt, &ledgerJSON, &currentJSON, &transcriptJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	sess.Ledger = asset.NewLedger()
	if err := json.Unmarshal(ledgerJSON, sess.Ledger); err != nil {
		return nil, fmt.Errorf("unmarshal ledger: %w", err)
	}
	if len(currentJSON) > 0 {
		var cur asset.Record
		if err := json.Unmarshal(currentJSON, &cur); err != nil {
			return nil, fmt.Errorf("unmarshal current: %w", err)
		}
		sess.Current = &cur
	}
	if err := json.Unmarshal(transcriptJSON, &sess.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return &sess, nil
}

// startSpan opens the store span and labels the queries issued under it.
func startSpan(ctx context.Context, name, op, verb string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", verb),
	))
	return postgres.WithOperation(ctx, op), span
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
