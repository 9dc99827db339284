package sessionapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/reclaim/internal/advisor"
	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/session"
)

// DefaultMaxImageBytes caps identify uploads when no limit is configured.
const DefaultMaxImageBytes = 10 << 20

// SessionService defines the business operations sessionapi needs.
type SessionService interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	End(ctx context.Context, id string) error
	Assess(raw map[string]any) *session.Assessment
	Identify(ctx context.Context, id string, image []byte, mediaType string, add bool) (*session.Identification, error)
	AddCurrent(ctx context.Context, id string, policy *asset.DedupPolicy) (*session.Inventory, error)
	Inventory(ctx context.Context, id string) (*session.Inventory, error)
	ResetLedger(ctx context.Context, id string) (*session.Inventory, error)
	Diagnose(ctx context.Context, id, symptom string) (*session.DiagnoseReply, error)
	Chat(ctx context.Context, id, message string) (*session.ChatReply, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger        log.Logger
	svc           SessionService
	maxImageBytes int64
}

// Option configures an API.
type Option func(*API)

// WithMaxImageBytes sets the largest accepted identify upload.
func WithMaxImageBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxImageBytes = n
		}
	}
}

// New creates a new API handler.
func New(logger log.Logger, svc SessionService, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("session service is required"))
	}
	a := &API{
		logger:        logger,
		svc:           svc,
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assess", a.handleAssess)

		r.Post("/sessions", a.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetSession)
			r.Delete("/", a.handleEndSession)

			r.Post("/identify", a.handleIdentify)

			r.Get("/ledger", a.handleInventory)
			r.Post("/ledger", a.handleAddCurrent)
			r.Delete("/ledger", a.handleResetLedger)

			r.Post("/diagnose", a.handleDiagnose)
			r.Post("/chat", a.handleChat)
		})
	})
}

// sessionID reads the {id} path param and tags the request span with it.
func sessionID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("reclaim.session.id", id))
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto HTTP statuses. Anything unrecognized
// that is not a storage failure came from the model provider.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrNoCurrentAsset):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, asset.ErrDuplicateRecord):
		writeMessage(w, http.StatusConflict, "asset is already in the ledger")
	case errors.Is(err, asset.ErrInvalidRecord):
		writeMessage(w, http.StatusUnprocessableEntity, "invalid asset record")
	case errors.Is(err, session.ErrEmptyInput), errors.Is(err, advisor.ErrEmptyImage):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeMessage(w, http.StatusServiceUnavailable, "request cancelled")
	case errors.Is(err, session.ErrStorage):
		a.logger.Error(r.Context(), err, op+" failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	default:
		trace.SpanFromContext(r.Context()).RecordError(err)
		a.logger.Error(r.Context(), err, op+" failed", "upstream", "llm")
		writeMessage(w, http.StatusBadGateway, "model provider error")
	}
}
