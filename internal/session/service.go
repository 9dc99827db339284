package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/reclaim/internal/advisor"
	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/tools"
)

// Policy holds the knobs that shape ledger and lifecycle behavior.
type Policy struct {
	// BaselineYear is the "current year" used for every lifecycle calculation.
	BaselineYear int
	// Dedup is the default policy for ledger adds.
	Dedup asset.DedupPolicy
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithNotifier sends a Notice for every identified CRITICAL asset.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records session metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is the business boundary for session operations.
type Service struct {
	store    Store
	engine   *advisor.Engine
	policy   Policy
	logger   log.Logger
	notifier Notifier
	metrics  *Metrics

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from Service.locks once no caller holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a new session service.
func NewService(store Store, engine *advisor.Engine, policy Policy, logger log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:  store,
		engine: engine,
		policy: policy,
		logger: logger,
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the service defaults.
func (s *Service) Policy() Policy { return s.policy }

// Assessment is a built record annotated with its band and lifecycle, or the
// reason it could not be built.
type Assessment struct {
	Valid     bool             `json:"valid"`
	Reason    string           `json:"reason,omitempty"`
	Record    *asset.Record    `json:"record,omitempty"`
	Band      asset.Band       `json:"band,omitempty"`
	Lifecycle *asset.Lifecycle `json:"lifecycle,omitempty"`
}

// Identification is the outcome of identifying a photo in a session.
type Identification struct {
	Assessment
	Added     bool   `json:"added"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Inventory is the ledger sorted by urgency with totals.
type Inventory struct {
	Entries              []asset.Entry `json:"entries"`
	Count                int           `json:"count"`
	TotalValue           int64         `json:"total_value"`
	TotalReplacementCost int64         `json:"total_replacement_cost"`
}

// ChatReply is the assistant's answer and the updated transcript.
type ChatReply struct {
	Reply      string `json:"reply"`
	Transcript []Turn `json:"transcript"`
	ToolCalls  int    `json:"tool_calls"`
}

// DiagnoseReply is the structured diagnosis and the transcript it seeded.
type DiagnoseReply struct {
	Diagnosis  *advisor.Diagnosis `json:"diagnosis"`
	Transcript []Turn             `json:"transcript"`
}

// Create starts a new empty session.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	sess := New(ulid.Make().String(), time.Now())
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w: %w", ErrStorage, err)
	}
	s.countSession("created")
	s.logger.Info(ctx, "session created", "session_id", sess.ID)
	return sess, nil
}

// Get returns a copy of the session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.load(ctx, id)
}

// End deletes the session and everything in it.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("end session: %w: %w", ErrStorage, err)
	}
	if !ok {
		return ErrNotFound
	}

	s.countSession("ended")
	s.logger.Info(ctx, "session ended", "session_id", id)
	return nil
}

// Assess builds a record from a raw classifier mapping without touching any
// session.
func (s *Service) Assess(raw map[string]any) *Assessment {
	return s.assess(asset.Build(raw))
}

func (s *Service) assess(res asset.Result) *Assessment {
	rec, ok := res.Record()
	if !ok {
		return &Assessment{Reason: res.Reason()}
	}
	lc := asset.Evaluate(rec, s.policy.BaselineYear)
	return &Assessment{
		Valid:     true,
		Record:    &rec,
		Band:      asset.BandFor(rec.HealthScore),
		Lifecycle: &lc,
	}
}

// Identify classifies a photo. A valid record becomes the session's current
// asset and clears the chat transcript; with add set it is also appended to
// the ledger under the default dedup policy. An Invalid classification leaves
// the session unchanged and is reported in the returned Identification.
func (s *Service) Identify(ctx context.Context, id string, image []byte, mediaType string, add bool) (*Identification, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	L := s.logger.With("session_id", id)

	c, err := s.engine.Classify(ctx, image, mediaType)
	if err != nil {
		s.countIdentify("error", "")
		return nil, err
	}

	res := asset.Build(c.Raw)
	out := &Identification{Assessment: *s.assess(res), Model: c.Model}
	if !out.Valid {
		s.countIdentify("invalid", "")
		L.Info(ctx, "classification rejected", "reason", out.Reason)
		return out, nil
	}
	s.countIdentify("valid", string(out.Band))

	rec := *out.Record
	sess.Current = &rec
	sess.Transcript = nil

	if add {
		switch err := sess.Ledger.Add(res, s.policy.Dedup); {
		case err == nil:
			out.Added = true
			s.countAdd("added")
		case errors.Is(err, asset.ErrDuplicateRecord):
			out.Duplicate = true
			s.countAdd("duplicate")
		default:
			return nil, err
		}
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	L.Info(ctx, "asset identified",
		"manufacturer", rec.Manufacturer,
		"model_number", rec.ModelNumber,
		"health_score", rec.HealthScore,
		"band", out.Band,
		"added", out.Added,
	)

	if out.Band == asset.BandCritical && s.notifier != nil {
		notice := &Notice{
			SessionID: id,
			Record:    rec,
			Band:      out.Band,
			Lifecycle: *out.Lifecycle,
			At:        time.Now(),
		}
		// detached from the request so the response is not held up by the webhook
		go s.notify(context.WithoutCancel(ctx), notice)
	}

	return out, nil
}

// AddCurrent appends the session's current asset to its ledger. policy
// overrides the service default when non-nil.
func (s *Service) AddCurrent(ctx context.Context, id string, policy *asset.DedupPolicy) (*Inventory, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Current == nil {
		return nil, ErrNoCurrentAsset
	}

	p := s.policy.Dedup
	if policy != nil {
		p = *policy
	}
	if err := sess.Ledger.Add(asset.Valid(*sess.Current), p); err != nil {
		if errors.Is(err, asset.ErrDuplicateRecord) {
			s.countAdd("duplicate")
		}
		return nil, err
	}
	s.countAdd("added")

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return s.inventory(sess), nil
}

// Inventory returns the ledger sorted by urgency with totals.
func (s *Service) Inventory(ctx context.Context, id string) (*Inventory, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.inventory(sess), nil
}

func (s *Service) inventory(sess *Session) *Inventory {
	return &Inventory{
		Entries:              asset.Triage(sess.Ledger.Records(), s.policy.BaselineYear),
		Count:                sess.Ledger.Len(),
		TotalValue:           sess.Ledger.TotalValue(),
		TotalReplacementCost: sess.Ledger.TotalReplacementCost(),
	}
}

// ResetLedger empties the session's ledger. Resetting an empty ledger is not
// an error.
func (s *Service) ResetLedger(ctx context.Context, id string) (*Inventory, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Ledger.Reset()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.LedgerResetsTotal.Inc()
	}
	return s.inventory(sess), nil
}

// Diagnose asks for DIY advice about the current asset and replaces the chat
// transcript with the diagnosis as its opening assistant message.
func (s *Service) Diagnose(ctx context.Context, id, symptom string) (*DiagnoseReply, error) {
	symptom = strings.TrimSpace(symptom)
	if symptom == "" {
		return nil, ErrEmptyInput
	}

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Current == nil {
		return nil, ErrNoCurrentAsset
	}

	d, err := s.engine.Diagnose(ctx, *sess.Current, symptom)
	if err != nil {
		s.countTurn("diagnose", "error")
		return nil, err
	}
	s.countTurn("diagnose", "ok")

	now := time.Now()
	sess.Transcript = []Turn{
		{Role: "user", Text: symptom, Timestamp: now},
		{Role: "assistant", Text: d.Message(), Timestamp: now},
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return &DiagnoseReply{Diagnosis: d, Transcript: sess.Transcript}, nil
}

// Chat sends the user's message with the transcript so far and records both
// sides. The model may look up the current asset and the ledger through
// tools. Nothing is recorded when the model call fails.
func (s *Service) Chat(ctx context.Context, id, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyInput
	}

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Current == nil {
		return nil, ErrNoCurrentAsset
	}

	history := make([]advisor.Message, 0, len(sess.Transcript)+1)
	for _, t := range sess.Transcript {
		history = append(history, advisor.TextMessage(t.Role, t.Text))
	}
	history = append(history, advisor.TextMessage("user", message))

	registry := tools.ForAsset(*sess.Current, sess.Ledger.Records(), s.policy.BaselineYear)

	res, err := s.engine.Chat(ctx, *sess.Current, history, registry)
	if err != nil {
		s.countTurn("chat", "error")
		return nil, err
	}
	s.countTurn("chat", "ok")

	now := time.Now()
	sess.Transcript = append(sess.Transcript,
		Turn{Role: "user", Text: message, Timestamp: now},
		Turn{Role: "assistant", Text: res.Reply, Timestamp: now},
	)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return &ChatReply{Reply: res.Reply, Transcript: sess.Transcript, ToolCalls: res.ToolCalls}, nil
}

func (s *Service) notify(ctx context.Context, n *Notice) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error(ctx, err, "critical asset notification failed", "session_id", n.SessionID)
		s.countNotify("error")
		return
	}
	s.countNotify("sent")
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	sess, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w: %w", ErrStorage, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Ledger == nil {
		sess.Ledger = asset.NewLedger()
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w: %w", ErrStorage, err)
	}
	return nil
}

// lock serializes operations on one session and returns the unlock func.
// Entries live only while operations on the id are in flight, so unknown and
// pruned ids leave nothing behind.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *Service) countSession(event string) {
	if s.metrics != nil {
		s.metrics.SessionsTotal.WithLabelValues(event).Inc()
	}
}

func (s *Service) countIdentify(outcome, band string) {
	if s.metrics != nil {
		s.metrics.IdentificationsTotal.WithLabelValues(outcome, band).Inc()
	}
}

func (s *Service) countAdd(result string) {
	if s.metrics != nil {
		s.metrics.LedgerAddsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countTurn(kind, status string) {
	if s.metrics != nil {
		s.metrics.ChatTurnsTotal.WithLabelValues(kind, status).Inc()
	}
}

func (s *Service) countNotify(status string) {
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(status).Inc()
	}
}
