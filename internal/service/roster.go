package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/cache"
	"github.com/fortuna/roster/internal/metrics"
	"github.com/fortuna/roster/internal/roster"
)

var (
	// ErrRequestInProgress is returned when a request key is already being applied.
	ErrRequestInProgress = errors.New("request with this key is in progress")
	// ErrRequestKeyReused is returned when a request key was first used for a
	// different operation.
	ErrRequestKeyReused = errors.New("request key was used for a different request")
)

// EventSink receives roster events after a change was applied.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, event roster.Event) error
}

// Idempotency deduplicates retried submissions by request key.
type Idempotency interface {
	Claim(ctx context.Context, key, fingerprint string) (bool, error)
	Complete(ctx context.Context, key, fingerprint string, result []byte) error
	Lookup(ctx context.Context, key string) (cache.Entry, bool, error)
	Release(ctx context.Context, key string) error
}

// Options holds the optional collaborators of RosterService.
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Sinks       []EventSink
	Idempotency Idempotency
	Now         func() time.Time
	NewID       func() string
}

// RosterService is the transfer and finance engine. It owns the in-memory
// roster and applies every change to the gateway before touching it.
type RosterService struct {
	gateway roster.Gateway
	state   *roster.State

	logger  *zap.Logger
	metrics *metrics.Metrics
	sinks   []EventSink
	idem    Idempotency
	now     func() time.Time
	newID   func() string

	loadMu   sync.RWMutex
	lastLoad LoadReport
	loaded   bool
}

// NewRosterService creates a service with an empty roster. Call Load to
// populate it.
func NewRosterService(gateway roster.Gateway, opts Options) *RosterService {
	s := &RosterService{
		gateway: gateway,
		state:   roster.NewState(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		sinks:   opts.Sinks,
		idem:    opts.Idempotency,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("service")
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// AddSink registers another event sink. Not safe for use once requests are
// being served.
func (s *RosterService) AddSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// Snapshot returns a copy of the in-memory roster.
func (s *RosterService) Snapshot() roster.Snapshot {
	return s.state.Snapshot()
}

// Ping reports whether the gateway is reachable.
func (s *RosterService) Ping(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}

// Reset clears the in-memory roster to its empty initial values. Stored data
// is untouched.
func (s *RosterService) Reset(ctx context.Context) {
	s.state.Reset()
	s.observeBalances()
	s.logger.Info("roster reset")
	s.publish(ctx, roster.Event{Type: roster.EventReset, OccurredAt: s.now()})
}

func (s *RosterService) today() string {
	return roster.Today(s.now())
}

// publish fans the event out to every sink. Failures are logged only.
func (s *RosterService) publish(ctx context.Context, event roster.Event) {
	for _, sink := range s.sinks {
		outcome := "ok"
		if err := sink.Publish(ctx, event); err != nil {
			outcome = "error"
			s.logger.Warn("failed to publish event",
				zap.String("sink", sink.Name()),
				zap.String("event", string(event.Type)),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.EventsPublished.WithLabelValues(sink.Name(), outcome).Inc()
		}
	}
}

func (s *RosterService) observeBalances() {
	if s.metrics == nil {
		return
	}
	snap := s.state.Snapshot()
	for _, team := range roster.ActiveTeams {
		s.metrics.TeamBalance.WithLabelValues(string(team)).Set(snap.Balance(team))
	}
}

func (s *RosterService) observeApplied(plan roster.Plan) {
	if s.metrics == nil {
		return
	}
	s.metrics.PlansApplied.WithLabelValues(string(plan.Kind)).Inc()
	if plan.Balance != nil {
		s.metrics.TeamBalance.WithLabelValues(string(plan.Balance.Team)).Set(plan.Balance.Balance)
	}
}

// reject counts a command refused before any write.
func (s *RosterService) reject(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, roster.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, roster.ErrPlayerOnActiveTeam):
		return "player_on_active_team"
	case errors.Is(err, roster.ErrUnknownGroup):
		return "unknown_group"
	case errors.Is(err, roster.ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, roster.ErrInvalidPlayer):
		return "invalid_player"
	default:
		return "other"
	}
}
