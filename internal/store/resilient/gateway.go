// Package resilient decorates a roster.Gateway with a circuit breaker on every
// call and bounded exponential retry on reads.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/roster"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("store unavailable")

// Options configures the breaker and the read retry policy.
type Options struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// OnStateChange is called after every breaker transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

var (
	_ roster.Gateway       = (*Gateway)(nil)
	_ roster.AtomicApplier = (*AtomicGateway)(nil)
)

// Gateway is the decorated gateway.
type Gateway struct {
	inner   roster.Gateway
	breaker *gobreaker.CircuitBreaker
	opts    Options
	logger  *zap.Logger
}

// AtomicGateway additionally forwards ApplyPlan through the breaker.
type AtomicGateway struct {
	*Gateway
	applier roster.AtomicApplier
}

// Wrap decorates inner. The result implements roster.AtomicApplier exactly
// when inner does.
func Wrap(inner roster.Gateway, opts Options, logger *zap.Logger) roster.Gateway {
	g := newGateway(inner, opts, logger)
	if applier, ok := inner.(roster.AtomicApplier); ok {
		return &AtomicGateway{Gateway: g, applier: applier}
	}
	return g
}

func newGateway(inner roster.Gateway, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "store"
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}

	g := &Gateway{
		inner:  inner,
		opts:   opts,
		logger: logger.Named("resilient"),
	}

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: isSuccessful,
	}
	g.breaker = gobreaker.NewCircuitBreaker(settings)
	return g
}

// isSuccessful keeps business outcomes and caller cancellation from counting
// as store failures.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, roster.ErrPlayerNotFound),
		errors.Is(err, roster.ErrInsufficientFunds),
		errors.Is(err, roster.ErrUnknownGroup),
		errors.Is(err, roster.ErrUnknownTeam),
		errors.Is(err, roster.ErrInvalidPlayer),
		errors.Is(err, context.Canceled):
		return true
	}
	return false
}

// State reports the current breaker state.
func (g *Gateway) State() gobreaker.State {
	return g.breaker.State()
}

func execute[T any](g *Gateway, fn func() (T, error)) (T, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return zero, err
	}
	return res.(T), nil
}

// read runs fn through the breaker with bounded exponential retry. An open
// breaker or a cancelled context stops retrying.
func read[T any](ctx context.Context, g *Gateway, op string, fn func() (T, error)) (T, error) {
	var out T

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.RetryBaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = 50 * time.Millisecond
	}
	if g.opts.RetryMaxDelay > 0 {
		b.MaxInterval = g.opts.RetryMaxDelay
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.opts.RetryAttempts-1)), ctx)

	err := backoff.RetryNotify(func() error {
		v, err := execute(g, fn)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || isSuccessful(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, policy, func(err error, wait time.Duration) {
		g.logger.Warn("store read failed, retrying",
			zap.String("op", op),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	return out, err
}

func (g *Gateway) ListPlayers(ctx context.Context) ([]roster.Player, error) {
	return read(ctx, g, "ListPlayers", func() ([]roster.Player, error) {
		return g.inner.ListPlayers(ctx)
	})
}

func (g *Gateway) ListFinances(ctx context.Context) ([]roster.TeamFinance, error) {
	return read(ctx, g, "ListFinances", func() ([]roster.TeamFinance, error) {
		return g.inner.ListFinances(ctx)
	})
}

func (g *Gateway) ListTransactions(ctx context.Context) ([]roster.Transaction, error) {
	return read(ctx, g, "ListTransactions", func() ([]roster.Transaction, error) {
		return g.inner.ListTransactions(ctx)
	})
}

func (g *Gateway) InsertPlayer(ctx context.Context, p roster.Player) error {
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.inner.InsertPlayer(ctx, p)
	})
	return err
}

func (g *Gateway) UpdatePlayer(ctx context.Context, p roster.Player) error {
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.inner.UpdatePlayer(ctx, p)
	})
	return err
}

func (g *Gateway) UpdatePlayerTeam(ctx context.Context, id string, team roster.Group) error {
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.inner.UpdatePlayerTeam(ctx, id, team)
	})
	return err
}

func (g *Gateway) DeletePlayer(ctx context.Context, id string) error {
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.inner.DeletePlayer(ctx, id)
	})
	return err
}

func (g *Gateway) InsertTransaction(ctx context.Context, tx roster.Transaction) (int64, error) {
	return execute(g, func() (int64, error) {
		return g.inner.InsertTransaction(ctx, tx)
	})
}

func (g *Gateway) UpdateBalance(ctx context.Context, team roster.Group, balance float64) error {
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.inner.UpdateBalance(ctx, team, balance)
	})
	return err
}

// Ping bypasses the breaker so health checks see the real store state.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

func (a *AtomicGateway) ApplyPlan(ctx context.Context, plan roster.Plan) (roster.Plan, error) {
	return execute(a.Gateway, func() (roster.Plan, error) {
		return a.applier.ApplyPlan(ctx, plan)
	})
}
