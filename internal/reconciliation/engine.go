package reconciliation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/metrics"
	"github.com/fortuna/roster/internal/roster"
)

// driftTolerance absorbs float64 rounding in long ledgers.
const driftTolerance = 0.005

// Engine audits the stored roster: every team balance must equal its opening
// balance plus the sum of its ledger, and every player must sit where its
// latest sale or purchase put it.
type Engine struct {
	gateway roster.Gateway
	opening map[roster.Group]float64
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats
	last  *Report
}

// Stats tracks audit runs.
type Stats struct {
	TotalAudits int       `json:"total_audits"`
	Failures    int       `json:"failures"`
	LastAudit   time.Time `json:"last_audit"`
}

// TeamAudit is the balance check of one active team.
type TeamAudit struct {
	Team      roster.Group `json:"team"`
	Balance   float64      `json:"balance"`
	Opening   float64      `json:"opening"`
	LedgerSum float64      `json:"ledger_sum"`
	Drift     float64      `json:"drift"`
}

// Consistent reports whether the balance matches the ledger.
func (a TeamAudit) Consistent() bool {
	return math.Abs(a.Drift) <= driftTolerance
}

// Report is the outcome of one audit.
type Report struct {
	CheckedAt time.Time   `json:"checked_at"`
	Teams     []TeamAudit `json:"teams"`
	Misplaced []Misplaced `json:"misplaced"`
}

// Consistent reports whether the audit found nothing.
func (r Report) Consistent() bool {
	for _, t := range r.Teams {
		if !t.Consistent() {
			return false
		}
	}
	return len(r.Misplaced) == 0
}

// NewEngine creates an audit engine. opening holds the opening balance per
// active team; a missing team opens at zero.
func NewEngine(gateway roster.Gateway, opening map[roster.Group]float64, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := make(map[roster.Group]float64, len(opening))
	for team, balance := range opening {
		o[team] = balance
	}
	return &Engine{
		gateway: gateway,
		opening: o,
		metrics: m,
		logger:  logger.Named("reconciliation"),
	}
}

// Audit reads players, finances and the ledger from the gateway and checks
// them against each other.
func (e *Engine) Audit(ctx context.Context) (Report, error) {
	report, err := e.audit(ctx)

	e.mu.Lock()
	e.stats.TotalAudits++
	e.stats.LastAudit = time.Now()
	if err != nil {
		e.stats.Failures++
	} else {
		e.last = &report
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("audit failed", zap.Error(err))
		return Report{}, err
	}

	e.observe(report)
	if report.Consistent() {
		e.logger.Info("audit passed")
	} else {
		for _, t := range report.Teams {
			if !t.Consistent() {
				e.logger.Warn("balance drift",
					zap.String("team", string(t.Team)),
					zap.Float64("balance", t.Balance),
					zap.Float64("expected", t.Opening+t.LedgerSum),
					zap.Float64("drift", t.Drift))
			}
		}
		for _, m := range report.Misplaced {
			e.logger.Warn("misplaced player",
				zap.String("player_id", m.PlayerID),
				zap.String("team", string(m.Team)),
				zap.String("expected", string(m.Expected)))
		}
	}
	return report, nil
}

func (e *Engine) audit(ctx context.Context) (Report, error) {
	players, err := e.gateway.ListPlayers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading players: %w", err)
	}
	finances, err := e.gateway.ListFinances(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading finances: %w", err)
	}
	transactions, err := e.gateway.ListTransactions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading transactions: %w", err)
	}

	return Check(players, finances, transactions, e.opening, time.Now()), nil
}

// Check audits the given rows. transactions are most recent first.
func Check(players []roster.Player, finances []roster.TeamFinance, transactions []roster.Transaction, opening map[roster.Group]float64, at time.Time) Report {
	balances := make(map[roster.Group]float64, len(finances))
	for _, f := range finances {
		balances[f.Team] = f.Balance
	}
	sums := make(map[roster.Group]float64)
	for _, tx := range transactions {
		sums[tx.Team] += tx.Amount
	}

	report := Report{CheckedAt: at, Misplaced: []Misplaced{}}
	for _, team := range roster.ActiveTeams {
		audit := TeamAudit{
			Team:      team,
			Balance:   balances[team],
			Opening:   opening[team],
			LedgerSum: sums[team],
		}
		audit.Drift = audit.Balance - (audit.Opening + audit.LedgerSum)
		report.Teams = append(report.Teams, audit)
	}
	report.Misplaced = findMisplaced(players, transactions)
	return report
}

// Last returns the most recent successful report.
func (e *Engine) Last() (Report, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Report{}, false
	}
	return *e.last, true
}

// GetStats returns audit statistics.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) observe(report Report) {
	if e.metrics == nil {
		return
	}
	for _, t := range report.Teams {
		e.metrics.BalanceDrift.WithLabelValues(string(t.Team)).Set(t.Drift)
	}
	e.metrics.MisplacedPlayers.Set(float64(len(report.Misplaced)))
}
