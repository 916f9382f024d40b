package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/roster"
)

// Load sources.
const (
	SourcePlayers      = "players"
	SourceFinances     = "finances"
	SourceTransactions = "transactions"
)

// LoadReport describes the outcome of a load. A failed source keeps the data
// that was held before the load.
type LoadReport struct {
	Players      error
	Finances     error
	Transactions error

	// Dropped counts player rows with an unknown group tag.
	Dropped int

	// DatabaseReachable is only meaningful when Failed is true.
	DatabaseReachable bool
}

// Failed reports whether no source could be loaded.
func (r LoadReport) Failed() bool {
	return r.Players != nil && r.Finances != nil && r.Transactions != nil
}

// Errors returns the per-source errors that occurred, keyed by source.
func (r LoadReport) Errors() map[string]error {
	errs := make(map[string]error)
	if r.Players != nil {
		errs[SourcePlayers] = r.Players
	}
	if r.Finances != nil {
		errs[SourceFinances] = r.Finances
	}
	if r.Transactions != nil {
		errs[SourceTransactions] = r.Transactions
	}
	return errs
}

// Load reads players, finances and transactions concurrently. Each source is
// independent: a failure is logged as a warning and does not stop the others.
func (s *RosterService) Load(ctx context.Context) LoadReport {
	var (
		report LoadReport
		wg     sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		players, err := s.gateway.ListPlayers(ctx)
		if err != nil {
			report.Players = err
			return
		}
		report.Dropped = s.state.ReplacePlayers(players)
	}()
	go func() {
		defer wg.Done()
		finances, err := s.gateway.ListFinances(ctx)
		if err != nil {
			report.Finances = err
			return
		}
		s.state.ReplaceFinances(finances)
	}()
	go func() {
		defer wg.Done()
		transactions, err := s.gateway.ListTransactions(ctx)
		if err != nil {
			report.Transactions = err
			return
		}
		s.state.ReplaceTransactions(transactions)
	}()
	wg.Wait()
	defer func() { s.rememberLoad(report) }()

	for source, err := range report.Errors() {
		s.logger.Warn("failed to load, keeping previous data", zap.String("source", source), zap.Error(err))
		if s.metrics != nil {
			s.metrics.LoadFailures.WithLabelValues(source).Inc()
		}
	}
	if report.Dropped > 0 {
		s.logger.Warn("dropped players with unknown group", zap.Int("count", report.Dropped))
	}

	if report.Failed() {
		report.DatabaseReachable = s.gateway.Ping(ctx) == nil
		s.logger.Error("roster load failed", zap.Bool("database_reachable", report.DatabaseReachable))
		return report
	}

	s.observeBalances()
	snap := s.state.Snapshot()
	s.logger.Info("roster loaded",
		zap.Int(string(roster.GroupTeamA), len(snap.Players(roster.GroupTeamA))),
		zap.Int(string(roster.GroupTeamB), len(snap.Players(roster.GroupTeamB))),
		zap.Int(string(roster.GroupFormer), len(snap.Players(roster.GroupFormer))),
		zap.Int("transactions", len(snap.Transactions)))
	s.publish(ctx, roster.Event{Type: roster.EventReloaded, OccurredAt: s.now()})
	return report
}

// LastLoad returns the report of the most recent load.
func (s *RosterService) LastLoad() (LoadReport, bool) {
	s.loadMu.RLock()
	defer s.loadMu.RUnlock()
	return s.lastLoad, s.loaded
}

func (s *RosterService) rememberLoad(report LoadReport) {
	s.loadMu.Lock()
	s.lastLoad = report
	s.loaded = true
	s.loadMu.Unlock()
}
