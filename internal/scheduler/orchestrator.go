package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/reconciliation"
	"github.com/fortuna/roster/internal/service"
)

// Loader refreshes the in-memory roster from the store.
type Loader interface {
	Load(ctx context.Context) service.LoadReport
}

// Auditor checks stored balances against the ledger.
type Auditor interface {
	Audit(ctx context.Context) (reconciliation.Report, error)
}

// Orchestrator runs the periodic reload and audit tasks.
type Orchestrator struct {
	loader  Loader
	auditor Auditor
	config  *Config
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	status Status
}

// Config holds scheduler configuration
type Config struct {
	ReloadInterval time.Duration // Default: 5m
	AuditInterval  time.Duration // Default: 15m
	EnableReload   bool          // Default: true
	EnableAudit    bool          // Default: true
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		ReloadInterval: 5 * time.Minute,
		AuditInterval:  15 * time.Minute,
		EnableReload:   true,
		EnableAudit:    true,
	}
}

// Status is a point-in-time view of the scheduled tasks.
type Status struct {
	Reloads            int       `json:"reloads"`
	ConsecutiveFailure int       `json:"consecutive_failed_reloads"`
	LastReload         time.Time `json:"last_reload"`
	Audits             int       `json:"audits"`
	LastAudit          time.Time `json:"last_audit"`
	LastAuditClean     bool      `json:"last_audit_consistent"`
}

// NewOrchestrator creates a scheduler. auditor may be nil, which disables
// the audit task.
func NewOrchestrator(loader Loader, auditor Auditor, config *Config, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		loader:  loader,
		auditor: auditor,
		config:  config,
		logger:  logger.Named("scheduler"),
	}
}

// Start runs the enabled tasks and blocks until ctx is cancelled or Stop is
// called. A task with a non-positive interval does not run.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	o.logger.Info("scheduler starting",
		zap.Bool("reload", o.config.EnableReload),
		zap.Duration("reload_interval", o.config.ReloadInterval),
		zap.Bool("audit", o.config.EnableAudit && o.auditor != nil),
		zap.Duration("audit_interval", o.config.AuditInterval))

	if o.config.EnableReload && o.config.ReloadInterval > 0 {
		o.wg.Add(1)
		go o.every(ctx, o.config.ReloadInterval, o.reload)
	}
	if o.config.EnableAudit && o.auditor != nil && o.config.AuditInterval > 0 {
		o.wg.Add(1)
		go o.every(ctx, o.config.AuditInterval, o.audit)
	}

	<-ctx.Done()
	o.wg.Wait()
	o.logger.Info("scheduler stopped")
}

// Stop cancels all tasks. Start returns once they have finished.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) every(ctx context.Context, interval time.Duration, task func(context.Context)) {
	defer o.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

func (o *Orchestrator) reload(ctx context.Context) {
	report := o.loader.Load(ctx)

	o.mu.Lock()
	o.status.Reloads++
	o.status.LastReload = time.Now()
	if report.Failed() {
		o.status.ConsecutiveFailure++
	} else {
		o.status.ConsecutiveFailure = 0
	}
	failures := o.status.ConsecutiveFailure
	o.mu.Unlock()

	if failures > 0 {
		o.logger.Warn("scheduled reload failed", zap.Int("consecutive_failures", failures))
	}
}

func (o *Orchestrator) audit(ctx context.Context) {
	report, err := o.auditor.Audit(ctx)
	if err != nil {
		// already logged by the engine
		return
	}

	o.mu.Lock()
	o.status.Audits++
	o.status.LastAudit = report.CheckedAt
	o.status.LastAuditClean = report.Consistent()
	o.mu.Unlock()
}
