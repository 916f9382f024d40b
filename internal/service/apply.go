package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/roster"
)

// Apply steps, in write order.
const (
	StepTransaction = "transaction"
	StepBalance     = "balance"
	StepPlayer      = "player"
)

// PartialApplyError reports a plan whose writes stopped part way. Completed
// lists the steps that were persisted and mirrored into memory.
type PartialApplyError struct {
	Kind      roster.PlanKind
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("%s plan stopped at %s after [%s]: %v",
		e.Kind, e.Failed, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialApplyError) Unwrap() error {
	return e.Err
}

// apply persists plan and then folds it into the in-memory state. Gateways
// that implement roster.AtomicApplier perform all writes in one call.
// Otherwise the writes run in order transaction, balance, player.
func (s *RosterService) apply(ctx context.Context, plan roster.Plan) (roster.Plan, error) {
	if applier, ok := s.gateway.(roster.AtomicApplier); ok {
		applied, err := applier.ApplyPlan(ctx, plan)
		if err != nil {
			return roster.Plan{}, err
		}
		s.state.Apply(applied)
		s.observeApplied(applied)
		return applied, nil
	}

	var (
		applied   = roster.Plan{Kind: plan.Kind, From: plan.From}
		completed []string
	)
	fail := func(step string, err error) (roster.Plan, error) {
		if len(completed) == 0 {
			return roster.Plan{}, err
		}
		// mirror what did reach the store
		s.state.Apply(applied)
		if s.metrics != nil {
			s.metrics.PartialApplies.Inc()
		}
		perr := &PartialApplyError{Kind: plan.Kind, Completed: completed, Failed: step, Err: err}
		s.logger.Error("plan partially applied", zap.Strings("completed", completed), zap.String("failed", step), zap.Error(err))
		return roster.Plan{}, perr
	}

	if plan.Transaction != nil {
		id, err := s.gateway.InsertTransaction(ctx, *plan.Transaction)
		if err != nil {
			return fail(StepTransaction, fmt.Errorf("recording transaction: %w", err))
		}
		tx := *plan.Transaction
		tx.ID = id
		applied.Transaction = &tx
		completed = append(completed, StepTransaction)
	}

	if plan.Balance != nil {
		if err := s.gateway.UpdateBalance(ctx, plan.Balance.Team, plan.Balance.Balance); err != nil {
			return fail(StepBalance, fmt.Errorf("updating balance: %w", err))
		}
		change := *plan.Balance
		applied.Balance = &change
		completed = append(completed, StepBalance)
	}

	if plan.Player != nil {
		var err error
		if plan.Kind == roster.KindCreate {
			err = s.gateway.InsertPlayer(ctx, *plan.Player)
		} else {
			err = s.gateway.UpdatePlayerTeam(ctx, plan.Player.ID, plan.Player.Team)
		}
		if err != nil {
			return fail(StepPlayer, fmt.Errorf("writing player: %w", err))
		}
		p := *plan.Player
		applied.Player = &p
	}

	s.state.Apply(applied)
	s.observeApplied(applied)
	return applied, nil
}
