package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/roster"
)

// Transfer moves a player to destination, posting a sale or purchase when the
// player crosses the active-team boundary. An unknown player id is a no-op.
// A non-empty requestKey makes retried submissions apply at most once.
func (s *RosterService) Transfer(ctx context.Context, playerID string, destination roster.Group, requestKey string) (roster.Plan, error) {
	fingerprint := fmt.Sprintf("transfer:%s:%s", playerID, destination)
	return s.idempotent(ctx, requestKey, fingerprint, func() (roster.Plan, error) {
		return s.transfer(ctx, playerID, destination)
	})
}

func (s *RosterService) transfer(ctx context.Context, playerID string, destination roster.Group) (roster.Plan, error) {
	plan, err := roster.PlanTransfer(s.state.Snapshot(), playerID, destination, s.today())
	if err != nil {
		s.reject(err)
		s.logger.Info("transfer rejected",
			zap.String("player_id", playerID),
			zap.String("to", string(destination)),
			zap.Error(err))
		return roster.Plan{}, err
	}
	if plan.Kind == roster.KindNoop {
		s.logger.Debug("transfer of unknown player ignored", zap.String("player_id", playerID))
		return plan, nil
	}

	applied, err := s.apply(ctx, plan)
	if err != nil {
		if errors.Is(err, roster.ErrInsufficientFunds) {
			s.reject(err)
		}
		s.logger.Error("transfer failed",
			zap.String("player_id", playerID),
			zap.String("from", string(plan.From)),
			zap.String("to", string(destination)),
			zap.Error(err))
		return roster.Plan{}, fmt.Errorf("transferring player %s: %w", playerID, err)
	}

	fields := []zap.Field{
		zap.String("player_id", playerID),
		zap.String("kind", string(applied.Kind)),
		zap.String("from", string(applied.From)),
		zap.String("to", string(destination)),
	}
	if applied.Transaction != nil {
		fields = append(fields, zap.Float64("amount", applied.Transaction.Amount))
	}
	s.logger.Info("player transferred", fields...)

	s.publish(ctx, roster.EventFromPlan(roster.EventPlayerTransferred, applied, s.now()))
	return applied, nil
}

// CreatePlayer adds a new player. Creating into an active team is a purchase:
// it is guarded by the team balance and posts the transaction before the
// player row is written.
func (s *RosterService) CreatePlayer(ctx context.Context, p roster.Player) (roster.Plan, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}

	plan, err := roster.PlanCreate(s.state.Snapshot(), p, s.today())
	if err != nil {
		s.reject(err)
		return roster.Plan{}, err
	}

	applied, err := s.apply(ctx, plan)
	if err != nil {
		if errors.Is(err, roster.ErrInsufficientFunds) {
			s.reject(err)
		}
		s.logger.Error("failed to create player", zap.String("player_id", p.ID), zap.Error(err))
		return roster.Plan{}, fmt.Errorf("creating player: %w", err)
	}

	s.logger.Info("player created",
		zap.String("player_id", p.ID),
		zap.String("team", string(p.Team)),
		zap.Bool("purchase", applied.Financial()))
	s.publish(ctx, roster.EventFromPlan(roster.EventPlayerCreated, applied, s.now()))
	return applied, nil
}

// RecordTransaction posts a free-form ledger entry against an active team and
// moves its balance by amount.
func (s *RosterService) RecordTransaction(ctx context.Context, team roster.Group, txType roster.TransactionType, amount float64, info string) (roster.Plan, error) {
	plan, err := roster.PlanRecord(s.state.Snapshot(), team, txType, amount, info, s.today())
	if err != nil {
		s.reject(err)
		return roster.Plan{}, err
	}

	applied, err := s.apply(ctx, plan)
	if err != nil {
		s.logger.Error("failed to record transaction",
			zap.String("team", string(team)),
			zap.String("type", string(txType)),
			zap.Error(err))
		return roster.Plan{}, fmt.Errorf("recording transaction: %w", err)
	}

	s.logger.Info("transaction recorded",
		zap.String("team", string(team)),
		zap.String("type", string(txType)),
		zap.Float64("amount", amount))
	s.publish(ctx, roster.EventFromPlan(roster.EventTransaction, applied, s.now()))
	return applied, nil
}

// idempotent runs fn at most once per key. A replayed key returns the stored
// result, provided it carries the same fingerprint. When the key store is
// unreachable fn runs without deduplication.
func (s *RosterService) idempotent(ctx context.Context, key, fingerprint string, fn func() (roster.Plan, error)) (roster.Plan, error) {
	if key == "" || s.idem == nil {
		return fn()
	}

	claimed, err := s.idem.Claim(ctx, key, fingerprint)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, applying without deduplication", zap.Error(err))
		return fn()
	}

	if !claimed {
		entry, found, err := s.idem.Lookup(ctx, key)
		if err != nil {
			return roster.Plan{}, err
		}
		if found && entry.Fingerprint != fingerprint {
			s.logger.Info("request key reused for a different request",
				zap.String("request_key", key),
				zap.String("fingerprint", fingerprint),
				zap.String("stored_fingerprint", entry.Fingerprint))
			return roster.Plan{}, fmt.Errorf("%w: %s", ErrRequestKeyReused, key)
		}
		if !found || !entry.Done {
			return roster.Plan{}, ErrRequestInProgress
		}
		var plan roster.Plan
		if err := json.Unmarshal(entry.Result, &plan); err != nil {
			return roster.Plan{}, fmt.Errorf("decoding stored result: %w", err)
		}
		s.logger.Info("replayed request", zap.String("request_key", key), zap.String("kind", string(plan.Kind)))
		return plan, nil
	}

	plan, err := fn()
	if err != nil {
		// a partial write must not be retried under the same key
		var partial *PartialApplyError
		if !errors.As(err, &partial) {
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				s.logger.Warn("failed to release request key", zap.String("request_key", key), zap.Error(rerr))
			}
		}
		return roster.Plan{}, err
	}

	data, err := json.Marshal(plan)
	if err == nil {
		err = s.idem.Complete(ctx, key, fingerprint, data)
	}
	if err != nil {
		s.logger.Warn("failed to store request result", zap.String("request_key", key), zap.Error(err))
	}
	return plan, nil
}
