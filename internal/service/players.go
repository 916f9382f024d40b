package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/roster"
)

// SavePlayer creates the player when it has no id and updates it otherwise.
// Edits change name, position and value; the group only changes through
// Transfer, so an edit keeps the group the player is in.
func (s *RosterService) SavePlayer(ctx context.Context, p roster.Player) (roster.Player, error) {
	if p.ID == "" {
		plan, err := s.CreatePlayer(ctx, p)
		if err != nil {
			return roster.Player{}, err
		}
		return *plan.Player, nil
	}

	existing, ok := s.state.Snapshot().Find(p.ID)
	if !ok {
		return roster.Player{}, fmt.Errorf("saving player %s: %w", p.ID, roster.ErrPlayerNotFound)
	}
	p.Team = existing.Team
	if err := roster.ValidatePlayer(p); err != nil {
		s.reject(err)
		return roster.Player{}, err
	}

	if err := s.gateway.UpdatePlayer(ctx, p); err != nil {
		s.logger.Error("failed to save player", zap.String("player_id", p.ID), zap.Error(err))
		return roster.Player{}, fmt.Errorf("saving player %s: %w", p.ID, err)
	}

	s.state.Upsert(p)
	s.logger.Info("player saved", zap.String("player_id", p.ID))
	s.publish(ctx, roster.Event{
		Type:       roster.EventPlayerUpdated,
		PlayerID:   p.ID,
		Player:     &p,
		OccurredAt: s.now(),
	})
	return p, nil
}

// DeletePlayer removes a player by id. Players on an active team must be
// moved to the former players first.
func (s *RosterService) DeletePlayer(ctx context.Context, id string) error {
	if existing, ok := s.state.Snapshot().Find(id); ok && existing.Team.IsActive() {
		err := fmt.Errorf("%w: %s is on %s", roster.ErrPlayerOnActiveTeam, existing.Name, existing.Team)
		s.reject(err)
		return err
	}

	if err := s.gateway.DeletePlayer(ctx, id); err != nil {
		s.logger.Error("failed to delete player", zap.String("player_id", id), zap.Error(err))
		return fmt.Errorf("deleting player %s: %w", id, err)
	}

	s.state.Remove(id)
	s.logger.Info("player deleted", zap.String("player_id", id))
	s.publish(ctx, roster.Event{
		Type:       roster.EventPlayerDeleted,
		PlayerID:   id,
		OccurredAt: s.now(),
	})
	return nil
}
