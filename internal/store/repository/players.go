package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PlayerRepository handles player data access
type PlayerRepository struct {
	db *store.Database
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *store.Database) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// GetAll returns all players in insertion order
func (r *PlayerRepository) GetAll(ctx context.Context) ([]*store.Player, error) {
	query := `
		SELECT id, name, position, value, team, created_at, updated_at
		FROM players
		ORDER BY created_at, id
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	defer rows.Close()

	return r.scanPlayers(rows)
}

// Insert adds a new player row
func (r *PlayerRepository) Insert(ctx context.Context, p roster.Player) error {
	return insertPlayer(ctx, r.db.DB(), p)
}

// Update overwrites the editable fields of a player
func (r *PlayerRepository) Update(ctx context.Context, p roster.Player) error {
	query := `
		UPDATE players
		SET name = $2, position = $3, value = $4, team = $5, updated_at = NOW()
		WHERE id = $1
	`

	res, err := r.db.DB().ExecContext(ctx, query, p.ID, p.Name, string(p.Position), p.Value.Float(), string(p.Team))
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", roster.ErrPlayerNotFound, p.ID)
	}
	return nil
}

// UpdateTeam moves a player to another group. A missing id is not an error.
func (r *PlayerRepository) UpdateTeam(ctx context.Context, id string, team roster.Group) error {
	return updatePlayerTeam(ctx, r.db.DB(), id, team)
}

// Delete removes a player by ID
func (r *PlayerRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	return nil
}

// scanPlayers is a helper to scan multiple player rows
func (r *PlayerRepository) scanPlayers(rows *sql.Rows) ([]*store.Player, error) {
	var players []*store.Player

	for rows.Next() {
		player := &store.Player{}
		err := rows.Scan(
			&player.ID, &player.Name, &player.Position, &player.Value, &player.Team,
			&player.CreatedAt, &player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, player)
	}

	return players, rows.Err()
}

func insertPlayer(ctx context.Context, q querier, p roster.Player) error {
	query := `
		INSERT INTO players (id, name, position, value, team)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := q.ExecContext(ctx, query, p.ID, p.Name, string(p.Position), p.Value.Float(), string(p.Team)); err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

func updatePlayerTeam(ctx context.Context, q querier, id string, team roster.Group) error {
	query := `UPDATE players SET team = $2, updated_at = NOW() WHERE id = $1`

	if _, err := q.ExecContext(ctx, query, id, string(team)); err != nil {
		return fmt.Errorf("moving player: %w", err)
	}
	return nil
}
