package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/store"
)

var (
	_ roster.Gateway       = (*Gateway)(nil)
	_ roster.AtomicApplier = (*Gateway)(nil)
)

// Gateway implements roster.Gateway on top of the PostgreSQL repositories.
type Gateway struct {
	db           *store.Database
	players      *PlayerRepository
	finances     *FinanceRepository
	transactions *TransactionRepository
}

// NewGateway wires the repositories over one database.
func NewGateway(db *store.Database) *Gateway {
	return &Gateway{
		db:           db,
		players:      NewPlayerRepository(db),
		finances:     NewFinanceRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

func (g *Gateway) ListPlayers(ctx context.Context) ([]roster.Player, error) {
	rows, err := g.players.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]roster.Player, 0, len(rows))
	for _, row := range rows {
		players = append(players, row.ToDomain())
	}
	return players, nil
}

func (g *Gateway) ListFinances(ctx context.Context) ([]roster.TeamFinance, error) {
	rows, err := g.finances.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	finances := make([]roster.TeamFinance, 0, len(rows))
	for _, row := range rows {
		finances = append(finances, row.ToDomain())
	}
	return finances, nil
}

func (g *Gateway) ListTransactions(ctx context.Context) ([]roster.Transaction, error) {
	rows, err := g.transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	transactions := make([]roster.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, row.ToDomain())
	}
	return transactions, nil
}

func (g *Gateway) InsertPlayer(ctx context.Context, p roster.Player) error {
	return g.players.Insert(ctx, p)
}

func (g *Gateway) UpdatePlayer(ctx context.Context, p roster.Player) error {
	return g.players.Update(ctx, p)
}

func (g *Gateway) UpdatePlayerTeam(ctx context.Context, id string, team roster.Group) error {
	return g.players.UpdateTeam(ctx, id, team)
}

func (g *Gateway) DeletePlayer(ctx context.Context, id string) error {
	return g.players.Delete(ctx, id)
}

func (g *Gateway) InsertTransaction(ctx context.Context, tx roster.Transaction) (int64, error) {
	return g.transactions.Insert(ctx, tx)
}

func (g *Gateway) UpdateBalance(ctx context.Context, team roster.Group, balance float64) error {
	return g.finances.SetBalance(ctx, team, balance)
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.HealthCheck(ctx)
}

// ApplyPlan performs every write of plan in one SQL transaction. The finance
// row is locked and the balance is computed server-side from its current
// value, so concurrent plans against the same team cannot lose an update.
// Purchases and creations into an active team re-check the funds guard
// against the locked balance. Recorded transactions are never guarded.
func (g *Gateway) ApplyPlan(ctx context.Context, plan roster.Plan) (roster.Plan, error) {
	tx, err := g.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return roster.Plan{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	applied := plan

	if plan.Balance != nil {
		current, err := lockBalance(ctx, tx, plan.Balance.Team)
		if err != nil {
			return roster.Plan{}, err
		}
		if guarded(plan) && plan.Balance.Delta < 0 {
			if current < -plan.Balance.Delta {
				return roster.Plan{}, &roster.InsufficientFundsError{
					Team:     plan.Balance.Team,
					Balance:  current,
					Required: -plan.Balance.Delta,
				}
			}
		}
		change := *plan.Balance
		change.Balance = current + change.Delta
		applied.Balance = &change
	}

	if plan.Transaction != nil {
		id, err := insertTransaction(ctx, tx, *plan.Transaction)
		if err != nil {
			return roster.Plan{}, err
		}
		posted := *plan.Transaction
		posted.ID = id
		applied.Transaction = &posted
	}

	if applied.Balance != nil {
		if err := setBalance(ctx, tx, applied.Balance.Team, applied.Balance.Balance); err != nil {
			return roster.Plan{}, err
		}
	}

	if plan.Player != nil {
		switch plan.Kind {
		case roster.KindCreate:
			err = insertPlayer(ctx, tx, *plan.Player)
		default:
			err = updatePlayerTeam(ctx, tx, plan.Player.ID, plan.Player.Team)
		}
		if err != nil {
			return roster.Plan{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return roster.Plan{}, fmt.Errorf("committing plan: %w", err)
	}
	return applied, nil
}

// guarded reports whether plan is subject to the funds guard.
func guarded(plan roster.Plan) bool {
	return plan.Kind == roster.KindPurchase || plan.Kind == roster.KindCreate
}
