package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/store"
)

// FinanceRepository handles team balance data access
type FinanceRepository struct {
	db *store.Database
}

// NewFinanceRepository creates a new finance repository
func NewFinanceRepository(db *store.Database) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// GetAll returns every finance row
func (r *FinanceRepository) GetAll(ctx context.Context) ([]*store.Finance, error) {
	query := `
		SELECT team, balance, updated_at
		FROM finances
		ORDER BY team
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying finances: %w", err)
	}
	defer rows.Close()

	var finances []*store.Finance
	for rows.Next() {
		f := &store.Finance{}
		if err := rows.Scan(&f.Team, &f.Balance, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning finance: %w", err)
		}
		finances = append(finances, f)
	}

	return finances, rows.Err()
}

// SetBalance stores the absolute balance of a team, creating the row if needed
func (r *FinanceRepository) SetBalance(ctx context.Context, team roster.Group, balance float64) error {
	return setBalance(ctx, r.db.DB(), team, balance)
}

func setBalance(ctx context.Context, q querier, team roster.Group, balance float64) error {
	query := `
		INSERT INTO finances (team, balance)
		VALUES ($1, $2)
		ON CONFLICT (team) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = NOW()
	`

	if _, err := q.ExecContext(ctx, query, string(team), balance); err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	return nil
}

// lockBalance reads the balance of team inside tx and holds the row lock
// until commit. A missing row is created with balance 0.
func lockBalance(ctx context.Context, tx *sql.Tx, team roster.Group) (float64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO finances (team, balance) VALUES ($1, 0) ON CONFLICT (team) DO NOTHING`,
		string(team)); err != nil {
		return 0, fmt.Errorf("ensuring finance row: %w", err)
	}

	var balance float64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM finances WHERE team = $1 FOR UPDATE`,
		string(team)).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("locking finance row: %w", err)
	}
	return balance, nil
}
