package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/store"
)

// TransactionRepository handles the ledger
type TransactionRepository struct {
	db *store.Database
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *store.Database) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetAll returns the ledger, most recent first
func (r *TransactionRepository) GetAll(ctx context.Context) ([]*store.Transaction, error) {
	query := `
		SELECT id, date, type, team, amount, info, created_at
		FROM transactions
		ORDER BY id DESC
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*store.Transaction
	for rows.Next() {
		t := &store.Transaction{}
		if err := rows.Scan(&t.ID, &t.Date, &t.Type, &t.Team, &t.Amount, &t.Info, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// Insert appends a ledger entry and returns its id
func (r *TransactionRepository) Insert(ctx context.Context, tx roster.Transaction) (int64, error) {
	return insertTransaction(ctx, r.db.DB(), tx)
}

func insertTransaction(ctx context.Context, q querier, tx roster.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions (date, type, team, amount, info)
		VALUES ($1::date, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := q.QueryRowContext(ctx, query, tx.Date, string(tx.Type), string(tx.Team), tx.Amount, tx.Info).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}
	return id, nil
}
