package roster

import "context"

// Gateway is the persistence boundary for players, finances and the
// transaction log. Implementations own their retry and connectivity policy.
type Gateway interface {
	// ListPlayers returns every player row.
	ListPlayers(ctx context.Context) ([]Player, error)

	// ListFinances returns one row per active team that has a record.
	ListFinances(ctx context.Context) ([]TeamFinance, error)

	// ListTransactions returns the log, most recent first.
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// InsertPlayer appends a player row. The id must be set.
	InsertPlayer(ctx context.Context, p Player) error

	// UpdatePlayer overwrites name, position, value and team by id.
	// Returns ErrPlayerNotFound if no row matches.
	UpdatePlayer(ctx context.Context, p Player) error

	// UpdatePlayerTeam sets the team of the row matching id.
	UpdatePlayerTeam(ctx context.Context, id string, team Group) error

	// DeletePlayer removes the row matching id.
	DeletePlayer(ctx context.Context, id string) error

	// InsertTransaction appends a ledger entry and returns its id.
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)

	// UpdateBalance sets the balance of the finance row matching team.
	UpdateBalance(ctx context.Context, team Group, balance float64) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// AtomicApplier is implemented by gateways that can perform every write of a
// plan in one server-side transaction. The returned plan carries the stored
// transaction id and the balance actually persisted.
type AtomicApplier interface {
	ApplyPlan(ctx context.Context, plan Plan) (Plan, error)
}
