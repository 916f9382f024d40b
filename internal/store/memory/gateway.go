package memory

import (
	"context"
	"sync"

	"github.com/fortuna/roster/internal/roster"
)

// Operation names used for fault injection and the write journal.
const (
	OpListPlayers       = "ListPlayers"
	OpListFinances      = "ListFinances"
	OpListTransactions  = "ListTransactions"
	OpInsertPlayer      = "InsertPlayer"
	OpUpdatePlayer      = "UpdatePlayer"
	OpUpdatePlayerTeam  = "UpdatePlayerTeam"
	OpDeletePlayer      = "DeletePlayer"
	OpInsertTransaction = "InsertTransaction"
	OpUpdateBalance     = "UpdateBalance"
	OpPing              = "Ping"
)

var _ roster.Gateway = (*Gateway)(nil)

// Gateway is an in-memory implementation of roster.Gateway. Rows are stored
// by value and copied on return. Errors can be injected per operation.
type Gateway struct {
	mu           sync.RWMutex
	players      []roster.Player
	finances     map[roster.Group]float64
	transactions []roster.Transaction
	nextTxID     int64

	faults  map[string]error
	journal []string
}

// NewGateway returns a gateway holding a finance row of zero for both teams.
func NewGateway() *Gateway {
	return &Gateway{
		finances: map[roster.Group]float64{
			roster.GroupTeamA: 0,
			roster.GroupTeamB: 0,
		},
		faults: make(map[string]error),
	}
}

// Seed replaces all stored rows. Transactions are given in log order, most
// recent first, and keep their ids.
func (g *Gateway) Seed(players []roster.Player, finances []roster.TeamFinance, transactions []roster.Transaction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.players = append([]roster.Player(nil), players...)
	g.finances = make(map[roster.Group]float64, len(finances))
	for _, f := range finances {
		g.finances[f.Team] = f.Balance
	}
	g.transactions = make([]roster.Transaction, 0, len(transactions))
	g.nextTxID = 0
	// stored oldest first
	for i := len(transactions) - 1; i >= 0; i-- {
		tx := transactions[i]
		if tx.ID > g.nextTxID {
			g.nextTxID = tx.ID
		}
		g.transactions = append(g.transactions, tx)
	}
}

// Fail makes every call of op return err until cleared with a nil err.
func (g *Gateway) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.faults, op)
		return
	}
	g.faults[op] = err
}

// Journal returns the successful write operations in call order.
func (g *Gateway) Journal() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.journal...)
}

// Balance returns the stored balance of team.
func (g *Gateway) Balance(team roster.Group) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.finances[team]
	return b, ok
}

func (g *Gateway) fault(op string) error {
	return g.faults[op]
}

func (g *Gateway) ListPlayers(_ context.Context) ([]roster.Player, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.fault(OpListPlayers); err != nil {
		return nil, err
	}
	return append([]roster.Player{}, g.players...), nil
}

func (g *Gateway) ListFinances(_ context.Context) ([]roster.TeamFinance, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.fault(OpListFinances); err != nil {
		return nil, err
	}
	finances := make([]roster.TeamFinance, 0, len(g.finances))
	for _, team := range roster.ActiveTeams {
		if balance, ok := g.finances[team]; ok {
			finances = append(finances, roster.TeamFinance{Team: team, Balance: balance})
		}
	}
	return finances, nil
}

func (g *Gateway) ListTransactions(_ context.Context) ([]roster.Transaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.fault(OpListTransactions); err != nil {
		return nil, err
	}
	result := make([]roster.Transaction, 0, len(g.transactions))
	for i := len(g.transactions) - 1; i >= 0; i-- {
		result = append(result, g.transactions[i])
	}
	return result, nil
}

func (g *Gateway) InsertPlayer(_ context.Context, p roster.Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpInsertPlayer); err != nil {
		return err
	}
	g.players = append(g.players, p)
	g.journal = append(g.journal, OpInsertPlayer)
	return nil
}

func (g *Gateway) UpdatePlayer(_ context.Context, p roster.Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpUpdatePlayer); err != nil {
		return err
	}
	for i := range g.players {
		if g.players[i].ID == p.ID {
			g.players[i] = p
			g.journal = append(g.journal, OpUpdatePlayer)
			return nil
		}
	}
	return roster.ErrPlayerNotFound
}

func (g *Gateway) UpdatePlayerTeam(_ context.Context, id string, team roster.Group) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpUpdatePlayerTeam); err != nil {
		return err
	}
	for i := range g.players {
		if g.players[i].ID == id {
			g.players[i].Team = team
		}
	}
	g.journal = append(g.journal, OpUpdatePlayerTeam)
	return nil
}

func (g *Gateway) DeletePlayer(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpDeletePlayer); err != nil {
		return err
	}
	kept := g.players[:0]
	for _, p := range g.players {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	g.players = kept
	g.journal = append(g.journal, OpDeletePlayer)
	return nil
}

func (g *Gateway) InsertTransaction(_ context.Context, tx roster.Transaction) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpInsertTransaction); err != nil {
		return 0, err
	}
	g.nextTxID++
	tx.ID = g.nextTxID
	g.transactions = append(g.transactions, tx)
	g.journal = append(g.journal, OpInsertTransaction)
	return tx.ID, nil
}

func (g *Gateway) UpdateBalance(_ context.Context, team roster.Group, balance float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fault(OpUpdateBalance); err != nil {
		return err
	}
	g.finances[team] = balance
	g.journal = append(g.journal, OpUpdateBalance)
	return nil
}

func (g *Gateway) Ping(_ context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fault(OpPing)
}
