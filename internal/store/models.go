package store

import (
	"database/sql"
	"time"

	"github.com/fortuna/roster/internal/roster"
)

// Player is a row of the players table
type Player struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Position  sql.NullString `json:"position,omitempty" db:"position"`
	Value     float64        `json:"value" db:"value"`
	Team      string         `json:"team" db:"team"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// ToDomain converts the row into a roster player.
func (p *Player) ToDomain() roster.Player {
	return roster.Player{
		ID:       p.ID,
		Name:     p.Name,
		Position: roster.Position(p.Position.String),
		Value:    roster.MarketValue(p.Value),
		Team:     roster.Group(p.Team),
	}
}

// Finance is a row of the finances table
type Finance struct {
	Team      string    `json:"team" db:"team"`
	Balance   float64   `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (f *Finance) ToDomain() roster.TeamFinance {
	return roster.TeamFinance{
		Team:    roster.Group(f.Team),
		Balance: f.Balance,
	}
}

// Transaction is a row of the transactions table
type Transaction struct {
	ID        int64          `json:"id" db:"id"`
	Date      time.Time      `json:"date" db:"date"`
	Type      string         `json:"type" db:"type"`
	Team      string         `json:"team" db:"team"`
	Amount    float64        `json:"amount" db:"amount"`
	Info      sql.NullString `json:"info,omitempty" db:"info"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

func (t *Transaction) ToDomain() roster.Transaction {
	return roster.Transaction{
		ID:     t.ID,
		Date:   t.Date.Format(roster.DateLayout),
		Type:   roster.TransactionType(t.Type),
		Team:   roster.Group(t.Team),
		Amount: t.Amount,
		Info:   t.Info.String,
	}
}
