package roster

import (
	"fmt"
	"strings"
)

// PlanKind names the effect a command has on the roster.
type PlanKind string

const (
	KindNoop     PlanKind = "noop"
	KindMove     PlanKind = "move"
	KindSale     PlanKind = "sale"
	KindPurchase PlanKind = "purchase"
	KindCreate   PlanKind = "create"
	KindRecord   PlanKind = "record"
)

// BalanceChange describes a balance update. Balance is the value after Delta
// was applied to the balance the plan was computed from.
type BalanceChange struct {
	Team    Group   `json:"team"`
	Delta   float64 `json:"delta"`
	Balance float64 `json:"balance"`
}

// Plan is the outcome of a command handler: the remote writes to perform, in
// order transaction, balance, player, and the state change to apply after.
type Plan struct {
	Kind        PlanKind       `json:"kind"`
	From        Group          `json:"from,omitempty"`
	Player      *Player        `json:"player,omitempty"`
	Transaction *Transaction   `json:"transaction,omitempty"`
	Balance     *BalanceChange `json:"balance,omitempty"`
}

// Financial reports whether the plan posts a transaction.
func (p Plan) Financial() bool {
	return p.Transaction != nil
}

// PlanTransfer decides the writes needed to move a player to destination.
// An unknown player id yields a noop plan and no error.
func PlanTransfer(snap Snapshot, playerID string, destination Group, today string) (Plan, error) {
	if !destination.Valid() {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownGroup, destination)
	}

	player, ok := snap.Find(playerID)
	if !ok {
		return Plan{Kind: KindNoop}, nil
	}

	from := player.Team
	fee := Fee(player.Value)
	moved := player
	moved.Team = destination

	switch {
	case from.IsActive() && destination == GroupFormer:
		balance := snap.Balance(from)
		return Plan{
			Kind:   KindSale,
			From:   from,
			Player: &moved,
			Transaction: &Transaction{
				Date:   today,
				Type:   TransactionSale,
				Team:   from,
				Amount: fee,
				Info:   fmt.Sprintf("Verkauf von %s (%s)", player.Name, player.Position),
			},
			Balance: &BalanceChange{Team: from, Delta: fee, Balance: balance + fee},
		}, nil

	case from == GroupFormer && destination.IsActive():
		available := snap.Balance(destination)
		if available < fee {
			return Plan{}, &InsufficientFundsError{Team: destination, Balance: available, Required: fee}
		}
		return Plan{
			Kind:   KindPurchase,
			From:   from,
			Player: &moved,
			Transaction: &Transaction{
				Date:   today,
				Type:   TransactionPurchase,
				Team:   destination,
				Amount: -fee,
				Info:   fmt.Sprintf("Kauf von %s (%s)", player.Name, player.Position),
			},
			Balance: &BalanceChange{Team: destination, Delta: -fee, Balance: available - fee},
		}, nil
	}

	return Plan{Kind: KindMove, From: from, Player: &moved}, nil
}

// PlanCreate decides the writes needed to add a new player. Creating into an
// active team is a purchase and is guarded by the team balance.
func PlanCreate(snap Snapshot, player Player, today string) (Plan, error) {
	if err := ValidatePlayer(player); err != nil {
		return Plan{}, err
	}

	created := player
	if !player.Team.IsActive() {
		return Plan{Kind: KindCreate, Player: &created}, nil
	}

	fee := Fee(player.Value)
	available := snap.Balance(player.Team)
	if available < fee {
		return Plan{}, &InsufficientFundsError{Team: player.Team, Balance: available, Required: fee}
	}

	return Plan{
		Kind:   KindCreate,
		Player: &created,
		Transaction: &Transaction{
			Date:   today,
			Type:   TransactionPurchase,
			Team:   player.Team,
			Amount: -fee,
			Info:   fmt.Sprintf("Kauf von %s (%s)", player.Name, player.Position),
		},
		Balance: &BalanceChange{Team: player.Team, Delta: -fee, Balance: available - fee},
	}, nil
}

// PlanRecord posts a free-form transaction against an active team and moves
// its balance by amount. No funds guard applies.
func PlanRecord(snap Snapshot, team Group, txType TransactionType, amount float64, info, today string) (Plan, error) {
	if !team.IsActive() {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	if strings.TrimSpace(string(txType)) == "" {
		return Plan{}, fmt.Errorf("%w: type is required", ErrInvalidTransaction)
	}

	balance := snap.Balance(team)
	return Plan{
		Kind: KindRecord,
		Transaction: &Transaction{
			Date:   today,
			Type:   txType,
			Team:   team,
			Amount: amount,
			Info:   info,
		},
		Balance: &BalanceChange{Team: team, Delta: amount, Balance: balance + amount},
	}, nil
}

// ValidatePlayer checks the fields a player row must carry.
func ValidatePlayer(p Player) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}
	if !p.Team.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, p.Team)
	}
	if p.Value < 0 {
		return fmt.Errorf("%w: market value must not be negative", ErrInvalidPlayer)
	}
	return nil
}
