package roster

import "time"

// EventType names a change to the roster.
type EventType string

const (
	EventPlayerTransferred EventType = "player.transferred"
	EventPlayerCreated     EventType = "player.created"
	EventPlayerUpdated     EventType = "player.updated"
	EventPlayerDeleted     EventType = "player.deleted"
	EventTransaction       EventType = "transaction.recorded"
	EventReloaded          EventType = "roster.reloaded"
	EventReset             EventType = "roster.reset"
)

// Event is emitted after a change has been written and applied.
type Event struct {
	Type        EventType      `json:"type"`
	Kind        PlanKind       `json:"kind,omitempty"`
	PlayerID    string         `json:"player_id,omitempty"`
	From        Group          `json:"from,omitempty"`
	Player      *Player        `json:"player,omitempty"`
	Transaction *Transaction   `json:"transaction,omitempty"`
	Balance     *BalanceChange `json:"balance,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// EventFromPlan describes an applied plan.
func EventFromPlan(t EventType, plan Plan, at time.Time) Event {
	e := Event{
		Type:        t,
		Kind:        plan.Kind,
		From:        plan.From,
		Player:      plan.Player,
		Transaction: plan.Transaction,
		Balance:     plan.Balance,
		OccurredAt:  at,
	}
	if plan.Player != nil {
		e.PlayerID = plan.Player.ID
	}
	return e
}
