package reconciliation

import (
	"fmt"
	"strings"

	"github.com/fortuna/roster/internal/roster"
)

const (
	purchasePrefix = "Kauf von "
	salePrefix     = "Verkauf von "
)

// Misplaced is a player whose group contradicts its latest transfer entry.
type Misplaced struct {
	PlayerID    string       `json:"player_id"`
	Name        string       `json:"name"`
	Team        roster.Group `json:"team"`
	Expected    roster.Group `json:"expected"`
	Transaction int64        `json:"transaction_id"`
}

// findMisplaced matches players to the latest sale or purchase entry naming
// them. Entries are matched by the "Name (POS)" label the engine writes.
// Players without an entry are not checked.
func findMisplaced(players []roster.Player, transactions []roster.Transaction) []Misplaced {
	latest := make(map[string]roster.Transaction)
	for _, tx := range transactions {
		label, ok := transferLabel(tx)
		if !ok {
			continue
		}
		// most recent first: keep the first hit
		if _, seen := latest[label]; !seen {
			latest[label] = tx
		}
	}

	misplaced := []Misplaced{}
	for _, p := range players {
		tx, ok := latest[playerLabel(p)]
		if !ok {
			continue
		}
		expected := roster.GroupFormer
		if tx.Type == roster.TransactionPurchase {
			expected = tx.Team
		}
		if p.Team != expected {
			misplaced = append(misplaced, Misplaced{
				PlayerID:    p.ID,
				Name:        p.Name,
				Team:        p.Team,
				Expected:    expected,
				Transaction: tx.ID,
			})
		}
	}
	return misplaced
}

func playerLabel(p roster.Player) string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Position)
}

// transferLabel extracts the player label from a sale or purchase entry.
func transferLabel(tx roster.Transaction) (string, bool) {
	var prefix string
	switch tx.Type {
	case roster.TransactionPurchase:
		prefix = purchasePrefix
	case roster.TransactionSale:
		prefix = salePrefix
	default:
		return "", false
	}
	if !strings.HasPrefix(tx.Info, prefix) {
		return "", false
	}
	return strings.TrimPrefix(tx.Info, prefix), true
}
