package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Group is the membership tag of a player. Values match the "team" column.
type Group string

const (
	GroupTeamA  Group = "AEK"
	GroupTeamB  Group = "Real"
	GroupFormer Group = "Ehemalige"
)

// ActiveTeams lists the groups that own a finance record, in display order.
var ActiveTeams = []Group{GroupTeamA, GroupTeamB}

// IsActive reports whether the group is one of the two active teams.
func (g Group) IsActive() bool {
	return g == GroupTeamA || g == GroupTeamB
}

// Valid reports whether g is one of the three known groups.
func (g Group) Valid() bool {
	return g.IsActive() || g == GroupFormer
}

// ParseGroup validates a raw group tag.
func ParseGroup(raw string) (Group, error) {
	g := Group(strings.TrimSpace(raw))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGroup, raw)
	}
	return g, nil
}

// Position is an on-field position code.
type Position string

const (
	PositionGoalkeeper   Position = "TH"
	PositionCentreBack   Position = "IV"
	PositionLeftBack     Position = "LV"
	PositionRightBack    Position = "RV"
	PositionDefensiveMid Position = "ZDM"
	PositionCentralMid   Position = "ZM"
	PositionAttackingMid Position = "ZOM"
	PositionLeftMid      Position = "LM"
	PositionRightMid     Position = "RM"
	PositionLeftForward  Position = "LF"
	PositionRightForward Position = "RF"
	PositionStriker      Position = "ST"
)

// Positions is the fixed display order of all positions.
var Positions = []Position{
	PositionGoalkeeper,
	PositionCentreBack,
	PositionLeftBack,
	PositionRightBack,
	PositionDefensiveMid,
	PositionCentralMid,
	PositionAttackingMid,
	PositionLeftMid,
	PositionRightMid,
	PositionLeftForward,
	PositionRightForward,
	PositionStriker,
}

// MarketValue is a valuation in millions of currency units. Decoding accepts
// a JSON number or a string; unparseable text decodes to zero.
type MarketValue float64

// Float returns the value as a float64.
func (v MarketValue) Float() float64 {
	return float64(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *MarketValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*v = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = MarketValue(ParseValue(s))
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("market value: %w", err)
	}
	*v = MarketValue(f)
	return nil
}

// Player is a squad member.
type Player struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Position Position    `json:"position"`
	Value    MarketValue `json:"value"`
	Team     Group       `json:"team"`
}

// TeamFinance is the balance of one active team.
type TeamFinance struct {
	Team    Group   `json:"team"`
	Balance float64 `json:"balance"`
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionPurchase TransactionType = "Spielerkauf"
	TransactionSale     TransactionType = "Spielerverkauf"
)

// DateLayout is the calendar date format used for transaction dates.
const DateLayout = "2006-01-02"

// Transaction is an immutable ledger entry. Negative amounts are outflows.
type Transaction struct {
	ID     int64           `json:"id,omitempty"`
	Date   string          `json:"date"`
	Type   TransactionType `json:"type"`
	Team   Group           `json:"team"`
	Amount float64         `json:"amount"`
	Info   string          `json:"info"`
}

// Today formats t as a transaction date.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}
