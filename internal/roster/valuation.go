package roster

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// FeeMultiplier converts a market value in millions into base currency units.
const FeeMultiplier = 1_000_000

// unknownPositionRank sorts positions outside the enumeration last.
const unknownPositionRank = 99

var positionRank = func() map[Position]int {
	ranks := make(map[Position]int, len(Positions))
	for i, p := range Positions {
		ranks[p] = i
	}
	return ranks
}()

// ParseValue parses a text-encoded market value. Empty or non-numeric input
// yields zero. A comma is accepted as decimal separator.
func ParseValue(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Fee returns the transfer fee for a market value.
func Fee(value MarketValue) float64 {
	return value.Float() * FeeMultiplier
}

// GroupValue sums the market values of players. Display only.
func GroupValue(players []Player) float64 {
	var sum float64
	for _, p := range players {
		sum += p.Value.Float()
	}
	return sum
}

// PositionRank returns the display rank of a position.
func PositionRank(p Position) int {
	if r, ok := positionRank[p]; ok {
		return r
	}
	return unknownPositionRank
}

// SortByPosition returns a copy of players ordered by position. Players with
// equal rank keep their relative order.
func SortByPosition(players []Player) []Player {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PositionRank(sorted[i].Position) < PositionRank(sorted[j].Position)
	})
	return sorted
}
