package roster

import "sync"

// Snapshot is a point-in-time copy of the roster model.
type Snapshot struct {
	Groups       map[Group][]Player
	Balances     map[Group]float64
	Transactions []Transaction
}

// Players returns the players of a group in load order.
func (s Snapshot) Players(g Group) []Player {
	return s.Groups[g]
}

// Balance returns the balance of an active team, zero when unknown.
func (s Snapshot) Balance(team Group) float64 {
	return s.Balances[team]
}

// Find resolves a player id across all three groups.
func (s Snapshot) Find(id string) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	for _, g := range []Group{GroupTeamA, GroupTeamB, GroupFormer} {
		for _, p := range s.Groups[g] {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Player{}, false
}

// State holds the in-memory roster: three disjoint player groups, the two
// team balances and the transaction log (most recent first). It is mutated
// only after the corresponding remote write succeeded.
type State struct {
	mu           sync.RWMutex
	groups       map[Group][]Player
	balances     map[Group]float64
	transactions []Transaction
}

// NewState returns an empty state.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset clears everything back to the empty initial values.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = map[Group][]Player{
		GroupTeamA:  {},
		GroupTeamB:  {},
		GroupFormer: {},
	}
	s.balances = map[Group]float64{
		GroupTeamA: 0,
		GroupTeamB: 0,
	}
	s.transactions = []Transaction{}
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Groups:       make(map[Group][]Player, len(s.groups)),
		Balances:     make(map[Group]float64, len(s.balances)),
		Transactions: append([]Transaction(nil), s.transactions...),
	}
	for g, players := range s.groups {
		snap.Groups[g] = append([]Player{}, players...)
	}
	for team, balance := range s.balances {
		snap.Balances[team] = balance
	}
	return snap
}

// ReplacePlayers partitions rows into the three groups. Rows with an unknown
// team tag are dropped; the number dropped is returned.
func (s *State) ReplacePlayers(players []Player) int {
	groups := map[Group][]Player{
		GroupTeamA:  {},
		GroupTeamB:  {},
		GroupFormer: {},
	}
	dropped := 0
	for _, p := range players {
		if !p.Team.Valid() {
			dropped++
			continue
		}
		groups[p.Team] = append(groups[p.Team], p)
	}

	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
	return dropped
}

// ReplaceFinances sets both team balances. A missing team loads as zero.
func (s *State) ReplaceFinances(finances []TeamFinance) {
	balances := map[Group]float64{
		GroupTeamA: 0,
		GroupTeamB: 0,
	}
	for _, f := range finances {
		if f.Team.IsActive() {
			balances[f.Team] = f.Balance
		}
	}

	s.mu.Lock()
	s.balances = balances
	s.mu.Unlock()
}

// ReplaceTransactions replaces the transaction log.
func (s *State) ReplaceTransactions(transactions []Transaction) {
	s.mu.Lock()
	s.transactions = append([]Transaction{}, transactions...)
	s.mu.Unlock()
}

// Apply folds a plan that has been written remotely into the state.
func (s *State) Apply(plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.Transaction != nil {
		s.transactions = append([]Transaction{*plan.Transaction}, s.transactions...)
	}
	if plan.Balance != nil {
		s.balances[plan.Balance.Team] = plan.Balance.Balance
	}
	if plan.Player != nil {
		s.removeLocked(plan.Player.ID)
		s.groups[plan.Player.Team] = append(s.groups[plan.Player.Team], *plan.Player)
	}
}

// Upsert replaces a player in place, or appends it to its group when the
// group changed or the player is new.
func (s *State) Upsert(p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.groups[p.Team] {
		if existing.ID == p.ID {
			s.groups[p.Team][i] = p
			return
		}
	}
	s.removeLocked(p.ID)
	s.groups[p.Team] = append(s.groups[p.Team], p)
}

// Remove drops a player from whichever group holds it.
func (s *State) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *State) removeLocked(id string) {
	for g, players := range s.groups {
		for i, p := range players {
			if p.ID == id {
				s.groups[g] = append(players[:i:i], players[i+1:]...)
				return
			}
		}
	}
}
