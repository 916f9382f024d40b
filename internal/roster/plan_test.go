package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const today = "2025-03-14"

func snapshotWith(players []Player, balanceA, balanceB float64) Snapshot {
	s := NewState()
	s.ReplacePlayers(players)
	s.ReplaceFinances([]TeamFinance{
		{Team: GroupTeamA, Balance: balanceA},
		{Team: GroupTeamB, Balance: balanceB},
	})
	return s.Snapshot()
}

func TestPlanTransfer_PurchaseRejectedWhenBalanceTooLow(t *testing.T) {
	snap := snapshotWith([]Player{
		{ID: "p1", Name: "Silva", Position: PositionStriker, Value: 5, Team: GroupFormer},
	}, 4_000_000, 0)

	plan, err := PlanTransfer(snap, "p1", GroupTeamA, today)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	var fundsErr *InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	assert.Equal(t, GroupTeamA, fundsErr.Team)
	assert.Equal(t, 4_000_000.0, fundsErr.Balance)
	assert.Equal(t, 5_000_000.0, fundsErr.Required)
	assert.Equal(t, Plan{}, plan)
}

func TestPlanTransfer_PurchaseWithExactBalance(t *testing.T) {
	snap := snapshotWith([]Player{
		{ID: "p1", Name: "Silva", Position: PositionStriker, Value: 5, Team: GroupFormer},
	}, 5_000_000, 0)

	plan, err := PlanTransfer(snap, "p1", GroupTeamA, today)
	require.NoError(t, err)

	assert.Equal(t, KindPurchase, plan.Kind)
	assert.Equal(t, GroupFormer, plan.From)
	require.NotNil(t, plan.Player)
	assert.Equal(t, GroupTeamA, plan.Player.Team)

	require.NotNil(t, plan.Transaction)
	assert.Equal(t, TransactionPurchase, plan.Transaction.Type)
	assert.Equal(t, GroupTeamA, plan.Transaction.Team)
	assert.Equal(t, -5_000_000.0, plan.Transaction.Amount)
	assert.Equal(t, today, plan.Transaction.Date)
	assert.Equal(t, "Kauf von Silva (ST)", plan.Transaction.Info)

	require.NotNil(t, plan.Balance)
	assert.Equal(t, GroupTeamA, plan.Balance.Team)
	assert.Equal(t, -5_000_000.0, plan.Balance.Delta)
	assert.Zero(t, plan.Balance.Balance)
}

func TestPlanTransfer_SaleHasNoGuard(t *testing.T) {
	snap := snapshotWith([]Player{
		{ID: "p2", Name: "Meyer", Position: PositionCentreBack, Value: 3, Team: GroupTeamA},
	}, 1_000_000, 0)

	plan, err := PlanTransfer(snap, "p2", GroupFormer, today)
	require.NoError(t, err)

	assert.Equal(t, KindSale, plan.Kind)
	require.NotNil(t, plan.Transaction)
	assert.Equal(t, TransactionSale, plan.Transaction.Type)
	assert.Equal(t, GroupTeamA, plan.Transaction.Team)
	assert.Equal(t, 3_000_000.0, plan.Transaction.Amount)
	assert.Equal(t, "Verkauf von Meyer (IV)", plan.Transaction.Info)

	require.NotNil(t, plan.Balance)
	assert.Equal(t, 4_000_000.0, plan.Balance.Balance)
	assert.Equal(t, GroupFormer, plan.Player.Team)
}

func TestPlanTransfer_SaleFromTeamB(t *testing.T) {
	snap := snapshotWith([]Player{
		{ID: "p3", Name: "Kroos", Position: PositionCentralMid, Value: 1.5, Team: GroupTeamB},
	}, 0, 250_000)

	plan, err := PlanTransfer(snap, "p3", GroupFormer, today)
	require.NoError(t, err)

	assert.Equal(t, GroupTeamB, plan.Transaction.Team)
	assert.Equal(t, GroupTeamB, plan.Balance.Team)
	assert.Equal(t, 1_750_000.0, plan.Balance.Balance)
}

func TestPlanTransfer_BetweenActiveTeamsIsMoveOnly(t *testing.T) {
	snap := snapshotWith([]Player{
		{ID: "p4", Name: "Lopez", Position: PositionLeftBack, Value: 10, Team: GroupTeamA},
	}, 0, 0)

	plan, err := PlanTransfer(snap, "p4", GroupTeamB, today)
	require.NoError(t, err)

	assert.Equal(t, KindMove, plan.Kind)
	assert.False(t, plan.Financial())
	assert.Nil(t, plan.Balance)
	require.NotNil(t, plan.Player)
	assert.Equal(t, GroupTeamB, plan.Player.Team)
}

func TestPlanTransfer_UnknownPlayerIsNoop(t *testing.T) {
	snap := snapshotWith(nil, 100, 100)

	plan, err := PlanTransfer(snap, "missing", GroupTeamA, today)
	require.NoError(t, err)
	assert.Equal(t, KindNoop, plan.Kind)
	assert.Nil(t, plan.Player)
	assert.Nil(t, plan.Transaction)
	assert.Nil(t, plan.Balance)
}

func TestPlanTransfer_UnknownDestination(t *testing.T) {
	snap := snapshotWith([]Player{{ID: "p1", Name: "A", Team: GroupTeamA}}, 0, 0)

	_, err := PlanTransfer(snap, "p1", Group("Bayern"), today)
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestPlanCreate(t *testing.T) {
	tests := []struct {
		name      string
		player    Player
		balanceA  float64
		wantErr   error
		wantKind  PlanKind
		wantTx    bool
		wantAfter float64
	}{
		{
			name:      "active team with funds",
			player:    Player{ID: "n1", Name: "Neu", Position: PositionStriker, Value: 2, Team: GroupTeamA},
			balanceA:  3_000_000,
			wantKind:  KindCreate,
			wantTx:    true,
			wantAfter: 1_000_000,
		},
		{
			name:     "active team without funds",
			player:   Player{ID: "n2", Name: "Neu", Position: PositionStriker, Value: 2, Team: GroupTeamA},
			balanceA: 1_999_999,
			wantErr:  ErrInsufficientFunds,
		},
		{
			name:     "former players need no funds",
			player:   Player{ID: "n3", Name: "Alt", Position: PositionStriker, Value: 50, Team: GroupFormer},
			wantKind: KindCreate,
		},
		{
			name:    "missing name",
			player:  Player{ID: "n4", Team: GroupTeamA},
			wantErr: ErrInvalidPlayer,
		},
		{
			name:    "unknown team",
			player:  Player{ID: "n5", Name: "X", Team: "Bayern"},
			wantErr: ErrUnknownGroup,
		},
		{
			name:    "negative value",
			player:  Player{ID: "n6", Name: "X", Value: -1, Team: GroupFormer},
			wantErr: ErrInvalidPlayer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotWith(nil, tt.balanceA, 0)
			plan, err := PlanCreate(snap, tt.player, today)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, plan.Kind)
			require.NotNil(t, plan.Player)
			assert.Equal(t, tt.player, *plan.Player)
			assert.Equal(t, tt.wantTx, plan.Financial())
			if tt.wantTx {
				assert.Equal(t, -Fee(tt.player.Value), plan.Transaction.Amount)
				assert.Equal(t, tt.wantAfter, plan.Balance.Balance)
			}
		})
	}
}

func TestPlanRecord(t *testing.T) {
	snap := snapshotWith(nil, 0, 500)

	plan, err := PlanRecord(snap, GroupTeamB, "Preisgeld", 1500, "Pokalsieg", today)
	require.NoError(t, err)
	assert.Equal(t, KindRecord, plan.Kind)
	assert.Nil(t, plan.Player)
	assert.Equal(t, TransactionType("Preisgeld"), plan.Transaction.Type)
	assert.Equal(t, 2000.0, plan.Balance.Balance)

	// no guard: outflows may overdraw
	plan, err = PlanRecord(snap, GroupTeamB, "Strafe", -1000, "", today)
	require.NoError(t, err)
	assert.Equal(t, -500.0, plan.Balance.Balance)

	_, err = PlanRecord(snap, GroupFormer, "Strafe", -1, "", today)
	assert.ErrorIs(t, err, ErrUnknownTeam)

	_, err = PlanRecord(snap, GroupTeamA, "  ", 1, "", today)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestParseGroup(t *testing.T) {
	for _, raw := range []string{"AEK", " Real ", "Ehemalige"} {
		g, err := ParseGroup(raw)
		require.NoError(t, err, raw)
		assert.True(t, g.Valid())
	}

	_, err := ParseGroup("Barcelona")
	assert.ErrorIs(t, err, ErrUnknownGroup)
	_, err = ParseGroup("")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}
