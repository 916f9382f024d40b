package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/roster/internal/metrics"
	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/store/memory"
)

func TestCheck_BalancesMatchLedger(t *testing.T) {
	finances := []roster.TeamFinance{
		{Team: roster.GroupTeamA, Balance: 5_000_000},
		{Team: roster.GroupTeamB, Balance: 2_000_000},
	}
	transactions := []roster.Transaction{
		{ID: 3, Type: roster.TransactionSale, Team: roster.GroupTeamA, Amount: 3_000_000, Info: "Verkauf von Meyer (IV)"},
		{ID: 2, Type: "Prämie", Team: roster.GroupTeamB, Amount: 2_000_000},
		{ID: 1, Type: roster.TransactionPurchase, Team: roster.GroupTeamA, Amount: -8_000_000, Info: "Kauf von Silva (ST)"},
	}
	opening := map[roster.Group]float64{roster.GroupTeamA: 10_000_000}

	report := Check(nil, finances, transactions, opening, time.Now())
	require.Len(t, report.Teams, 2)
	assert.Equal(t, roster.GroupTeamA, report.Teams[0].Team)
	assert.Equal(t, -5_000_000.0, report.Teams[0].LedgerSum)
	assert.Equal(t, 0.0, report.Teams[0].Drift)
	assert.Equal(t, 0.0, report.Teams[1].Drift)
	assert.True(t, report.Consistent())
}

func TestCheck_ReportsDrift(t *testing.T) {
	finances := []roster.TeamFinance{{Team: roster.GroupTeamA, Balance: 1_500}}
	transactions := []roster.Transaction{{ID: 1, Type: "Prämie", Team: roster.GroupTeamA, Amount: 1_000}}

	report := Check(nil, finances, transactions, nil, time.Now())
	assert.Equal(t, 500.0, report.Teams[0].Drift)
	assert.False(t, report.Teams[0].Consistent())
	assert.True(t, report.Teams[1].Consistent(), "missing finance row and empty ledger agree")
	assert.False(t, report.Consistent())
}

func TestCheck_MisplacedPlayers(t *testing.T) {
	players := []roster.Player{
		{ID: "p1", Name: "Silva", Position: roster.PositionStriker, Team: roster.GroupFormer},
		{ID: "p2", Name: "Meyer", Position: roster.PositionCentreBack, Team: roster.GroupFormer},
		{ID: "p3", Name: "Keller", Position: roster.PositionGoalkeeper, Team: roster.GroupTeamB},
		{ID: "p4", Name: "Neu", Position: roster.PositionLeftBack, Team: roster.GroupTeamA},
	}
	transactions := []roster.Transaction{
		// Silva was bought back after the sale
		{ID: 4, Type: roster.TransactionPurchase, Team: roster.GroupTeamA, Amount: -1, Info: "Kauf von Silva (ST)"},
		{ID: 3, Type: roster.TransactionSale, Team: roster.GroupTeamA, Amount: 1, Info: "Verkauf von Silva (ST)"},
		{ID: 2, Type: roster.TransactionSale, Team: roster.GroupTeamA, Amount: 1, Info: "Verkauf von Meyer (IV)"},
		{ID: 1, Type: roster.TransactionPurchase, Team: roster.GroupTeamA, Amount: -1, Info: "Kauf von Keller (TH)"},
	}

	report := Check(players, nil, transactions, nil, time.Now())
	require.Len(t, report.Misplaced, 2)

	assert.Equal(t, "p1", report.Misplaced[0].PlayerID)
	assert.Equal(t, roster.GroupTeamA, report.Misplaced[0].Expected)
	assert.Equal(t, int64(4), report.Misplaced[0].Transaction)

	assert.Equal(t, "p3", report.Misplaced[1].PlayerID)
	assert.Equal(t, roster.GroupTeamA, report.Misplaced[1].Expected, "moved between teams without a ledger entry")
}

func TestEngine_AuditSetsMetrics(t *testing.T) {
	gw := memory.NewGateway()
	gw.Seed(
		[]roster.Player{{ID: "p1", Name: "Silva", Position: roster.PositionStriker, Team: roster.GroupTeamA}},
		[]roster.TeamFinance{{Team: roster.GroupTeamA, Balance: 100}, {Team: roster.GroupTeamB, Balance: 0}},
		[]roster.Transaction{{ID: 1, Type: roster.TransactionSale, Team: roster.GroupTeamA, Amount: 40, Info: "Verkauf von Silva (ST)"}},
	)
	m := metrics.New()
	engine := NewEngine(gw, map[roster.Group]float64{roster.GroupTeamA: 50}, m, nil)

	report, err := engine.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent())

	assert.Equal(t, 10.0, testutil.ToFloat64(m.BalanceDrift.WithLabelValues("AEK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MisplacedPlayers))

	last, ok := engine.Last()
	require.True(t, ok)
	assert.Equal(t, report, last)
	assert.Equal(t, 1, engine.GetStats().TotalAudits)
}

func TestEngine_AuditReadFailure(t *testing.T) {
	gw := memory.NewGateway()
	boom := errors.New("boom")
	gw.Fail(memory.OpListTransactions, boom)

	engine := NewEngine(gw, nil, nil, nil)
	_, err := engine.Audit(context.Background())
	assert.ErrorIs(t, err, boom)

	_, ok := engine.Last()
	assert.False(t, ok)
	assert.Equal(t, 1, engine.GetStats().Failures)
}
