package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/roster/internal/roster"
)

func TestGateway_SeedAndList(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	g.Seed(
		[]roster.Player{{ID: "a", Name: "A", Team: roster.GroupTeamA}},
		[]roster.TeamFinance{{Team: roster.GroupTeamB, Balance: 7}},
		[]roster.Transaction{{ID: 2, Type: "x"}, {ID: 1, Type: "y"}},
	)

	players, err := g.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 1)

	finances, err := g.ListFinances(ctx)
	require.NoError(t, err)
	assert.Equal(t, []roster.TeamFinance{{Team: roster.GroupTeamB, Balance: 7}}, finances)

	id, err := g.InsertTransaction(ctx, roster.Transaction{Type: "z"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	txs, err := g.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{txs[0].ID, txs[1].ID, txs[2].ID})
}

func TestGateway_CopiesOnReturn(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	require.NoError(t, g.InsertPlayer(ctx, roster.Player{ID: "a", Name: "A", Team: roster.GroupFormer}))

	players, err := g.ListPlayers(ctx)
	require.NoError(t, err)
	players[0].Name = "mutated"

	players, err = g.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", players[0].Name)
}

func TestGateway_FaultInjection(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	boom := errors.New("boom")

	g.Fail(OpUpdateBalance, boom)
	err := g.UpdateBalance(ctx, roster.GroupTeamA, 10)
	assert.ErrorIs(t, err, boom)

	balance, ok := g.Balance(roster.GroupTeamA)
	require.True(t, ok)
	assert.Zero(t, balance)
	assert.Empty(t, g.Journal())

	g.Fail(OpUpdateBalance, nil)
	require.NoError(t, g.UpdateBalance(ctx, roster.GroupTeamA, 10))
	assert.Equal(t, []string{OpUpdateBalance}, g.Journal())
}

func TestGateway_UpdateAndDelete(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	require.NoError(t, g.InsertPlayer(ctx, roster.Player{ID: "a", Name: "A", Team: roster.GroupFormer}))
	require.NoError(t, g.InsertPlayer(ctx, roster.Player{ID: "b", Name: "B", Team: roster.GroupFormer}))

	err := g.UpdatePlayer(ctx, roster.Player{ID: "zz", Name: "Z"})
	assert.ErrorIs(t, err, roster.ErrPlayerNotFound)

	require.NoError(t, g.UpdatePlayerTeam(ctx, "a", roster.GroupTeamB))
	require.NoError(t, g.DeletePlayer(ctx, "b"))

	players, err := g.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, roster.GroupTeamB, players[0].Team)
}
