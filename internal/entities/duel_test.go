package entities_test

import (
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuel_Transition(t *testing.T) {
	t.Run("pending to active to finished", func(t *testing.T) {
		duel := entities.NewDuel("d1", "alice", "bob", decimal.Zero, time.Now())
		require.NoError(t, duel.Transition(entities.DuelStateActive))
		require.NoError(t, duel.Transition(entities.DuelStateFinished))
		assert.True(t, duel.State.IsTerminal())
	})

	t.Run("pending can be cancelled", func(t *testing.T) {
		duel := entities.NewDuel("d1", "alice", "bob", decimal.Zero, time.Now())
		require.NoError(t, duel.Transition(entities.DuelStateCancelled))
	})

	t.Run("pending cannot finish without becoming active", func(t *testing.T) {
		duel := entities.NewDuel("d1", "alice", "bob", decimal.Zero, time.Now())
		assert.Error(t, duel.Transition(entities.DuelStateFinished))
		assert.Equal(t, entities.DuelStatePending, duel.State)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		duel := entities.NewDuel("d1", "alice", "bob", decimal.Zero, time.Now())
		require.NoError(t, duel.Transition(entities.DuelStateCancelled))
		assert.Error(t, duel.Transition(entities.DuelStateActive))
		assert.Error(t, duel.Transition(entities.DuelStateFinished))
		assert.Equal(t, entities.DuelStateCancelled, duel.State)
	})
}

func TestDuel_WinnerAmount(t *testing.T) {
	duel := entities.NewDuel("d1", "alice", "bob", decimal.NewFromInt(100), time.Now())

	assert.True(t, duel.IsMoneyDuel())
	assert.True(t, decimal.NewFromInt(200).Equal(duel.TotalPot()))

	payout := duel.WinnerAmount(decimal.NewFromInt(80))
	assert.True(t, decimal.NewFromInt(160).Equal(payout), "got %s", payout)

	house := duel.TotalPot().Sub(payout)
	assert.True(t, decimal.NewFromInt(40).Equal(house))
}

func TestDuel_Participants(t *testing.T) {
	duel := entities.NewDuel("d1", "alice", "bob", decimal.Zero, time.Now())
	duel.ChallengerLocation = entities.Location{World: "world", X: 1}
	duel.ChallengedLocation = entities.Location{World: "world", X: 2}

	assert.True(t, duel.HasPlayer("alice"))
	assert.False(t, duel.HasPlayer("carol"))
	assert.Equal(t, "bob", duel.Opponent("alice"))
	assert.Equal(t, "alice", duel.Opponent("bob"))
	assert.Equal(t, "", duel.Opponent("carol"))

	loc, ok := duel.LocationOf("bob")
	require.True(t, ok)
	assert.Equal(t, 2.0, loc.X)
}

func TestDuelRequest_Same(t *testing.T) {
	now := time.Now()
	first := &entities.DuelRequest{SenderID: "alice", TargetID: "bob", CreatedAt: now}
	replay := &entities.DuelRequest{SenderID: "alice", TargetID: "bob", CreatedAt: now}
	newer := &entities.DuelRequest{SenderID: "alice", TargetID: "bob", CreatedAt: now.Add(time.Millisecond)}

	assert.True(t, first.Same(replay))
	assert.False(t, first.Same(newer))
	assert.False(t, first.Same(nil))
}

func TestPlayerStats_Ratios(t *testing.T) {
	stats := entities.NewPlayerStats("alice")
	assert.Equal(t, 0.0, stats.WinRatio())

	stats.Wins = 3
	stats.Losses = 1
	stats.MoneyWon = decimal.NewFromInt(500)
	stats.MoneyLost = decimal.NewFromInt(200)

	assert.Equal(t, 4, stats.TotalDuels())
	assert.InDelta(t, 75.0, stats.WinRatio(), 0.0001)
	assert.True(t, decimal.NewFromInt(300).Equal(stats.NetEarnings()))
}
