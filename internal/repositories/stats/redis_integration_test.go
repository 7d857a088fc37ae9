//go:build integration
// +build integration

package stats_test

import (
	"context"
	"testing"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/repositories/stats"
	"github.com/KirkDiggler/cduello/internal/testutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_Integration(t *testing.T) {
	client := testutils.StartRedisContainer(t)
	repo := stats.NewRedis(client)
	ctx := context.Background()

	t.Run("save and read back", func(t *testing.T) {
		p := entities.NewPlayerStats("p1")
		p.PlayerName = "Ayse"
		p.Wins = 2
		p.MoneyWon = decimal.NewFromInt(320)

		require.NoError(t, repo.SaveAll(ctx, []*entities.PlayerStats{p}))

		got, err := repo.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Wins)
		assert.True(t, p.MoneyWon.Equal(got.MoneyWon))
	})

	t.Run("leaderboard order", func(t *testing.T) {
		a := entities.NewPlayerStats("a")
		a.Wins, a.Losses = 1, 0
		b := entities.NewPlayerStats("b")
		b.Wins, b.Losses = 5, 5
		require.NoError(t, repo.SaveAll(ctx, []*entities.PlayerStats{a, b}))

		byWins, err := repo.Top(ctx, stats.OrderWins, 2)
		require.NoError(t, err)
		require.Len(t, byWins, 2)
		assert.Equal(t, "b", byWins[0].PlayerID)

		byRatio, err := repo.Top(ctx, stats.OrderWinRatio, 1)
		require.NoError(t, err)
		require.Len(t, byRatio, 1)
		assert.Contains(t, []string{"a", "p1"}, byRatio[0].PlayerID)
	})
}
