package commands

import (
	"context"
	"strconv"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	statsrepo "github.com/KirkDiggler/cduello/internal/repositories/stats"
)

// stats handles /duello stats [player]
func (r *Router) stats(_ context.Context, p host.Player, args []string) error {
	subjectID, subjectName := p.ID(), p.Name()
	if len(args) > 0 {
		target, ok := r.server.PlayerByName(args[0])
		if !ok {
			return duelerr.NotFoundf("player %s is not online", args[0]).WithMessage("player-not-found")
		}
		subjectID, subjectName = target.ID(), target.Name()
	}

	viewerID := p.ID()
	r.provider.Stats.Fetch(subjectID, func(ps *entities.PlayerStats, err error) {
		viewer, ok := r.server.Player(viewerID)
		if !ok {
			return
		}
		if err != nil {
			r.logger.WithError(err).WithField("player", subjectID).Error("Failed to load stats")
			return
		}
		r.sendStats(viewer, subjectName, ps)
	})
	return nil
}

func (r *Router) sendStats(p host.Player, name string, ps *entities.PlayerStats) {
	m := r.provider.Messenger
	format := r.provider.Economy.Format

	m.Send(p, "stats-header", messages.Args{"player": name})
	m.Send(p, "stats-wins", messages.Args{"wins": strconv.Itoa(ps.Wins)})
	m.Send(p, "stats-losses", messages.Args{"losses": strconv.Itoa(ps.Losses)})
	m.Send(p, "stats-total", messages.Args{"total": strconv.Itoa(ps.TotalDuels())})
	m.Send(p, "stats-winrate", messages.Args{"winrate": strconv.FormatFloat(ps.WinRatio(), 'f', 1, 64)})
	if r.provider.Economy.Enabled() {
		m.Send(p, "stats-money-won", messages.Args{"money_won": format(ps.MoneyWon)})
		m.Send(p, "stats-money-lost", messages.Args{"money_lost": format(ps.MoneyLost)})
		m.Send(p, "stats-net-earnings", messages.Args{"net_earnings": format(ps.NetEarnings())})
	}
	m.Send(p, "stats-footer", nil)
}

// top handles /duello top. The ranking is read on a worker.
func (r *Router) top(_ context.Context, p host.Player, _ []string) error {
	viewerID := p.ID()
	var ranked []*entities.PlayerStats

	r.scheduler.RunAsync(func(ctx context.Context) error {
		var err error
		ranked, err = r.provider.Leaderboard.Top(ctx, statsrepo.OrderWins, 10)
		return err
	}, func(err error) {
		viewer, ok := r.server.Player(viewerID)
		if !ok {
			return
		}
		if err != nil {
			r.logger.WithError(err).Error("Failed to read leaderboard")
			return
		}
		r.sendTop(viewer, ranked)
	})
	return nil
}

func (r *Router) sendTop(p host.Player, ranked []*entities.PlayerStats) {
	m := r.provider.Messenger
	m.Send(p, "leaderboard-header", nil)
	if len(ranked) == 0 {
		m.Send(p, "leaderboard-empty", nil)
		return
	}
	for i, ps := range ranked {
		name := ps.PlayerName
		if name == "" {
			name = ps.PlayerID
		}
		m.Send(p, "leaderboard-entry", messages.Args{
			"rank":    strconv.Itoa(i + 1),
			"player":  name,
			"wins":    strconv.Itoa(ps.Wins),
			"winrate": strconv.FormatFloat(ps.WinRatio(), 'f', 1, 64),
		})
	}
}
