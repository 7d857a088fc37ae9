package commands

import (
	"context"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/shopspring/decimal"
)

// challenge handles /duello <player> [amount]
func (r *Router) challenge(_ context.Context, p host.Player, args []string) error {
	target, ok := r.server.PlayerByName(args[0])
	if !ok {
		return duelerr.NotFoundf("player %s is not online", args[0]).WithMessage("player-not-found")
	}

	bet := decimal.Zero
	if len(args) > 1 {
		amount, err := r.provider.Economy.ParseBet(args[1])
		if err != nil {
			return err
		}
		bet = amount
	}

	return r.provider.Requests.Send(p, target, bet, r.reportAsync(p))
}

func (r *Router) accept(_ context.Context, p host.Player, _ []string) error {
	report := r.reportAsync(p)
	return r.provider.Requests.Accept(p, func(_ *entities.Duel, err error) {
		report(err)
	})
}

func (r *Router) deny(_ context.Context, p host.Player, _ []string) error {
	return r.provider.Requests.Deny(p)
}
