package commands

import (
	"context"
	"strconv"
	"strings"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
)

const defaultCancelReason = "admin"

var adminSubcommands = []string{"reload", "cancelall"}

// admin handles /duello admin <reload|cancelall [reason]>
func (r *Router) admin(ctx context.Context, p host.Player, args []string) error {
	if len(args) == 0 {
		r.provider.Messenger.Send(p, "admin-help", nil)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "reload":
		return r.reloadCommand(ctx, p, nil)
	case "cancelall":
		reason := defaultCancelReason
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		n := r.provider.CancelEverything(reason)
		r.logger.WithField("player", p.ID()).WithField("count", n).Info("Cancelled all duels")
		r.provider.Messenger.Send(p, "duels-cancelled", messages.Args{"count": strconv.Itoa(n)})
	default:
		r.provider.Messenger.Send(p, "admin-help", nil)
	}
	return nil
}

func (r *Router) reloadCommand(_ context.Context, p host.Player, _ []string) error {
	if r.reload == nil {
		return duelerr.FailedPrecondition("reload is not configured")
	}
	if err := r.reload(); err != nil {
		return duelerr.Wrap(err, "failed to reload configuration")
	}
	r.logger.WithField("player", p.ID()).Info("Configuration reloaded")
	r.provider.Messenger.Send(p, "config-reloaded", nil)
	return nil
}

func (r *Router) help(_ context.Context, p host.Player, _ []string) error {
	m := r.provider.Messenger
	m.Send(p, "help-title", nil)
	m.Send(p, "help-duel-player", nil)
	if r.provider.Economy.Enabled() {
		m.Send(p, "help-duel-money", nil)
	}
	m.Send(p, "help-duel-accept", nil)
	m.Send(p, "help-duel-deny", nil)
	m.Send(p, "help-duel-stats", nil)
	m.Send(p, "help-duel-top", nil)
	if p.HasPermission(host.PermissionAdmin) {
		m.Send(p, "help-duel-reload", nil)
	}
	m.Send(p, "help-footer", nil)
	return nil
}
