package bridge

import (
	"context"
	"strings"

	"github.com/KirkDiggler/cduello/internal/commands"
	"github.com/KirkDiggler/cduello/internal/events"
	"github.com/KirkDiggler/cduello/internal/uuid"
	"github.com/sirupsen/logrus"
)

// handle applies one inbound frame and builds its verdict
func (b *Bridge) handle(in *Inbound) *Result {
	res := &Result{Type: FrameResult, ID: in.ID}

	if err := normalizeIDs(in); err != nil {
		res.Error = err.Error()
		return res
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if in.Type == FramePlaceholder {
		b.placeholder(ctx, in, res)
		return res
	}

	var p *remotePlayer
	if in.Player != nil {
		p = b.upsert(in.Player)
	}

	switch in.Type {
	case FramePlayerQuit:
		if p == nil {
			res.Error = "player is required"
			return res
		}
		b.quit(p.ID())
		return res
	case FramePlayerJoin, FramePlayerDeath, FramePlayerMove, FramePlayerCommand, FrameTabComplete:
		if p == nil {
			res.Error = "player is required"
			return res
		}
	case FramePlayerDamage:
	default:
		res.Error = "unsupported frame type"
		return res
	}

	err := b.exec.Call(ctx, func() {
		b.apply(in, p, res)
	})
	if err != nil {
		b.logger.WithError(err).WithField("type", in.Type).Error("Frame was not processed")
		res.Error = err.Error()
	}
	return res
}

// apply runs on the game loop
func (b *Bridge) apply(in *Inbound, p *remotePlayer, res *Result) {
	bus := b.handlers.Bus
	var err error

	switch in.Type {
	case FramePlayerJoin:
		err = bus.Emit(events.NewPlayerJoinEvent(p))

	case FramePlayerDeath:
		event := events.NewPlayerDeathEvent(p.ID())
		err = bus.Emit(event)
		keep := event.KeepInventory
		res.KeepInventory = &keep

	case FramePlayerMove:
		from, to := p.Location(), p.Location()
		if in.From != nil {
			from = *in.From
		}
		if in.To != nil {
			to = *in.To
		}
		event := events.NewPlayerMoveEvent(p, from, to)
		err = bus.Emit(event)
		res.Cancel = event.IsCancelled()
		if event.To != to {
			res.To = &event.To
		}
		if !res.Cancel {
			p.setLocation(event.To)
		}

	case FramePlayerDamage:
		event := events.NewPlayerDamageEvent(in.Attacker, in.Victim)
		err = bus.Emit(event)
		res.Cancel = event.IsCancelled()

	case FramePlayerCommand:
		event := events.NewPlayerCommandEvent(p, in.Line)
		err = bus.Emit(event)
		res.Cancel = event.IsCancelled()
		if !res.Cancel {
			if args, ok := duelCommand(in.Line); ok {
				b.handlers.Router.Handle(p, args)
				res.Cancel = true
			}
		}

	case FrameTabComplete:
		res.Completions = b.handlers.Router.Complete(p, in.Args)
	}

	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"type":   in.Type,
			"player": playerID(p),
		}).Error("Listener failed")
		res.Error = err.Error()
	}
}

func (b *Bridge) placeholder(ctx context.Context, in *Inbound, res *Result) {
	id := ""
	if in.Player != nil {
		id = in.Player.ID
	}
	if text, ok := b.handlers.Leaderboard.Placeholder(ctx, id, in.Key); ok {
		res.Text = &text
	}
}

// normalizeIDs rewrites every player id in the frame to its canonical uuid form
func normalizeIDs(in *Inbound) error {
	var err error
	if in.Player != nil {
		if in.Player.ID, err = uuid.NormalizePlayerID(in.Player.ID); err != nil {
			return err
		}
	}
	if in.Type == FramePlayerDamage {
		if in.Attacker, err = uuid.NormalizePlayerID(in.Attacker); err != nil {
			return err
		}
		if in.Victim, err = uuid.NormalizePlayerID(in.Victim); err != nil {
			return err
		}
	}
	return nil
}

// duelCommand reports whether line invokes one of the core's command labels and
// returns the arguments after the label
func duelCommand(line string) ([]string, bool) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return nil, false
	}

	label := strings.ToLower(fields[0])
	if i := strings.LastIndex(label, ":"); i >= 0 {
		label = label[i+1:]
	}
	for _, l := range commands.Labels {
		if label == l {
			return fields[1:], true
		}
	}
	return nil, false
}

func playerID(p *remotePlayer) string {
	if p == nil {
		return ""
	}
	return p.ID()
}
