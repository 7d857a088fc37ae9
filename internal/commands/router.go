// Package commands implements the /duello command and its tab completion
package commands

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/KirkDiggler/cduello/internal/services"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 5 * time.Second

// Labels the host registers for the command
var Labels = []string{"duello", "duel"}

// ReloadFunc re-reads configuration and messages and applies them
type ReloadFunc func() error

type handlerFunc func(ctx context.Context, p host.Player, args []string) error

type subcommand struct {
	name       string
	aliases    []string
	permission string
	handle     handlerFunc
}

// Router dispatches /duello subcommands
type Router struct {
	provider  *services.Provider
	server    host.Server
	scheduler scheduler.Scheduler
	reload    ReloadFunc
	logger    logrus.FieldLogger

	subcommands []*subcommand
	byName      map[string]*subcommand
}

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Provider  *services.Provider  // Required
	Server    host.Server         // Required
	Scheduler scheduler.Scheduler // Required
	Reload    ReloadFunc          // Optional, reload reports an error when nil
	Logger    logrus.FieldLogger  // Optional
}

// NewRouter creates a router with every subcommand registered
func NewRouter(cfg *RouterConfig) *Router {
	if cfg == nil {
		panic("RouterConfig cannot be nil")
	}
	if cfg.Provider == nil {
		panic("provider is required")
	}
	if cfg.Server == nil {
		panic("server is required")
	}
	if cfg.Scheduler == nil {
		panic("scheduler is required")
	}

	r := &Router{
		provider:  cfg.Provider,
		server:    cfg.Server,
		scheduler: cfg.Scheduler,
		reload:    cfg.Reload,
		logger:    cfg.Logger,
		byName:    make(map[string]*subcommand),
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	r.logger = r.logger.WithField("component", "commands")

	r.register(&subcommand{name: "accept", aliases: []string{"kabul"}, permission: host.PermissionUse, handle: r.accept})
	r.register(&subcommand{name: "deny", aliases: []string{"reddet"}, permission: host.PermissionUse, handle: r.deny})
	r.register(&subcommand{name: "stats", aliases: []string{"istatistik"}, permission: host.PermissionUse, handle: r.stats})
	r.register(&subcommand{name: "top", aliases: []string{"siralama"}, permission: host.PermissionUse, handle: r.top})
	r.register(&subcommand{name: "help", aliases: []string{"yardim"}, handle: r.help})
	r.register(&subcommand{name: "arena", permission: host.PermissionAdmin, handle: r.arena})
	r.register(&subcommand{name: "admin", permission: host.PermissionAdmin, handle: r.admin})
	r.register(&subcommand{name: "reload", permission: host.PermissionAdmin, handle: r.reloadCommand})
	return r
}

func (r *Router) register(sc *subcommand) {
	r.subcommands = append(r.subcommands, sc)
	r.byName[sc.name] = sc
	for _, alias := range sc.aliases {
		r.byName[alias] = sc
	}
}

// Handle runs the command line a player typed after the label
func (r *Router) Handle(p host.Player, args []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"player": p.ID(),
				"panic":  rec,
				"stack":  string(debug.Stack()),
			}).Error("Command panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := r.dispatch(ctx, p, args); err != nil {
		r.report(p, err)
	}
}

func (r *Router) dispatch(ctx context.Context, p host.Player, args []string) error {
	if len(args) == 0 {
		return r.help(ctx, p, nil)
	}

	if sc, ok := r.byName[strings.ToLower(args[0])]; ok {
		if sc.permission != "" && !p.HasPermission(sc.permission) {
			return noPermission()
		}
		return sc.handle(ctx, p, args[1:])
	}

	if !p.HasPermission(host.PermissionUse) {
		return noPermission()
	}
	return r.challenge(ctx, p, args)
}

// report tells the player what went wrong. Errors without a message key are
// only logged; conflicts lost to another state change are expected.
func (r *Router) report(p host.Player, err error) {
	code := duelerr.GetCode(err)
	logger := r.logger.WithError(err).WithFields(logrus.Fields{
		"player": p.ID(),
		"code":   code,
	})

	key := duelerr.MessageKey(err)
	if key == "" {
		if code == duelerr.CodeConflict {
			logger.Warn("Command abandoned")
			return
		}
		logger.Error("Command failed")
		return
	}

	logger.Debug("Command rejected")
	r.provider.Messenger.Send(p, key, messages.Args(duelerr.MessageArgs(err)))
}

// reportAsync reports the outcome of work that finished after the command returned
func (r *Router) reportAsync(p host.Player) func(error) {
	return func(err error) {
		if err != nil {
			r.report(p, err)
		}
	}
}

func noPermission() error {
	return duelerr.PermissionDenied("missing permission").WithMessage("no-permission")
}
