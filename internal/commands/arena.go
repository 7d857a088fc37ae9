package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
)

// arena subcommand names with their Turkish aliases
var arenaAliases = map[string]string{
	"list":             "list",
	"liste":            "list",
	"create":           "create",
	"olustur":          "create",
	"delete":           "delete",
	"sil":              "delete",
	"rename":           "rename",
	"yenidenadlandir":  "rename",
	"info":             "info",
	"bilgi":            "info",
	"pos1":             "pos1",
	"pos2":             "pos2",
	"enable":           "enable",
	"aktif":            "enable",
	"disable":          "disable",
	"deaktif":          "disable",
}

var arenaSubcommands = []string{"list", "create", "delete", "rename", "info", "pos1", "pos2", "enable", "disable"}

// arena subcommands whose next argument is an arena id
var arenaIDArgument = map[string]bool{
	"delete": true, "rename": true, "info": true, "pos1": true, "pos2": true, "enable": true, "disable": true,
}

func (r *Router) arena(_ context.Context, p host.Player, args []string) error {
	if len(args) == 0 {
		return r.arenaList(p)
	}

	arenas := r.provider.Arenas
	m := r.provider.Messenger
	rest := args[1:]

	switch arenaAliases[strings.ToLower(args[0])] {
	case "list":
		return r.arenaList(p)

	case "create":
		if len(rest) < 1 {
			return usage("arena-create-usage")
		}
		name := rest[0]
		if len(rest) > 1 {
			name = strings.Join(rest[1:], " ")
		}
		a, err := arenas.CreateFromSelection(p.ID(), rest[0], name)
		if err != nil {
			return err
		}
		m.Send(p, "arena-created", messages.Args{"arena": a.Name, "id": a.ID})

	case "delete":
		if len(rest) < 1 {
			return usage("arena-delete-usage")
		}
		if err := arenas.Delete(rest[0]); err != nil {
			return err
		}
		m.Send(p, "arena-deleted", messages.Args{"arena": rest[0]})

	case "rename":
		if len(rest) < 2 {
			return usage("arena-rename-usage")
		}
		name := strings.Join(rest[1:], " ")
		if err := arenas.Rename(rest[0], name); err != nil {
			return err
		}
		m.Send(p, "arena-renamed", messages.Args{"arena": rest[0], "name": name})

	case "info":
		if len(rest) < 1 {
			return usage("arena-info-usage")
		}
		a, err := arenas.Get(rest[0])
		if err != nil {
			return err
		}
		m.Send(p, "arena-info", messages.Args{
			"arena":  a.Name,
			"id":     a.ID,
			"world":  a.World,
			"pos1":   formatLocation(a.Pos1),
			"pos2":   formatLocation(a.Pos2),
			"status": r.arenaStatus(a),
		})

	case "pos1", "pos2":
		return r.arenaPosition(p, arenaAliases[strings.ToLower(args[0])], rest)

	case "enable", "disable":
		if len(rest) < 1 {
			return usage("arena-toggle-usage")
		}
		enabled := arenaAliases[strings.ToLower(args[0])] == "enable"
		if err := arenas.SetEnabled(rest[0], enabled); err != nil {
			return err
		}
		key := "arena-disabled"
		if enabled {
			key = "arena-enabled"
		}
		m.Send(p, key, messages.Args{"arena": rest[0]})

	default:
		return r.arenaList(p)
	}
	return nil
}

// arenaPosition stores the admin's location as a selection corner, or on an
// existing arena when an id is given
func (r *Router) arenaPosition(p host.Player, which string, rest []string) error {
	arenas := r.provider.Arenas
	loc := p.Location()

	if len(rest) > 0 {
		var err error
		if which == "pos1" {
			err = arenas.SetPos1(rest[0], loc)
		} else {
			err = arenas.SetPos2(rest[0], loc)
		}
		if err != nil {
			return err
		}
	} else if which == "pos1" {
		arenas.SelectPos1(p.ID(), loc)
	} else {
		arenas.SelectPos2(p.ID(), loc)
	}

	r.provider.Messenger.Send(p, "arena-"+which+"-set", nil)
	return nil
}

func (r *Router) arenaList(p host.Player) error {
	m := r.provider.Messenger
	all := r.provider.Arenas.List()
	if len(all) == 0 {
		m.Send(p, "arena-list-empty", nil)
		return nil
	}

	m.Send(p, "arena-list-header", messages.Args{"count": strconv.Itoa(len(all))})
	for _, a := range all {
		m.Send(p, "arena-list-entry", messages.Args{"arena": a.Name, "id": a.ID, "status": r.arenaStatus(a)})
	}
	return nil
}

func (r *Router) arenaStatus(a *entities.Arena) string {
	if a.Enabled {
		return r.provider.Messenger.Render("arena-status-enabled", nil)
	}
	return r.provider.Messenger.Render("arena-status-disabled", nil)
}

func formatLocation(loc *entities.Location) string {
	if loc == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f,%.1f,%.1f", loc.X, loc.Y, loc.Z)
}

func usage(key string) error {
	return duelerr.InvalidArgument("missing arguments").WithMessage(key)
}
