package commands

import (
	"sort"
	"strings"

	"github.com/KirkDiggler/cduello/internal/host"
)

// Complete offers tab completions for the argument being typed, the last of args
func (r *Router) Complete(p host.Player, args []string) []string {
	if len(args) == 0 {
		return nil
	}
	prefix := strings.ToLower(args[len(args)-1])

	var options []string
	switch len(args) {
	case 1:
		for _, sc := range r.subcommands {
			if sc.permission == "" || p.HasPermission(sc.permission) {
				options = append(options, sc.name)
			}
		}
		if p.HasPermission(host.PermissionUse) {
			for _, other := range r.server.OnlinePlayers() {
				if other.ID() != p.ID() {
					options = append(options, other.Name())
				}
			}
		}

	case 2:
		if !p.HasPermission(host.PermissionAdmin) {
			return nil
		}
		switch strings.ToLower(args[0]) {
		case "arena":
			options = arenaSubcommands
		case "admin":
			options = adminSubcommands
		}

	case 3:
		if !p.HasPermission(host.PermissionAdmin) || strings.ToLower(args[0]) != "arena" {
			return nil
		}
		if arenaIDArgument[arenaAliases[strings.ToLower(args[1])]] {
			options = r.provider.Arenas.IDs()
		}
	}

	var out []string
	for _, option := range options {
		if strings.HasPrefix(strings.ToLower(option), prefix) {
			out = append(out, option)
		}
	}
	sort.Strings(out)
	return out
}
