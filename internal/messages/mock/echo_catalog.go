package mockmessages

import (
	"sort"
	"strings"

	"github.com/KirkDiggler/cduello/internal/messages"
)

// EchoCatalog renders a message as its key followed by sorted name=value pairs,
// e.g. "duel-won-money amount=160". Tests assert on keys instead of wording.
type EchoCatalog struct{}

// NewEchoCatalog creates an EchoCatalog
func NewEchoCatalog() *EchoCatalog {
	return &EchoCatalog{}
}

var _ messages.Catalog = (*EchoCatalog)(nil)

// Render echoes key and args
func (c *EchoCatalog) Render(key string, args messages.Args) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(key)
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(args[name])
	}
	return b.String()
}
