// Package messages renders player-facing text from a YAML catalog
package messages

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_messages.yml
var defaultMessages []byte

// Args maps placeholder names to values. A placeholder is written %name% in a template.
type Args map[string]string

// Catalog turns a message key into display text
type Catalog interface {
	Render(key string, args Args) string
}

type catalogFile struct {
	Prefix   string            `yaml:"prefix"`
	Messages map[string]string `yaml:"messages"`
}

// YAMLCatalog is a Catalog loaded from YAML
type YAMLCatalog struct {
	prefix   string
	messages map[string]string
}

// Default returns the catalog embedded in the binary
func Default() *YAMLCatalog {
	c, err := Parse(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("embedded messages are invalid: %v", err))
	}
	return c
}

// Parse reads a catalog document
func Parse(data []byte) (*YAMLCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	if file.Messages == nil {
		file.Messages = make(map[string]string)
	}
	return &YAMLCatalog{prefix: file.Prefix, messages: file.Messages}, nil
}

// Load returns the embedded catalog overlaid with the file at path. An empty path
// returns the embedded catalog.
func Load(path string) (*YAMLCatalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	overlay, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if overlay.prefix != "" {
		base.prefix = overlay.prefix
	}
	for k, v := range overlay.messages {
		base.messages[k] = v
	}
	return base, nil
}

// Keys lists every key in the catalog, sorted
func (c *YAMLCatalog) Keys() []string {
	keys := make([]string, 0, len(c.messages))
	for k := range c.messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render fills a template and converts legacy colour codes to MiniMessage tags
func (c *YAMLCatalog) Render(key string, args Args) string {
	template, ok := c.messages[key]
	if !ok {
		return "Message not found: " + key
	}

	out := strings.ReplaceAll(template, "%prefix%", c.prefix)
	for name, value := range args {
		out = strings.ReplaceAll(out, "%"+name+"%", value)
	}
	return LegacyToMiniMessage(out)
}

var legacyCodes = strings.NewReplacer(
	"&0", "<black>",
	"&1", "<dark_blue>",
	"&2", "<dark_green>",
	"&3", "<dark_aqua>",
	"&4", "<dark_red>",
	"&5", "<dark_purple>",
	"&6", "<gold>",
	"&7", "<gray>",
	"&8", "<dark_gray>",
	"&9", "<blue>",
	"&a", "<green>",
	"&b", "<aqua>",
	"&c", "<red>",
	"&d", "<light_purple>",
	"&e", "<yellow>",
	"&f", "<white>",
	"&l", "<bold>",
	"&m", "<strikethrough>",
	"&n", "<underlined>",
	"&o", "<italic>",
	"&r", "<reset>",
)

// LegacyToMiniMessage rewrites &-style colour codes as MiniMessage tags
func LegacyToMiniMessage(s string) string {
	return legacyCodes.Replace(s)
}
