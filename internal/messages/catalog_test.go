package messages_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KirkDiggler/cduello/internal/entities"
	mockhost "github.com/KirkDiggler/cduello/internal/host/mock"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_Render(t *testing.T) {
	catalog := messages.Default()

	text := catalog.Render("duel-request-sent-money", messages.Args{
		"player": "Bob",
		"amount": "1.000",
	})

	assert.Equal(t,
		"<dark_gray>[<aqua>cDuello<dark_gray>] <reset><green>Duel request sent to <yellow>Bob<green> for <gold>1.000<green>.",
		text)
}

func TestDefaultCatalog_HasCoreKeys(t *testing.T) {
	keys := messages.Default().Keys()
	for _, key := range []string{
		"already-in-duel", "no-pending-requests", "duel-countdown", "duel-countdown-freeze",
		"duel-won-money", "duel-lost-money", "duel-cancelled-admin", "no-commands-in-duel",
		"high-value-duel-announcement", "high-value-duel-result",
	} {
		assert.Contains(t, keys, key)
	}
}

func TestCatalog_MissingKey(t *testing.T) {
	assert.Equal(t, "Message not found: nope", messages.Default().Render("nope", nil))
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yml")
	err := os.WriteFile(path, []byte("prefix: \"[D] \"\nmessages:\n  duel-won: \"%prefix%Zafer!\"\n"), 0o600)
	require.NoError(t, err)

	catalog, err := messages.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "[D] Zafer!", catalog.Render("duel-won", nil))
	assert.Equal(t, "[D] <red>You lost the duel.", catalog.Render("duel-lost", nil))
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yml")
	require.NoError(t, os.WriteFile(path, []byte("messages: [oops"), 0o600))

	_, err := messages.Load(path)
	assert.Error(t, err)
}

func TestMessenger_SendTo(t *testing.T) {
	server := mockhost.NewFakeServer()
	alice := server.Join("alice", "Alice", entities.Location{})
	messenger := messages.NewMessenger(server, messages.Default())

	assert.True(t, messenger.SendTo("alice", "duel-won", nil))
	assert.False(t, messenger.SendTo("ghost", "duel-won", nil))
	assert.Contains(t, alice.LastMessage(), "You won the duel!")
}
