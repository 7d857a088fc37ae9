package uuid_test

import (
	"testing"

	"github.com/KirkDiggler/cduello/internal/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleUUIDGenerator_New(t *testing.T) {
	gen := uuid.NewGoogleUUIDGenerator()

	first := gen.New()
	second := gen.New()

	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestNormalizePlayerID(t *testing.T) {
	t.Run("accepts undashed ids", func(t *testing.T) {
		id, err := uuid.NormalizePlayerID("069A79F444E94726A5BEFCA90E38AAF5")
		require.NoError(t, err)
		assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", id)
	})

	t.Run("keeps canonical ids", func(t *testing.T) {
		id, err := uuid.NormalizePlayerID("069a79f4-44e9-4726-a5be-fca90e38aaf5")
		require.NoError(t, err)
		assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", id)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := uuid.NormalizePlayerID("Notch")
		assert.Error(t, err)
	})
}
