package repositories_test

import (
	"fmt"
	"testing"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/repositories"
	"github.com/stretchr/testify/assert"
)

func TestRecordNotFound(t *testing.T) {
	err := repositories.NewRecordNotFoundError("colosseum")

	assert.True(t, repositories.IsNotFound(err))
	assert.Equal(t, duelerr.CodeNotFound, duelerr.GetCode(err))
	assert.Equal(t, "record error: colosseum", err.Error())
	assert.Equal(t, "colosseum", duelerr.GetMeta(err)["record_id"])
}

func TestRecordNotFoundSurvivesWrapping(t *testing.T) {
	var err error = duelerr.Wrap(repositories.NewRecordNotFoundError("p1"), "failed to load stats")
	assert.True(t, repositories.IsNotFound(err))

	err = fmt.Errorf("loading: %w", repositories.NewRecordNotFoundError("p1"))
	assert.True(t, repositories.IsNotFound(err))
}

func TestInvalidRecord(t *testing.T) {
	err := repositories.NewInvalidRecordError("arena ID cannot be empty")

	assert.False(t, repositories.IsNotFound(err))
	assert.True(t, duelerr.IsInvalidArgument(err))
	assert.Equal(t, "record error: arena ID cannot be empty", err.Error())
}

func TestIsNotFoundIgnoresOtherErrors(t *testing.T) {
	assert.False(t, repositories.IsNotFound(nil))
	assert.False(t, repositories.IsNotFound(fmt.Errorf("boom")))
	assert.True(t, repositories.IsNotFound(duelerr.NotFoundf("stats for %s not found", "p1")))
}
