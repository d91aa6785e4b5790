package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := newErr(KindNoRequisite, "no requisite available").with("method", "card")
	wrapped := fmt.Errorf("allocate: %w", err)

	assert.ErrorIs(t, wrapped, ErrNoRequisite)
	assert.NotErrorIs(t, wrapped, ErrValidation)
	assert.Equal(t, KindNoRequisite, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestStoreErr(t *testing.T) {
	assert.NoError(t, storeErr("op", nil))
	assert.ErrorIs(t, storeErr("op", repo.ErrTimeout), ErrStoreTimeout)
	assert.ErrorIs(t, storeErr("op", context.DeadlineExceeded), ErrStoreTimeout)
	assert.ErrorIs(t, storeErr("op", repo.ErrConflict), ErrStoreConflict)

	other := errors.New("boom")
	err := storeErr("op", other)
	assert.ErrorIs(t, err, other)
	assert.Equal(t, ErrorKind(""), KindOf(err))
}
