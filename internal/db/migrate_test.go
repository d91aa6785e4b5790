package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingCandidates(t *testing.T) {
	names, err := pendingCandidates()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.up.sql", names[0])
	assert.IsIncreasing(t, names)
}
