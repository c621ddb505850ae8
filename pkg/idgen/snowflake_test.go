package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsOutOfRangeWorker(t *testing.T) {
	_, err := New(-1)
	assert.Error(t, err)

	_, err = New(maxWorkerID + 1)
	assert.Error(t, err)
}

func TestGenerate_Increasing(t *testing.T) {
	gen, err := New(3)
	require.NoError(t, err)

	prev := gen.Generate()
	for i := 0; i < 10000; i++ {
		next := gen.Generate()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestTokens_PrefixedAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		tok := GenerateConfirmToken()
		require.True(t, strings.HasPrefix(tok, "DEL"), tok)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)
		seen[tok] = struct{}{}
	}
	assert.True(t, strings.HasPrefix(GenerateEventKey(), "EVT"))
}
