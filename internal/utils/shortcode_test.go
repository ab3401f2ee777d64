package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShortCode(t *testing.T) {
	code, err := GenerateShortCode("5d2f9f3e-1111-2222-3333-444455556666")
	require.NoError(t, err)
	assert.Len(t, code, ShortCodeLength)
	for _, c := range code {
		assert.Contains(t, "0123456789ABCDEF", string(c))
	}
}

func TestGenerateShortCodeVariesPerCall(t *testing.T) {
	const samples = 100
	seen := map[string]bool{}
	for i := 0; i < samples; i++ {
		code, err := GenerateShortCode("same-link-id")
		require.NoError(t, err)
		seen[code] = true
	}
	// salted seed makes repeats for the same link vanishingly unlikely
	assert.Len(t, seen, samples)
}
