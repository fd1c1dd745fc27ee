package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}
	for _, pw := range []string{"secret1", "abcdef", "twenty-chars-long!!!", "ünïcødé"} {
		digest, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, digest)
		assert.True(t, h.Compare(pw, digest), pw)
		assert.False(t, h.Compare(pw+"x", digest), pw)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	a := HashToken("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token-a"))
	assert.NotEqual(t, a, HashToken("token-b"))
}

func TestRandomHex(t *testing.T) {
	s, err := RandomHex(16)
	require.NoError(t, err)
	assert.Len(t, s, 32)
}

func TestGenerateUsername(t *testing.T) {
	u := GenerateUsername("Jane  Van Doe")
	assert.True(t, strings.HasPrefix(u, "janevandoe_"), u)
	assert.Len(t, strings.TrimPrefix(u, "janevandoe_"), 8)
}
