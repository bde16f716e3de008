package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldCipherRoundTrip(t *testing.T) {
	c, err := NewFieldCipher("a sufficiently long secret")
	require.NoError(t, err)

	sealed, err := c.Seal("drink water before lunch")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "water")

	again, err := c.Seal("drink water before lunch")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "drink water before lunch", plain)
}

func TestFieldCipherPassThrough(t *testing.T) {
	var disabled *FieldCipher
	v, err := disabled.Seal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	c, err := NewFieldCipher("")
	require.NoError(t, err)
	assert.Nil(t, c)

	enabled, err := NewFieldCipher("a sufficiently long secret")
	require.NoError(t, err)
	legacy, err := enabled.Open("written before encryption")
	require.NoError(t, err)
	assert.Equal(t, "written before encryption", legacy)
}

func TestFieldCipherRejectsTampering(t *testing.T) {
	c, err := NewFieldCipher("a sufficiently long secret")
	require.NoError(t, err)
	other, err := NewFieldCipher("another long enough secret")
	require.NoError(t, err)

	sealed, err := c.Seal("goal")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrCiphertext)

	_, err = c.Open(sealedPrefix + "!!!")
	assert.ErrorIs(t, err, ErrCiphertext)
}

func TestNewFieldCipherShortSecret(t *testing.T) {
	_, err := NewFieldCipher("short")
	assert.Error(t, err)
}
