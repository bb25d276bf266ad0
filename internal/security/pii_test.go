package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldCipher_RoundTrip(t *testing.T) {
	c, err := NewFieldCipher("local-secret")
	require.NoError(t, err)

	sealed, err := c.Encrypt("+84912345678")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "912345678")

	again, err := c.Encrypt("+84912345678")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "+84912345678", plain)
}

func TestFieldCipher_WrongKeyFails(t *testing.T) {
	a, _ := NewFieldCipher("key-a")
	b, _ := NewFieldCipher("key-b")

	sealed, err := a.Encrypt("079204001234")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.Error(t, err)
}

func TestFieldCipher_EmptyValues(t *testing.T) {
	c, _ := NewFieldCipher("k")
	sealed, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	_, err = NewFieldCipher("")
	assert.Error(t, err)
}
