package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	cipher, err := NewCipher("secret-key")
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("api-token-123")
	require.NoError(t, err)
	assert.NotEqual(t, "api-token-123", encrypted)

	decrypted, err := cipher.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "api-token-123", decrypted)
}

func TestCipher_NonDeterministic(t *testing.T) {
	cipher, err := NewCipher("secret-key")
	require.NoError(t, err)

	first, err := cipher.Encrypt("same-plaintext")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same-plaintext")
	require.NoError(t, err)

	// Свежий nonce на каждое шифрование
	assert.NotEqual(t, first, second)
}

func TestCipher_WrongKey(t *testing.T) {
	cipher, err := NewCipher("secret-key")
	require.NoError(t, err)
	other, err := NewCipher("different-key")
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("api-token-123")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	assert.Error(t, err)
}

func TestCipher_GarbageInput(t *testing.T) {
	cipher, err := NewCipher("secret-key")
	require.NoError(t, err)

	_, err = cipher.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	_, err = cipher.Decrypt("dG9vc2hvcnQ=")
	assert.Error(t, err)
}

func TestNewCipher_EmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
