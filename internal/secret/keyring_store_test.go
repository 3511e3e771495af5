package secret

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyringStore_RoundTrip(t *testing.T) {
	s := NewKeyringStoreWith(keyring.NewArrayKeyring(nil), "")

	_, _, _, found, err := s.Get("nas", "media")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set("NAS", "Media", "WORK", "alice", "s3cret"))

	d, u, p, found, err := s.Get("nas", "media")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "WORK", d)
	assert.Equal(t, "alice", u)
	assert.Equal(t, "s3cret", p)
}

func TestKeyringStore_UserWithoutDomain(t *testing.T) {
	s := NewKeyringStoreWith(keyring.NewArrayKeyring(nil), "test.smb")
	require.NoError(t, s.Set("nas", "media", "", "bob", "pw"))

	d, u, _, found, err := s.Get("nas", "media")
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, d)
	assert.Equal(t, "bob", u)
}

func TestKeyringStore_Delete(t *testing.T) {
	s := NewKeyringStoreWith(keyring.NewArrayKeyring(nil), "")
	require.NoError(t, s.Set("nas", "media", "", "bob", "pw"))
	require.NoError(t, s.Delete("nas", "media"))

	_, _, _, found, err := s.Get("nas", "media")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing entry is not an error.
	assert.NoError(t, s.Delete("nas", "media"))
}
