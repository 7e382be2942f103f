package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveIDSeparatesSeedBoundaries(t *testing.T) {
	a := DeriveID([]byte("ab"), []byte("c"))
	b := DeriveID([]byte("a"), []byte("bc"))
	require.NotEqual(t, a, b)
	require.Equal(t, a, DeriveID([]byte("ab"), []byte("c")))
}

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()
	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Raw(), decoded.Raw())
	require.Equal(t, DipPrefix, decoded.Prefix())
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	payload := []byte(`{"handler":"create_stake"}`)
	sig, err := key.SignPayload(payload)
	require.NoError(t, err)
	signer, err := RecoverSigner(payload, sig)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Raw(), signer.Raw())

	other, err := RecoverSigner([]byte("tampered"), sig)
	require.NoError(t, err)
	require.NotEqual(t, signer.Raw(), other.Raw())

	_, err = RecoverSigner(payload, sig[:10])
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "signer.keystore")
	require.NoError(t, SaveToKeystore(path, key, "pass"))
	loaded, err := LoadFromKeystore(path, "pass")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())
	_, err = LoadFromKeystore(path, "wrong")
	require.ErrorIs(t, err, ErrWrongPassphrase)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	other, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, SaveToKeystore(path, other, "pass"))
	loaded, err = LoadFromKeystore(path, "pass")
	require.NoError(t, err)
	require.Equal(t, other.Bytes(), loaded.Bytes())
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.ErrorIs(t, SaveToKeystore("", key, "pass"), ErrKeystorePath)
	_, err = LoadFromKeystore("", "pass")
	require.ErrorIs(t, err, ErrKeystorePath)
}
