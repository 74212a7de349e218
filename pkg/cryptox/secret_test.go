package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := HashSecret("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifySecret("correct horse battery staple", hash))
	require.ErrorIs(t, VerifySecret("wrong", hash), ErrMismatch)
}

func TestHashSecretSaltsAreUnique(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	a, err := HashSecret("1234")
	require.NoError(t, err)
	b, err := HashSecret("1234")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	require.NoError(t, VerifySecret("1234", a))
	require.NoError(t, VerifySecret("1234", b))
}

func TestVerifySecretRejectsMalformedHashes(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	for _, h := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		err := VerifySecret("pw", h)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrMismatch)
	}
}

func TestGenerateTokenAndFingerprint(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	require.Equal(t, FingerprintToken(tok), FingerprintToken(tok))
	require.NotEqual(t, FingerprintToken(tok), FingerprintToken(other))

	_, err = GenerateToken(0)
	require.Error(t, err)
}
