package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := HashSecret("s3cret-value")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifySecret("s3cret-value", hash))
	require.ErrorIs(t, VerifySecret("wrong", hash), ErrSecretMismatch)
}

func TestHashSecretSaltsEachCall(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	a, err := HashSecret("same")
	require.NoError(t, err)
	b, err := HashSecret("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifySecretRejectsMalformedHashes(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	cases := []string{
		"",
		"plainly-not-a-hash",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	}
	for _, h := range cases {
		require.Error(t, VerifySecret("anything", h), "hash %q", h)
	}
}

func TestGenerateAndFingerprintToken(t *testing.T) {
	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	_, err = GenerateToken(0)
	require.Error(t, err)

	fp1 := FingerprintToken(tok)
	fp2 := FingerprintToken(tok)
	require.Equal(t, fp1, fp2)
	require.NotEqual(t, tok, fp1)
}
