package jwtx

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRSASigner(t *testing.T, kid string) Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	s, err := NewRS256Signer(kid, key)
	require.NoError(t, err)
	return s
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	for _, alg := range []string{AlgRS256, AlgES256, AlgEdDSA} {
		t.Run(alg, func(t *testing.T) {
			var (
				s   Signer
				err error
			)
			switch alg {
			case AlgRS256:
				s = newTestRSASigner(t, "rt-rsa")
			case AlgES256:
				key, kerr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.NoError(t, kerr)
				s, err = NewES256Signer("rt-ec", key)
				require.NoError(t, err)
			case AlgEdDSA:
				_, key, kerr := ed25519.GenerateKey(rand.Reader)
				require.NoError(t, kerr)
				s, err = NewEdDSASigner("rt-ed", key)
				require.NoError(t, err)
			}

			claims := NewAccessClaims(
				"client-1", "sess-1",
				[]string{"api:read"}, []string{AMRClient},
				time.Minute, "https://issuer.test", []string{"api"},
				"Test Client", time.Now().UTC(),
			)

			token, err := s.Sign(claims)
			require.NoError(t, err)

			ks := NewKeySet()
			ks.Add(s.Kid(), s.Alg(), s.Public())

			got, err := NewKeySetVerifier(ks).Verify(token)
			require.NoError(t, err)
			require.Equal(t, "client-1", got.Subject)
			require.Equal(t, "sess-1", got.SID)
			require.Equal(t, []string{"api:read"}, got.Scopes)
			require.Equal(t, []string{AMRClient}, got.AMR)
		})
	}
}

func TestGenerateSignerRoundTrip(t *testing.T) {
	for _, alg := range []string{AlgRS256, AlgES256, AlgEdDSA} {
		t.Run(alg, func(t *testing.T) {
			s, err := GenerateSigner(alg)
			require.NoError(t, err)
			require.Equal(t, alg, s.Alg())
			require.NotEmpty(t, s.Kid())

			claims := NewAccessClaims(
				"client-1", "sess-1",
				[]string{"api:read"}, []string{AMRClient},
				time.Minute, "https://issuer.test", []string{"api"},
				"Test Client", time.Now().UTC(),
			)

			token, err := s.Sign(claims)
			require.NoError(t, err)

			ks := NewKeySet()
			ks.Add(s.Kid(), s.Alg(), s.Public())

			got, err := NewKeySetVerifier(ks).Verify(token)
			require.NoError(t, err)
			require.Equal(t, "client-1", got.Subject)
		})
	}

	_, err := GenerateSigner("HS256")
	require.Error(t, err)
}

func TestVerifyRejectsUnknownKid(t *testing.T) {
	s := newTestRSASigner(t, "known")

	claims := NewAccessClaims("c", "s", nil, nil, time.Minute, "iss", nil, "", time.Now())
	token, err := s.Sign(claims)
	require.NoError(t, err)

	other := newTestRSASigner(t, "other")
	ks := NewKeySet()
	ks.Add(other.Kid(), other.Alg(), other.Public())

	_, err = NewKeySetVerifier(ks).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := newTestRSASigner(t, "exp")

	past := time.Now().Add(-2 * time.Hour)
	claims := NewAccessClaims("c", "s", nil, nil, time.Minute, "iss", nil, "", past)
	token, err := s.Sign(claims)
	require.NoError(t, err)

	ks := NewKeySet()
	ks.Add(s.Kid(), s.Alg(), s.Public())

	_, err = NewKeySetVerifier(ks).Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestWeakRSAKeyRejected(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	_, err = NewRS256Signer("weak", key)
	require.Error(t, err)
}

func TestClaimsIssuerAndAudience(t *testing.T) {
	claims := NewAccessClaims(
		"c", "s", nil, nil, time.Minute,
		"https://issuer.test", []string{"api", "admin"}, "", time.Now(),
	)

	require.NoError(t, claims.ValidateIssuer("https://issuer.test"))
	require.ErrorIs(t, claims.ValidateIssuer("https://other.test"), ErrIssuer)
	require.NoError(t, claims.ValidateIssuer(""))

	require.NoError(t, claims.ValidateAudience([]string{"admin"}))
	require.ErrorIs(t, claims.ValidateAudience([]string{"nope"}), ErrAudience)
	require.NoError(t, claims.ValidateAudience(nil))
}

func TestKeyManagerRotationKeepsVerification(t *testing.T) {
	m := NewKeyManager()
	old := newTestRSASigner(t, "gen-1")
	m.AddSigner(old)

	claims := NewAccessClaims("c", "s", nil, nil, time.Minute, "iss", nil, "", time.Now())
	token, err := old.Sign(claims)
	require.NoError(t, err)

	m.AddSigner(newTestRSASigner(t, "gen-2"))
	require.NoError(t, m.RetireSigner("gen-1"))

	// Retired key no longer signs.
	_, err = m.GetSignerByKid("gen-1")
	require.ErrorIs(t, err, ErrUnknownKid)

	// But its tokens still verify until removed.
	_, err = m.Verifier().Verify(token)
	require.NoError(t, err)

	m.RemoveKey("gen-1")
	_, err = m.Verifier().Verify(token)
	require.Error(t, err)
}

func TestKeyManagerRefusesRetiringLastKey(t *testing.T) {
	m := NewKeyManager()
	m.AddSigner(newTestRSASigner(t, "only"))
	require.ErrorIs(t, m.RetireSigner("only"), ErrNoKeys)
}

func TestJWKSRoundTrip(t *testing.T) {
	m := NewKeyManager()
	m.AddSigner(newTestRSASigner(t, "pub-1"))

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edSigner, err := NewEdDSASigner("pub-2", edPriv)
	require.NoError(t, err)
	m.AddSigner(edSigner)

	doc, err := m.JWKS()
	require.NoError(t, err)
	require.Len(t, doc.Keys, 2)

	ks := NewKeySet()
	require.NoError(t, ks.FromJWKS(doc))

	entry, ok := ks.Get("pub-2")
	require.True(t, ok)
	require.Equal(t, AlgEdDSA, entry.Alg)
	require.Equal(t, ed25519.PublicKey(edPub), entry.Key)
}

type memKeyStore struct {
	recs map[string]SigningKeyRecord
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{recs: make(map[string]SigningKeyRecord)}
}

func (m *memKeyStore) SaveKey(_ context.Context, rec SigningKeyRecord) error {
	m.recs[rec.Kid] = rec
	return nil
}

func (m *memKeyStore) LoadKeys(_ context.Context) ([]SigningKeyRecord, error) {
	out := make([]SigningKeyRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memKeyStore) RetireKey(_ context.Context, kid string, retiredAt, notAfter time.Time) error {
	rec, ok := m.recs[kid]
	if !ok {
		return ErrUnknownKid
	}
	rec.RetiredAt = retiredAt
	rec.NotAfter = notAfter
	m.recs[kid] = rec
	return nil
}

func (m *memKeyStore) DeleteExpiredKeys(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for kid, rec := range m.recs {
		if !rec.NotAfter.IsZero() && now.After(rec.NotAfter) {
			delete(m.recs, kid)
			n++
		}
	}
	return n, nil
}

func TestPersistentKeyManagerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newMemKeyStore()

	m1 := NewPersistentKeyManager(store, nil, time.Hour)
	s, err := m1.GenerateKey(ctx, AlgEdDSA)
	require.NoError(t, err)

	claims := NewAccessClaims("c", "s", nil, nil, time.Minute, "iss", nil, "", time.Now())
	token, err := s.Sign(claims)
	require.NoError(t, err)

	// A fresh manager over the same store verifies and signs with the
	// restored key.
	m2 := NewPersistentKeyManager(store, nil, time.Hour)
	require.NoError(t, m2.Load(ctx))

	_, err = m2.Verifier().Verify(token)
	require.NoError(t, err)

	restored, err := m2.GetSignerByKid(s.Kid())
	require.NoError(t, err)
	require.Equal(t, s.Alg(), restored.Alg())
}

func TestPersistentKeyManagerRotate(t *testing.T) {
	ctx := context.Background()
	store := newMemKeyStore()

	m := NewPersistentKeyManager(store, nil, time.Hour)
	first, err := m.GenerateKey(ctx, AlgES256)
	require.NoError(t, err)

	second, err := m.Rotate(ctx, AlgES256)
	require.NoError(t, err)
	require.NotEqual(t, first.Kid(), second.Kid())

	// Only the fresh key signs.
	require.Equal(t, []string{second.Kid()}, m.ActiveKids())

	// The retired record carries its removal deadline.
	rec := store.recs[first.Kid()]
	require.False(t, rec.Active())
	require.False(t, rec.NotAfter.IsZero())

	// Sweep after the grace period drops the retired key entirely.
	rec.NotAfter = time.Now().Add(-time.Minute)
	store.recs[first.Kid()] = rec

	purged, err := m.Sweep(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok := m.KeySet().Get(first.Kid())
	require.False(t, ok)
}
