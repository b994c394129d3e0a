package jwtx

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/ferryhill/gatehouse/pkg/cryptox"
)

// SigningKeyRecord is the persisted form of a signing key. PrivateKeyPEM is
// ciphertext; the manager's Cipher seals and opens it.
type SigningKeyRecord struct {
	Kid           string
	Alg           string
	PrivateKeyPEM []byte
	CreatedAt     time.Time
	RetiredAt     time.Time // zero while the key is active
	NotAfter      time.Time // zero until retirement schedules removal
}

// Active reports whether the key may still sign new tokens.
func (r SigningKeyRecord) Active() bool {
	return r.RetiredAt.IsZero()
}

// KeyStore persists signing keys across restarts.
type KeyStore interface {
	SaveKey(ctx context.Context, rec SigningKeyRecord) error
	LoadKeys(ctx context.Context) ([]SigningKeyRecord, error)
	RetireKey(ctx context.Context, kid string, retiredAt, notAfter time.Time) error
	DeleteExpiredKeys(ctx context.Context, now time.Time) (int64, error)
}

// Cipher seals private key material before it reaches the store.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// DefaultRetireGrace is how long a retired key remains verifiable, matching
// the longest-lived access token plus slack.
const DefaultRetireGrace = 24 * time.Hour

// PersistentKeyManager is a KeyManager whose keys survive restarts through a
// KeyStore. Rotation retires old keys with a grace window instead of
// deleting them outright.
type PersistentKeyManager struct {
	*KeyManager

	store  KeyStore
	cipher Cipher
	grace  time.Duration
}

// NewPersistentKeyManager wires a manager to its store. A zero grace falls
// back to DefaultRetireGrace.
func NewPersistentKeyManager(store KeyStore, cipher Cipher, grace time.Duration) *PersistentKeyManager {
	if grace <= 0 {
		grace = DefaultRetireGrace
	}
	return &PersistentKeyManager{
		KeyManager: NewKeyManager(),
		store:      store,
		cipher:     cipher,
		grace:      grace,
	}
}

// Load restores all persisted keys. Active records become signers; retired
// ones verify only. An empty store is not an error.
func (m *PersistentKeyManager) Load(ctx context.Context) error {
	recs, err := m.store.LoadKeys(ctx)
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}

	now := time.Now().UTC()
	for _, rec := range recs {
		if !rec.NotAfter.IsZero() && now.After(rec.NotAfter) {
			continue
		}

		priv, err := m.decodeKey(rec)
		if err != nil {
			return fmt.Errorf("decode signing key %s: %w", rec.Kid, err)
		}

		s, err := NewSigner(rec.Alg, rec.Kid, priv)
		if err != nil {
			return fmt.Errorf("restore signing key %s: %w", rec.Kid, err)
		}

		if rec.Active() {
			m.AddSigner(s)
		} else {
			m.addVerifyOnly(s.Kid(), s.Alg(), s.Public())
		}
	}
	return nil
}

// GenerateKey creates, persists and activates a fresh key.
func (m *PersistentKeyManager) GenerateKey(ctx context.Context, alg string) (Signer, error) {
	pemData, err := generateKeyPEM(alg)
	if err != nil {
		return nil, err
	}
	priv, err := parseKeyPEM(pemData)
	if err != nil {
		return nil, err
	}

	kid := newKid(alg)
	s, err := NewSigner(alg, kid, priv)
	if err != nil {
		return nil, err
	}

	sealed := pemData
	if m.cipher != nil {
		sealed, err = m.cipher.Encrypt(pemData)
		if err != nil {
			return nil, fmt.Errorf("seal signing key %s: %w", kid, err)
		}
	}

	rec := SigningKeyRecord{
		Kid:           kid,
		Alg:           alg,
		PrivateKeyPEM: sealed,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.store.SaveKey(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist signing key %s: %w", kid, err)
	}

	m.AddSigner(s)
	return s, nil
}

// Rotate activates a fresh key and retires every other active one. Retired
// keys keep verifying until the grace period lapses.
func (m *PersistentKeyManager) Rotate(ctx context.Context, alg string) (Signer, error) {
	previous := m.ActiveKids()

	s, err := m.GenerateKey(ctx, alg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notAfter := now.Add(m.grace)
	for _, kid := range previous {
		if err := m.store.RetireKey(ctx, kid, now, notAfter); err != nil {
			return nil, fmt.Errorf("retire signing key %s: %w", kid, err)
		}
		if err := m.RetireSigner(kid); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Sweep removes keys whose grace period has passed, in the store and in
// memory. Returns the number of purged records.
func (m *PersistentKeyManager) Sweep(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	n, err := m.store.DeleteExpiredKeys(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep signing keys: %w", err)
	}

	recs, err := m.store.LoadKeys(ctx)
	if err != nil {
		return n, fmt.Errorf("sweep signing keys: %w", err)
	}
	surviving := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		surviving[rec.Kid] = struct{}{}
	}
	for _, kid := range m.KeySet().Kids() {
		if _, ok := surviving[kid]; !ok {
			m.RemoveKey(kid)
		}
	}
	return n, nil
}

func (m *PersistentKeyManager) decodeKey(rec SigningKeyRecord) (crypto.PrivateKey, error) {
	raw := rec.PrivateKeyPEM
	if m.cipher != nil {
		opened, err := m.cipher.Decrypt(raw)
		if err != nil {
			return nil, err
		}
		raw = opened
	}
	return parseKeyPEM(raw)
}

func parseKeyPEM(raw []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	return x509.ParsePKCS8PrivateKey(block.Bytes)
}

func generateKeyPEM(alg string) ([]byte, error) {
	switch alg {
	case AlgRS256:
		return cryptox.GenerateRSAKey(2048)
	case AlgES256:
		return cryptox.GenerateES256Key()
	case AlgEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}

func newKid(alg string) string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return strings.ToLower(alg) + "-" + hex.EncodeToString(b[:])
}
