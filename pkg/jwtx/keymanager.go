package jwtx

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
)

// KeyManager owns the signing keys for a token issuer. Active keys sign new
// tokens; retired keys stay verifiable until their grace period lapses so
// in-flight tokens survive a rotation.
type KeyManager struct {
	mu      sync.RWMutex
	signers map[string]Signer
	keys    *KeySet
}

// NewKeyManager returns an empty manager. Callers add keys with AddSigner.
func NewKeyManager() *KeyManager {
	return &KeyManager{
		signers: make(map[string]Signer),
		keys:    NewKeySet(),
	}
}

// AddSigner registers a signing key as active.
func (m *KeyManager) AddSigner(s Signer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signers[s.Kid()] = s
	m.keys.Add(s.Kid(), s.Alg(), s.Public())
}

// GetSigner picks one of the active keys at random. Random selection keeps
// all active keys warm during a rotation overlap.
func (m *KeyManager) GetSigner() (Signer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.signers) == 0 {
		return nil, ErrNoKeys
	}

	kids := make([]string, 0, len(m.signers))
	for kid := range m.signers {
		kids = append(kids, kid)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(kids))))
	if err != nil {
		return nil, fmt.Errorf("select signer: %w", err)
	}
	return m.signers[kids[n.Int64()]], nil
}

// GetSignerByKid returns a specific active signer.
func (m *KeyManager) GetSignerByKid(kid string) (Signer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.signers[kid]
	if !ok {
		return nil, ErrUnknownKid
	}
	return s, nil
}

// RetireSigner stops signing with the key but keeps it verifiable. Returns
// ErrUnknownKid if the key is not active, ErrNoKeys if it is the last one.
func (m *KeyManager) RetireSigner(kid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.signers[kid]; !ok {
		return ErrUnknownKid
	}
	if len(m.signers) == 1 {
		return ErrNoKeys
	}
	delete(m.signers, kid)
	return nil
}

// RemoveKey drops a key entirely, including verification.
func (m *KeyManager) RemoveKey(kid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signers, kid)
	m.keys.Remove(kid)
}

// KeySet exposes the verification keys, including retired ones.
func (m *KeyManager) KeySet() *KeySet {
	return m.keys
}

// Verifier returns a verifier over the manager's key set.
func (m *KeyManager) Verifier() Verifier {
	return NewKeySetVerifier(m.keys)
}

// JWKS renders the public document for all verifiable keys.
func (m *KeyManager) JWKS() (JWKS, error) {
	entries := m.keys.Entries()

	doc := JWKS{Keys: make([]JWK, 0, len(entries))}
	for kid, entry := range entries {
		jwk, err := NewJWK(kid, entry.Alg, entry.Key)
		if err != nil {
			return JWKS{}, err
		}
		doc.Keys = append(doc.Keys, jwk)
	}
	return doc, nil
}

// ActiveKids lists the kids currently eligible to sign.
func (m *KeyManager) ActiveKids() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kids := make([]string, 0, len(m.signers))
	for kid := range m.signers {
		kids = append(kids, kid)
	}
	return kids
}

// addVerifyOnly registers a public key for verification without signing.
func (m *KeyManager) addVerifyOnly(kid, alg string, key crypto.PublicKey) {
	m.keys.Add(kid, alg, key)
}
