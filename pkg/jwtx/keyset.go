package jwtx

import (
	"crypto"
	"sync"
)

// KeySetEntry pairs a public key with the algorithm it verifies.
type KeySetEntry struct {
	Alg string
	Key crypto.PublicKey
}

// KeySet is a concurrency-safe kid -> public key map shared between the
// verifier and the JWKS endpoint.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]KeySetEntry
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]KeySetEntry)}
}

func (ks *KeySet) Add(kid, alg string, key crypto.PublicKey) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[kid] = KeySetEntry{Alg: alg, Key: key}
}

func (ks *KeySet) Remove(kid string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	delete(ks.keys, kid)
}

func (ks *KeySet) Get(kid string) (KeySetEntry, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	entry, ok := ks.keys[kid]
	return entry, ok
}

// Kids returns the key ids currently in the set, in no particular order.
func (ks *KeySet) Kids() []string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	kids := make([]string, 0, len(ks.keys))
	for kid := range ks.keys {
		kids = append(kids, kid)
	}
	return kids
}

// Entries returns a snapshot of the set keyed by kid.
func (ks *KeySet) Entries() map[string]KeySetEntry {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := make(map[string]KeySetEntry, len(ks.keys))
	for kid, entry := range ks.keys {
		out[kid] = entry
	}
	return out
}

// FromJWKS replaces the set's contents with the keys of a parsed JWKS.
func (ks *KeySet) FromJWKS(doc JWKS) error {
	parsed := make(map[string]KeySetEntry, len(doc.Keys))
	for _, jwk := range doc.Keys {
		key, err := jwk.PublicKey()
		if err != nil {
			return err
		}
		parsed[jwk.Kid] = KeySetEntry{Alg: jwk.Alg, Key: key}
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys = parsed
	return nil
}
