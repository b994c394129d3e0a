package jwtx

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks compact JWS tokens against a set of public keys, selected
// by the kid header. It validates signature and registered time claims;
// issuer/audience policy is left to the caller.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// KeySetVerifier resolves keys from a KeySet at verification time, so keys
// added or retired after construction take immediate effect.
type KeySetVerifier struct {
	keys *KeySet
}

// NewKeySetVerifier returns a Verifier backed by the given key set.
func NewKeySetVerifier(keys *KeySet) *KeySetVerifier {
	return &KeySetVerifier{keys: keys}
}

func (v *KeySetVerifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfunc,
		jwt.WithValidMethods([]string{AlgRS256, AlgES256, AlgEdDSA}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *KeySetVerifier) keyfunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKid
	}

	entry, ok := v.keys.Get(kid)
	if !ok {
		return nil, ErrUnknownKid
	}
	if entry.Alg != t.Method.Alg() {
		return nil, ErrUnexpectedAlg
	}
	return entry.Key, nil
}

// StaticVerifier holds a fixed pinned key, for services that trust exactly
// one issuer key and fetch it out of band.
type StaticVerifier struct {
	kid string
	alg string
	key crypto.PublicKey
}

func NewStaticVerifier(kid, alg string, key crypto.PublicKey) *StaticVerifier {
	return &StaticVerifier{kid: kid, alg: alg, key: key}
}

func (v *StaticVerifier) Verify(token string) (*Claims, error) {
	ks := NewKeySet()
	ks.Add(v.kid, v.alg, v.key)
	return NewKeySetVerifier(ks).Verify(token)
}
