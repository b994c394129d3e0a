package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWS algorithms.
const (
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
	AlgEdDSA = "EdDSA"
)

// Signer signs access-token claims with a single private key identified by
// its kid. Implementations are safe for concurrent use.
type Signer interface {
	// Sign returns the compact JWS for the claims, with the kid header set.
	Sign(claims Claims) (string, error)

	// Kid is the key identifier published in the JWKS.
	Kid() string

	// Alg is the JWS algorithm name, e.g. "RS256".
	Alg() string

	// Public returns the public half for JWKS publication.
	Public() crypto.PublicKey
}

type signer struct {
	kid    string
	method jwt.SigningMethod
	priv   crypto.PrivateKey
	pub    crypto.PublicKey
}

func (s *signer) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(s.method, claims)
	tok.Header["kid"] = s.kid

	signed, err := tok.SignedString(s.priv)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (s *signer) Kid() string             { return s.kid }
func (s *signer) Alg() string             { return s.method.Alg() }
func (s *signer) Public() crypto.PublicKey { return s.pub }

// NewRS256Signer wraps an RSA private key. Keys below 2048 bits are refused.
func NewRS256Signer(kid string, key *rsa.PrivateKey) (Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("jwtx: nil rsa key")
	}
	if key.N.BitLen() < 2048 {
		return nil, fmt.Errorf("jwtx: rsa key too small: %d bits", key.N.BitLen())
	}
	return &signer{kid: kid, method: jwt.SigningMethodRS256, priv: key, pub: &key.PublicKey}, nil
}

// NewES256Signer wraps a P-256 ECDSA private key.
func NewES256Signer(kid string, key *ecdsa.PrivateKey) (Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("jwtx: nil ecdsa key")
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("jwtx: ES256 requires P-256, got %s", key.Curve.Params().Name)
	}
	return &signer{kid: kid, method: jwt.SigningMethodES256, priv: key, pub: &key.PublicKey}, nil
}

// NewEdDSASigner wraps an Ed25519 private key.
func NewEdDSASigner(kid string, key ed25519.PrivateKey) (Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("jwtx: invalid ed25519 key length %d", len(key))
	}
	return &signer{kid: kid, method: jwt.SigningMethodEdDSA, priv: key, pub: key.Public()}, nil
}

// GenerateSigner mints a fresh key pair for the algorithm with a random
// kid. The private key lives only in the returned Signer.
func GenerateSigner(alg string) (Signer, error) {
	pemData, err := generateKeyPEM(alg)
	if err != nil {
		return nil, err
	}
	priv, err := parseKeyPEM(pemData)
	if err != nil {
		return nil, err
	}
	return NewSigner(alg, newKid(alg), priv)
}

// NewSigner dispatches on the algorithm name, expecting a matching key type.
func NewSigner(alg, kid string, key crypto.PrivateKey) (Signer, error) {
	switch alg {
	case AlgRS256:
		k, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: RS256 requires *rsa.PrivateKey, got %T", key)
		}
		return NewRS256Signer(kid, k)
	case AlgES256:
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: ES256 requires *ecdsa.PrivateKey, got %T", key)
		}
		return NewES256Signer(kid, k)
	case AlgEdDSA:
		k, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: EdDSA requires ed25519.PrivateKey, got %T", key)
		}
		return NewEdDSASigner(kid, k)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}
