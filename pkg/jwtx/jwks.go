package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// JWK is a public JSON Web Key per RFC 7517, restricted to the key types
// this service signs with.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC / OKP
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewJWK encodes a public key as a JWK. Supported types: *rsa.PublicKey,
// *ecdsa.PublicKey on P-256, ed25519.PublicKey.
func NewJWK(kid, alg string, key crypto.PublicKey) (JWK, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return JWK{
			Kty: "RSA", Kid: kid, Use: "sig", Alg: alg,
			N: base64.RawURLEncoding.EncodeToString(k.N.Bytes()),
			E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return JWK{}, fmt.Errorf("jwtx: unsupported curve %s", k.Curve.Params().Name)
		}
		byteLen := (k.Curve.Params().BitSize + 7) / 8
		return JWK{
			Kty: "EC", Kid: kid, Use: "sig", Alg: alg, Crv: "P-256",
			X: base64.RawURLEncoding.EncodeToString(k.X.FillBytes(make([]byte, byteLen))),
			Y: base64.RawURLEncoding.EncodeToString(k.Y.FillBytes(make([]byte, byteLen))),
		}, nil
	case ed25519.PublicKey:
		return JWK{
			Kty: "OKP", Kid: kid, Use: "sig", Alg: alg, Crv: "Ed25519",
			X: base64.RawURLEncoding.EncodeToString(k),
		}, nil
	default:
		return JWK{}, fmt.Errorf("jwtx: unsupported public key type %T", key)
	}
}

// PublicKey decodes the JWK back into a crypto.PublicKey.
func (j JWK) PublicKey() (crypto.PublicKey, error) {
	switch j.Kty {
	case "RSA":
		nb, err := base64.RawURLEncoding.DecodeString(j.N)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: decode n: %w", j.Kid, err)
		}
		eb, err := base64.RawURLEncoding.DecodeString(j.E)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: decode e: %w", j.Kid, err)
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}, nil

	case "EC":
		if j.Crv != "P-256" {
			return nil, fmt.Errorf("jwk %s: unsupported curve %q", j.Kid, j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: decode x: %w", j.Kid, err)
		}
		yb, err := base64.RawURLEncoding.DecodeString(j.Y)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: decode y: %w", j.Kid, err)
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xb),
			Y:     new(big.Int).SetBytes(yb),
		}, nil

	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, fmt.Errorf("jwk %s: unsupported curve %q", j.Kid, j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: decode x: %w", j.Kid, err)
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("jwk %s: bad ed25519 key length %d", j.Kid, len(xb))
		}
		return ed25519.PublicKey(xb), nil

	default:
		return nil, fmt.Errorf("jwk %s: unsupported kty %q", j.Kid, j.Kty)
	}
}
