package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// JWK is the exported public key in JSON Web Key form.
// Ed25519 keys use the OKP key type (RFC 8037).
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Use string `json:"use"`
	Alg string `json:"alg"`
}

// KeyManager owns the process signing key pair. The pair is generated once at
// startup and is read-only afterwards, so it can be shared without locking.
type KeyManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	etag       string
}

// NewKeyManager generates a fresh Ed25519 key pair and a per-process etag for
// the JWKS endpoint. The pair is never rotated within a process lifetime.
func NewKeyManager() (*KeyManager, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	etagBytes := make([]byte, 8)
	if _, err := rand.Read(etagBytes); err != nil {
		return nil, fmt.Errorf("failed to generate etag: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		etag:       hex.EncodeToString(etagBytes),
	}, nil
}

// PrivateKey returns the signing key.
func (m *KeyManager) PrivateKey() ed25519.PrivateKey {
	return m.privateKey
}

// PublicKey returns the verification key.
func (m *KeyManager) PublicKey() ed25519.PublicKey {
	return m.publicKey
}

// ETag returns the cache validator for the exported public key. It is stable
// for the process lifetime.
func (m *KeyManager) ETag() string {
	return m.etag
}

// ExportJWK returns the public key as a JWK.
func (m *KeyManager) ExportJWK() JWK {
	return JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(m.publicKey),
		Use: "sig",
		Alg: "EdDSA",
	}
}

// ParsePublicJWK reconstructs an Ed25519 public key from its JWK form, for
// verifying tokens signed by a remote instance.
func ParsePublicJWK(key JWK) (ed25519.PublicKey, error) {
	if key.Kty != "OKP" || key.Crv != "Ed25519" {
		return nil, fmt.Errorf("unsupported key type %q/%q", key.Kty, key.Crv)
	}

	raw, err := base64.RawURLEncoding.DecodeString(key.X)
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid key length %d", len(raw))
	}

	return ed25519.PublicKey(raw), nil
}
