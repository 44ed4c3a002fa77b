package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const versionPrefix = "v1"

var (
	ErrInvalidKeySize   = errors.New("cipher key must be 32 bytes")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Cipher provides authenticated envelope encryption for opaque tokens. The
// ciphertext is tamper-evident: any modification fails authentication on
// decrypt rather than yielding garbage.
type Cipher struct {
	key []byte
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeySize
	}
	return &Cipher{key: key}, nil
}

// Encrypt seals the plaintext with XChaCha20-Poly1305 under a random nonce
// and returns a versioned, URL-safe string.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return fmt.Sprintf("%s.%s", versionPrefix, base64.RawURLEncoding.EncodeToString(sealed)), nil
}

// Decrypt opens a string produced by Encrypt. Unknown versions, malformed
// encodings and failed authentication all return ErrDecryptionFailed.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	version, payload, found := strings.Cut(encrypted, ".")
	if !found || version != versionPrefix {
		return "", ErrDecryptionFailed
	}

	sealed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	if len(sealed) < aead.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
