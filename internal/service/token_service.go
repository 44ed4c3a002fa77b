package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/pkg/cipher"
	"github.com/ifanfairuz/nduoseh/pkg/hash"
	"github.com/ifanfairuz/nduoseh/pkg/jwt"
)

// GeneratedToken is a freshly minted token together with the digest that goes
// to storage.
type GeneratedToken struct {
	ID        uuid.UUID
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// TokenService mints the two token kinds: signed access tokens via the codec
// and opaque encrypted refresh tokens via the envelope cipher.
type TokenService struct {
	codec         *jwt.TokenCodec
	cipher        *cipher.Cipher
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenService(codec *jwt.TokenCodec, c *cipher.Cipher, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		codec:         codec,
		cipher:        c,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Codec exposes the underlying codec for verification paths.
func (s *TokenService) Codec() *jwt.TokenCodec {
	return s.codec
}

// GenerateAccessToken signs an access token for the session. The aud claim is
// taken from the client info when present.
func (s *TokenService) GenerateAccessToken(userID, sessionID uuid.UUID, client domain.ClientInfo) (*GeneratedToken, error) {
	expiresAt := time.Now().Add(s.accessExpiry)

	token, err := s.codec.Sign(userID.String(), sessionID.String(), client.PreferredAudience(), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &GeneratedToken{
		Token:     token,
		Hash:      hash.Token(token),
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateRefreshToken builds an opaque refresh token: a random id, the
// session id and the expiry sealed in an authenticated envelope. Only the
// hash of the full token string is ever persisted.
func (s *TokenService) GenerateRefreshToken(sessionID uuid.UUID) (*GeneratedToken, error) {
	id := uuid.New()
	expiresAt := time.Now().Add(s.refreshExpiry)

	plaintext := fmt.Sprintf("%s|%s|%d", id, sessionID, expiresAt.UnixMilli())
	token, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to seal refresh token: %w", err)
	}

	return &GeneratedToken{
		ID:        id,
		Token:     token,
		Hash:      hash.Token(token),
		ExpiresAt: expiresAt,
	}, nil
}

// ParseRefreshToken opens a refresh-token envelope and recovers the token id
// and session id. Any decryption or format failure returns ErrTokenInvalid:
// unparseable input is rejected without proving compromise.
func (s *TokenService) ParseRefreshToken(token string) (id, sessionID uuid.UUID, err error) {
	plaintext, err := s.cipher.Decrypt(token)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	parts := strings.Split(plaintext, "|")
	if len(parts) != 3 {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	id, err = uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	sessionID, err = uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return uuid.Nil, uuid.Nil, ErrTokenInvalid
	}

	return id, sessionID, nil
}
