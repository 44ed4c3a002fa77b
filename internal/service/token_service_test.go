package service

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/pkg/cipher"
	"github.com/ifanfairuz/nduoseh/pkg/hash"
	"github.com/ifanfairuz/nduoseh/pkg/jwt"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	envelope, err := cipher.NewCipher(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}
	return NewTokenService(jwt.NewTokenCodec(priv, pub, "identity-test"), envelope, 10*time.Minute, 240*time.Hour)
}

func TestGenerateRefreshToken_ParseRoundTrip(t *testing.T) {
	s := newTestTokenService(t)
	sessionID := uuid.New()

	generated, err := s.GenerateRefreshToken(sessionID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}
	if generated.Hash != hash.Token(generated.Token) {
		t.Fatalf("stored hash must digest the full token string")
	}

	id, parsedSession, err := s.ParseRefreshToken(generated.Token)
	if err != nil {
		t.Fatalf("ParseRefreshToken error: %v", err)
	}
	if id != generated.ID {
		t.Fatalf("token id mismatch: %s != %s", id, generated.ID)
	}
	if parsedSession != sessionID {
		t.Fatalf("session id mismatch: %s != %s", parsedSession, sessionID)
	}
}

func TestParseRefreshToken_Invalid(t *testing.T) {
	s := newTestTokenService(t)

	for _, input := range []string{"", "garbage", "v1.AAAA"} {
		if _, _, err := s.ParseRefreshToken(input); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("input %q: expected ErrTokenInvalid, got %v", input, err)
		}
	}
}

func TestParseRefreshToken_ForeignCipher(t *testing.T) {
	s := newTestTokenService(t)

	other, err := cipher.NewCipher(bytes.Repeat([]byte{0x08}, 32))
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}
	foreign, err := other.Encrypt("a|b|c")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if _, _, err := s.ParseRefreshToken(foreign); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign envelope, got %v", err)
	}
}

func TestGenerateAccessToken_AudienceFromClient(t *testing.T) {
	s := newTestTokenService(t)
	userID, sessionID := uuid.New(), uuid.New()

	generated, err := s.GenerateAccessToken(userID, sessionID, domain.ClientInfo{DeviceID: "device-a", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	// device id wins over ip and user agent as the stamped audience
	claims, err := s.Codec().Verify(generated.Token, []string{"device-a"})
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != userID.String() || claims.SessionID != sessionID.String() {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	if _, err := s.Codec().Verify(generated.Token, []string{"10.0.0.99"}); err == nil {
		t.Fatalf("expected aud rejection for unknown client")
	}
}
