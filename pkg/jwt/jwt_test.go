package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	return NewTokenCodec(priv, pub, "identity-test")
}

func TestSignAndVerify_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Sign("user-1", "session-1", "device-a", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	claims, err := codec.Verify(token, []string{"device-a"})
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected sub user-1, got %s", claims.Subject)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("expected sid session-1, got %s", claims.SessionID)
	}
}

func TestVerify_AudienceMembership(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Sign("user-1", "session-1", "device-a", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	// any present client characteristic may satisfy the aud claim
	if _, err := codec.Verify(token, []string{"other-device", "device-a", "10.0.0.1"}); err != nil {
		t.Fatalf("expected aud membership to pass: %v", err)
	}

	if _, err := codec.Verify(token, []string{"other-device"}); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken on aud mismatch, got %v", err)
	}
}

func TestVerify_NoAudienceConstraint(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Sign("user-1", "session-1", "", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	// token without an aud claim, caller without client info
	if _, err := codec.Verify(token, nil); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Sign("user-1", "session-1", "", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	if _, err := codec.Verify(token, nil); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other := newTestCodec(t)

	token, err := codec.Sign("user-1", "session-1", "", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	if _, err := other.Verify(token, nil); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken with wrong key, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	signer := NewTokenCodec(priv, pub, "issuer-a")
	verifier := NewTokenCodec(priv, pub, "issuer-b")

	token, err := signer.Sign("user-1", "session-1", "", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	if _, err := verifier.Verify(token, nil); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken on issuer mismatch, got %v", err)
	}
}

func TestVerifyWithKey_RemoteKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	remote := NewTokenCodec(priv, pub, "identity-test")
	local := newTestCodec(t)

	token, err := remote.Sign("user-1", "session-1", "", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	claims, err := local.VerifyWithKey(pub, token, nil)
	if err != nil {
		t.Fatalf("VerifyWithKey error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected sub user-1, got %s", claims.Subject)
	}
}
