package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken         = errors.New("invalid token")
)

// TokenCodec signs and verifies access tokens with the process Ed25519 key
// pair. Verification can also run against an externally supplied public key
// so tokens minted by another instance can be checked locally.
type TokenCodec struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	issuer     string
}

func NewTokenCodec(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey, issuer string) *TokenCodec {
	return &TokenCodec{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}
}

// Issuer returns the issuer name stamped into signed tokens.
func (c *TokenCodec) Issuer() string {
	return c.issuer
}

// Sign generates a signed access token. The audience is optional; when empty
// no aud claim is set.
func (c *TokenCodec) Sign(userID, sessionID string, audience string, expiresAt time.Time) (string, error) {
	now := time.Now()

	claims := domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		SessionID: sessionID,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(c.privateKey)
}

// Verify checks signature, issuer and expiry with the local public key. If
// audience is non-empty the token's aud claim must be a member of it. Any
// failure collapses to ErrInvalidToken; a partially trusted result is never
// returned.
func (c *TokenCodec) Verify(tokenString string, audience []string) (*domain.Claims, error) {
	return c.verify(tokenString, audience, c.publicKey)
}

// VerifyWithKey behaves like Verify but uses the supplied public key.
func (c *TokenCodec) VerifyWithKey(publicKey ed25519.PublicKey, tokenString string, audience []string) (*domain.Claims, error) {
	return c.verify(tokenString, audience, publicKey)
}

func (c *TokenCodec) verify(tokenString string, audience []string, publicKey ed25519.PublicKey) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return publicKey, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if len(audience) > 0 && !audienceMatch(claims.Audience, audience) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// audienceMatch reports whether any of the token's aud values is in the
// allowed set.
func audienceMatch(tokenAud jwt.ClaimStrings, allowed []string) bool {
	for _, aud := range tokenAud {
		for _, a := range allowed {
			if aud == a {
				return true
			}
		}
	}
	return false
}
