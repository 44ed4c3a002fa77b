package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
	"github.com/ifanfairuz/nduoseh/pkg/hash"
	"github.com/ifanfairuz/nduoseh/pkg/jwt"
)

// TokenVerifier checks an access token and resolves the identity behind it.
// The implementation is chosen at startup: local verification against the
// process key pair, or delegation to a remote authority.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, client domain.ClientInfo) (*domain.VerifiedToken, error)
}

// LocalTokenVerifier verifies signature and claims with the process key pair,
// then requires a live witness-cache entry whose hash matches the presented
// token. A valid signature without a witness is still rejected: that is what
// makes logout and session teardown take effect before natural expiry.
type LocalTokenVerifier struct {
	codec     *jwt.TokenCodec
	witnesses repository.AccessTokenCache
}

func NewLocalTokenVerifier(codec *jwt.TokenCodec, witnesses repository.AccessTokenCache) *LocalTokenVerifier {
	return &LocalTokenVerifier{codec: codec, witnesses: witnesses}
}

func (v *LocalTokenVerifier) Verify(ctx context.Context, token string, client domain.ClientInfo) (*domain.VerifiedToken, error) {
	claims, err := v.codec.Verify(token, client.Audience())
	if err != nil {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	witness, err := v.witnesses.GetBySessionID(ctx, sessionID)
	if err != nil {
		// fail closed on cache trouble: an unverifiable token is invalid
		return nil, ErrTokenInvalid
	}
	if witness == nil || witness.SessionID != sessionID {
		return nil, ErrTokenInvalid
	}
	if !hash.VerifyToken(witness.TokenHash, token) {
		return nil, ErrTokenInvalid
	}

	return &domain.VerifiedToken{UserID: userID, SessionID: sessionID}, nil
}

// RemoteTokenVerifier delegates verification to a remote authority over HTTP,
// forwarding the bearer token and client-identifying headers. Any
// non-conforming response is invalid. Transport trust (private network or
// mTLS) is assumed.
type RemoteTokenVerifier struct {
	client  *http.Client
	baseURL string
}

func NewRemoteTokenVerifier(client *http.Client, baseURL string) *RemoteTokenVerifier {
	return &RemoteTokenVerifier{client: client, baseURL: baseURL}
}

func (v *RemoteTokenVerifier) Verify(ctx context.Context, token string, client domain.ClientInfo) (*domain.VerifiedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/v1/auth/token/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if client.UserAgent != "" {
		req.Header.Set("User-Agent", client.UserAgent)
	}
	if client.DeviceID != "" {
		req.Header.Set("X-Device-Id", client.DeviceID)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrTokenInvalid
	}

	var payload struct {
		UserID    uuid.UUID `json:"user_id"`
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrTokenInvalid
	}
	if payload.UserID == uuid.Nil || payload.SessionID == uuid.Nil {
		return nil, ErrTokenInvalid
	}

	return &domain.VerifiedToken{UserID: payload.UserID, SessionID: payload.SessionID}, nil
}

// AuthVerifier composes token verification with a user lookup. A verified
// token referencing a missing or soft-deleted user is an error, not a valid
// session.
type AuthVerifier struct {
	TokenVerifier
	users repository.UserRepository
}

func NewAuthVerifier(verifier TokenVerifier, users repository.UserRepository) *AuthVerifier {
	return &AuthVerifier{TokenVerifier: verifier, users: users}
}

func (v *AuthVerifier) VerifyAndLoadUser(ctx context.Context, token string, client domain.ClientInfo) (*domain.User, *domain.VerifiedToken, error) {
	verified, err := v.Verify(ctx, token, client)
	if err != nil {
		return nil, nil, err
	}

	user, err := v.users.GetByID(ctx, verified.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.DeletedAt != nil {
		return nil, nil, ErrTokenInvalid
	}

	return user, verified, nil
}
