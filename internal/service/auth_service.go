package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
	"github.com/ifanfairuz/nduoseh/pkg/hash"
)

// AuthService is the credential issuance engine: it owns login, registration,
// the refresh-rotation protocol and logout teardown.
type AuthService struct {
	users         repository.UserRepository
	accounts      repository.AccountRepository
	sessions      repository.SessionRepository
	refreshTokens repository.RefreshTokenRepository
	witnesses     repository.AccessTokenCache
	tokens        *TokenService
	permissions   *PermissionService
	roles         repository.RoleRepository
	atomic        repository.Atomic
}

func NewAuthService(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	refreshTokens repository.RefreshTokenRepository,
	witnesses repository.AccessTokenCache,
	tokens *TokenService,
	permissions *PermissionService,
	roles repository.RoleRepository,
	atomic repository.Atomic,
) *AuthService {
	return &AuthService{
		users:         users,
		accounts:      accounts,
		sessions:      sessions,
		refreshTokens: refreshTokens,
		witnesses:     witnesses,
		tokens:        tokens,
		permissions:   permissions,
		roles:         roles,
		atomic:        atomic,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Image    string `json:"image,omitempty" validate:"omitempty,max=500"`
}

// TokenResult is a token handed to the client with its expiry as a unix
// timestamp.
type TokenResult struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// ExpiresAtTime converts the unix expiry back to a time, for cookie expiry.
func (t TokenResult) ExpiresAtTime() time.Time {
	return time.Unix(t.ExpiresAt, 0)
}

type LoginResponse struct {
	AccessToken  TokenResult    `json:"access_token"`
	RefreshToken TokenResult    `json:"refresh_token"`
	User         *domain.User   `json:"user"`
	Permissions  []string       `json:"permissions"`
	Modules      []string       `json:"modules"`
	Roles        []*domain.Role `json:"roles"`
}

type RefreshResponse struct {
	AccessToken  TokenResult `json:"access_token"`
	RefreshToken TokenResult `json:"refresh_token"`
}

// Login verifies the password credential and issues a fresh session with its
// token pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client domain.ClientInfo) (*LoginResponse, error) {
	email := strings.ToLower(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrEmailNotFound
	}

	account, err := s.accounts.GetPasswordByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := hash.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, account, user, client)
}

// Register creates a user with a password account and logs them in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client domain.ClientInfo) (*LoginResponse, error) {
	email := strings.ToLower(req.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Image != "" {
		user.Image = &req.Image
	}

	account := &domain.Account{
		ID:           uuid.New(),
		UserID:       user.ID,
		Type:         domain.AccountTypePassword,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	err = s.atomic.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return s.accounts.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, account, user, client)
}

// issueTokens creates the session and refresh-token record in one
// transaction; partial issuance is impossible. The witness write lands after
// the commit, best effort: a miss window only makes the fresh access token
// look revoked until the caller refreshes.
func (s *AuthService) issueTokens(ctx context.Context, account *domain.Account, user *domain.User, client domain.ClientInfo) (*LoginResponse, error) {
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		AccountID: account.ID,
		IPAddress: nullable(client.IPAddress),
		UserAgent: nullable(client.UserAgent),
		DeviceID:  nullable(client.DeviceID),
		CreatedAt: time.Now(),
	}

	var accessToken, refreshToken *GeneratedToken

	err := s.atomic.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.Create(ctx, session); err != nil {
			return err
		}

		var err error
		refreshToken, err = s.tokens.GenerateRefreshToken(session.ID)
		if err != nil {
			return err
		}

		if err := s.refreshTokens.Store(ctx, &domain.RefreshToken{
			ID:        refreshToken.ID,
			SessionID: session.ID,
			TokenHash: refreshToken.Hash,
			IsUsed:    false,
			ExpiresAt: refreshToken.ExpiresAt,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}

		accessToken, err = s.tokens.GenerateAccessToken(user.ID, session.ID, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.witnesses.Store(ctx, &domain.AccessTokenWitness{
		UserID:    user.ID,
		SessionID: session.ID,
		TokenHash: accessToken.Hash,
		ExpiresAt: accessToken.ExpiresAt,
	}); err != nil {
		log.Printf("[AUTH] witness write failed for session %s: %v", session.ID, err)
	}

	info, err := s.permissions.GetInfo(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	roles, err := s.roles.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  TokenResult{Token: accessToken.Token, ExpiresAt: accessToken.ExpiresAt.Unix()},
		RefreshToken: TokenResult{Token: refreshToken.Token, ExpiresAt: refreshToken.ExpiresAt.Unix()},
		User:         user,
		Permissions:  info.Permissions,
		Modules:      info.Modules,
		Roles:        roles,
	}, nil
}

// Refresh redeems a refresh token exactly once and rotates the session's
// token pair. The checks run in strict order; the first failure wins. Which
// step failed is logged here for intrusion detection and never exposed to the
// caller.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (*RefreshResponse, error) {
	// 1. open the envelope
	tokenID, sessionID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, refreshErr("invalid refresh token", false)
	}

	// 2. look up the durable record
	record, err := s.refreshTokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, refreshErr("token not found", false)
	}

	// 3. presented token must match the stored hash
	if !hash.VerifyToken(record.TokenHash, refreshToken) {
		log.Printf("[AUTH] refresh token %s hash mismatch, revoking session %s", tokenID, sessionID)
		s.teardown(ctx, tokenID, sessionID)
		return nil, refreshErr("token hash mismatch", true)
	}

	// 4. envelope and record must agree on the session
	if record.SessionID != sessionID {
		log.Printf("[AUTH] refresh token %s session mismatch", tokenID)
		if err := s.refreshTokens.Delete(ctx, tokenID); err != nil {
			log.Printf("[AUTH] failed to delete refresh token %s: %v", tokenID, err)
		}
		return nil, refreshErr("session mismatch", true)
	}

	// 5. a second redemption proves token leakage: kill the whole session
	if record.IsUsed {
		log.Printf("[AUTH] refresh token %s reuse detected, revoking session %s", tokenID, sessionID)
		s.teardown(ctx, tokenID, sessionID)
		return nil, refreshErr("token already used", true)
	}

	// 6. mark used before the remaining checks so a concurrent duplicate
	// redemption observes is_used and takes the reuse path
	marked, err := s.refreshTokens.MarkUsed(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !marked {
		log.Printf("[AUTH] refresh token %s concurrent redemption, revoking session %s", tokenID, sessionID)
		s.teardown(ctx, tokenID, sessionID)
		return nil, refreshErr("concurrent redemption", true)
	}

	// 7. expiry (the token is already burned at this point)
	if time.Now().After(record.ExpiresAt) {
		return nil, refreshErr("token expired", true)
	}

	// 8. the session must still exist
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		s.teardown(ctx, tokenID, sessionID)
		return nil, refreshErr("session not found", true)
	}

	// 9. binding: fields absent on either side are not compared
	if reason, ok := checkBinding(session, client); !ok {
		log.Printf("[AUTH] refresh token %s %s, revoking session %s", tokenID, reason, sessionID)
		s.teardown(ctx, tokenID, sessionID)
		return nil, refreshErr(reason, true)
	}

	// 10-11. rotate: mint and persist the new pair, cleaning up on failure
	newRefresh, err := s.tokens.GenerateRefreshToken(sessionID)
	if err != nil {
		return nil, err
	}

	newAccess, err := s.tokens.GenerateAccessToken(session.UserID, sessionID, client)
	if err != nil {
		return nil, err
	}

	if err := s.persistRotation(ctx, session, newRefresh, newAccess); err != nil {
		return nil, err
	}

	return &RefreshResponse{
		AccessToken:  TokenResult{Token: newAccess.Token, ExpiresAt: newAccess.ExpiresAt.Unix()},
		RefreshToken: TokenResult{Token: newRefresh.Token, ExpiresAt: newRefresh.ExpiresAt.Unix()},
	}, nil
}

func (s *AuthService) persistRotation(ctx context.Context, session *domain.Session, newRefresh, newAccess *GeneratedToken) error {
	err := s.refreshTokens.Store(ctx, &domain.RefreshToken{
		ID:        newRefresh.ID,
		SessionID: session.ID,
		TokenHash: newRefresh.Hash,
		IsUsed:    false,
		ExpiresAt: newRefresh.ExpiresAt,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	err = s.witnesses.Store(ctx, &domain.AccessTokenWitness{
		UserID:    session.UserID,
		SessionID: session.ID,
		TokenHash: newAccess.Hash,
		ExpiresAt: newAccess.ExpiresAt,
	})
	if err != nil {
		// no orphaned new artifacts: undo what was written
		if delErr := s.refreshTokens.Delete(ctx, newRefresh.ID); delErr != nil {
			log.Printf("[AUTH] failed to clean up refresh token %s: %v", newRefresh.ID, delErr)
		}
		if delErr := s.witnesses.DeleteBySessionID(ctx, session.ID); delErr != nil {
			log.Printf("[AUTH] failed to clean up access token witness for session %s: %v", session.ID, delErr)
		}
		return err
	}

	return nil
}

// Logout tears down everything derived from a session: the access-token
// witness, the session row and any unused refresh tokens. Missing rows are
// not errors.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = s.witnesses.DeleteBySessionID(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		errs[1] = s.sessions.Delete(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		errs[2] = s.refreshTokens.DeleteUnusedBySession(ctx, sessionID)
	}()
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("logout teardown incomplete: %w", err)
	}
	return nil
}

// teardown destroys a refresh token and its session after a protocol
// violation. Best effort: failures are logged, the rejection stands either
// way.
func (s *AuthService) teardown(ctx context.Context, tokenID, sessionID uuid.UUID) {
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := s.refreshTokens.Delete(ctx, tokenID); err != nil {
			log.Printf("[AUTH] teardown: failed to delete refresh token %s: %v", tokenID, err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			log.Printf("[AUTH] teardown: failed to delete session %s: %v", sessionID, err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.witnesses.DeleteBySessionID(ctx, sessionID); err != nil {
			log.Printf("[AUTH] teardown: failed to delete access token witness %s: %v", sessionID, err)
		}
	}()
	wg.Wait()
}

// checkBinding compares the client characteristics against those recorded at
// session creation. Only fields present on both sides are compared.
func checkBinding(session *domain.Session, client domain.ClientInfo) (string, bool) {
	if client.DeviceID != "" && session.DeviceID != nil && client.DeviceID != *session.DeviceID {
		return "device id mismatch", false
	}
	if client.UserAgent != "" && session.UserAgent != nil && client.UserAgent != *session.UserAgent {
		return "user agent mismatch", false
	}
	if client.IPAddress != "" && session.IPAddress != nil && client.IPAddress != *session.IPAddress {
		return "ip address mismatch", false
	}
	return "", true
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
