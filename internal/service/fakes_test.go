package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
)

// In-memory repository fakes. Every fake is safe for concurrent use so the
// redemption race tests exercise the same serialization contract the real
// store provides.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account // keyed by user id
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := *account
	r.accounts[account.UserID] = &a
	return nil
}

func (r *fakeAccountRepo) GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok || a.Type != domain.AccountTypePassword {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*domain.Session
	createErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	s := *session
	r.sessions[session.ID] = &s
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type fakeRefreshTokenRepo struct {
	mu       sync.Mutex
	tokens   map[uuid.UUID]*domain.RefreshToken
	storeErr error
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[uuid.UUID]*domain.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Store(ctx context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.storeErr != nil {
		return r.storeErr
	}
	t := *token
	r.tokens[token.ID] = &t
	return nil
}

func (r *fakeRefreshTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *fakeRefreshTokenRepo) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.IsUsed {
		return false, nil
	}
	t.IsUsed = true
	return true, nil
}

func (r *fakeRefreshTokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteUnusedBySession(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.SessionID == sessionID && !t.IsUsed {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) get(id uuid.UUID) *domain.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[id]
}

func (r *fakeRefreshTokenRepo) mutate(id uuid.UUID, fn func(*domain.RefreshToken)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok {
		fn(t)
	}
}

type fakeWitnessCache struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*domain.AccessTokenWitness
	storeErr error
	getErr   error
}

func newFakeWitnessCache() *fakeWitnessCache {
	return &fakeWitnessCache{entries: make(map[uuid.UUID]*domain.AccessTokenWitness)}
}

func (c *fakeWitnessCache) Store(ctx context.Context, witness *domain.AccessTokenWitness) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeErr != nil {
		return c.storeErr
	}
	w := *witness
	c.entries[witness.SessionID] = &w
	return nil
}

func (c *fakeWitnessCache) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*domain.AccessTokenWitness, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	w, ok := c.entries[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (c *fakeWitnessCache) DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	return nil
}

func (c *fakeWitnessCache) has(sessionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[sessionID]
	return ok
}

type fakePermissionCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]string
	getErr  error
	setErr  error
}

func newFakePermissionCache() *fakePermissionCache {
	return &fakePermissionCache{entries: make(map[uuid.UUID][]string)}
}

func (c *fakePermissionCache) Get(ctx context.Context, userID uuid.UUID) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	perms, ok := c.entries[userID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), perms...), nil
}

func (c *fakePermissionCache) Set(ctx context.Context, userID uuid.UUID, permissions []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[userID] = append([]string(nil), permissions...)
	return nil
}

func (c *fakePermissionCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
	}
	return nil
}

func (c *fakePermissionCache) has(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID]
	return ok
}

func (c *fakePermissionCache) put(userID uuid.UUID, permissions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = permissions
}

type fakeRoleRepo struct {
	mu          sync.Mutex
	roles       map[uuid.UUID]*domain.Role
	assignments map[uuid.UUID]map[uuid.UUID]bool // user id -> role ids
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:       make(map[uuid.UUID]*domain.Role),
		assignments: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *fakeRoleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok || role.DeletedAt != nil {
		return nil, nil
	}
	copied := *role
	return &copied, nil
}

func (r *fakeRoleRepo) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Slug == slug && role.DeletedAt == nil {
			copied := *role
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) List(ctx context.Context) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, role := range r.roles {
		if role.DeletedAt == nil {
			copied := *role
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.roles[role.ID]
	if !ok || existing.DeletedAt != nil {
		return repository.ErrNotFound
	}
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *fakeRoleRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok || role.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	role.DeletedAt = &now
	return nil
}

func (r *fakeRoleRepo) AssignToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assignments[userID] == nil {
		r.assignments[userID] = make(map[uuid.UUID]bool)
	}
	r.assignments[userID][roleID] = true
	return nil
}

func (r *fakeRoleRepo) RemoveFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.assignments[userID][roleID] {
		return repository.ErrNotFound
	}
	delete(r.assignments[userID], roleID)
	return nil
}

func (r *fakeRoleRepo) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Role{}
	for roleID := range r.assignments[userID] {
		role, ok := r.roles[roleID]
		if ok && role.DeletedAt == nil && role.Active {
			copied := *role
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) GetUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for userID, roles := range r.assignments {
		if roles[roleID] {
			out = append(out, userID)
		}
	}
	return out, nil
}

// fakeAtomic snapshots the relational fakes before running fn and restores
// them when fn fails, mirroring a transaction rollback.
type fakeAtomic struct {
	users    *fakeUserRepo
	accounts *fakeAccountRepo
	sessions *fakeSessionRepo
	tokens   *fakeRefreshTokenRepo
}

func (a *fakeAtomic) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	restoreUsers := snapshotMap(&a.users.mu, a.users.users)
	restoreAccounts := snapshotMap(&a.accounts.mu, a.accounts.accounts)
	restoreSessions := snapshotMap(&a.sessions.mu, a.sessions.sessions)
	restoreTokens := snapshotMap(&a.tokens.mu, a.tokens.tokens)

	if err := fn(ctx); err != nil {
		restoreTokens()
		restoreSessions()
		restoreAccounts()
		restoreUsers()
		return err
	}
	return nil
}

func snapshotMap[K comparable, V any](mu *sync.Mutex, m map[K]V) func() {
	mu.Lock()
	snapshot := make(map[K]V, len(m))
	for k, v := range m {
		snapshot[k] = v
	}
	mu.Unlock()

	return func() {
		mu.Lock()
		for k := range m {
			delete(m, k)
		}
		for k, v := range snapshot {
			m[k] = v
		}
		mu.Unlock()
	}
}
