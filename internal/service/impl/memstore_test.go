package impl

import (
	"context"
	"strings"
	"sync"
	"time"

	"accountd/internal/domain"
	"accountd/internal/store"

	"github.com/google/uuid"
)

// memoryStore is an in-memory dataStore with transaction rollback via
// snapshot/restore. It returns the same sentinels as the gorm store.
type memoryStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*domain.User
	emailIndex  map[string]uuid.UUID
	usernameIdx map[string]uuid.UUID
	githubIdx   map[string]uuid.UUID
	credentials map[uuid.UUID]*domain.PasswordCredential
	twoFactor   map[uuid.UUID]*domain.TwoFactorConfig
	codes       map[uuid.UUID]*domain.TwoFactorCode
	resets      map[string]*domain.PasswordResetToken
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       make(map[uuid.UUID]*domain.User),
		emailIndex:  make(map[string]uuid.UUID),
		usernameIdx: make(map[string]uuid.UUID),
		githubIdx:   make(map[string]uuid.UUID),
		credentials: make(map[uuid.UUID]*domain.PasswordCredential),
		twoFactor:   make(map[uuid.UUID]*domain.TwoFactorConfig),
		codes:       make(map[uuid.UUID]*domain.TwoFactorCode),
		resets:      make(map[string]*domain.PasswordResetToken),
	}
}

type storeSnapshot struct {
	users       map[uuid.UUID]*domain.User
	emailIndex  map[string]uuid.UUID
	usernameIdx map[string]uuid.UUID
	githubIdx   map[string]uuid.UUID
	credentials map[uuid.UUID]*domain.PasswordCredential
	twoFactor   map[uuid.UUID]*domain.TwoFactorConfig
	codes       map[uuid.UUID]*domain.TwoFactorCode
	resets      map[string]*domain.PasswordResetToken
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&memoryTx{store: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memoryStore) snapshot() storeSnapshot {
	s := storeSnapshot{
		users:       make(map[uuid.UUID]*domain.User, len(m.users)),
		emailIndex:  make(map[string]uuid.UUID, len(m.emailIndex)),
		usernameIdx: make(map[string]uuid.UUID, len(m.usernameIdx)),
		githubIdx:   make(map[string]uuid.UUID, len(m.githubIdx)),
		credentials: make(map[uuid.UUID]*domain.PasswordCredential, len(m.credentials)),
		twoFactor:   make(map[uuid.UUID]*domain.TwoFactorConfig, len(m.twoFactor)),
		codes:       make(map[uuid.UUID]*domain.TwoFactorCode, len(m.codes)),
		resets:      make(map[string]*domain.PasswordResetToken, len(m.resets)),
	}
	for id, u := range m.users {
		cp := *u
		s.users[id] = &cp
	}
	for k, v := range m.emailIndex {
		s.emailIndex[k] = v
	}
	for k, v := range m.usernameIdx {
		s.usernameIdx[k] = v
	}
	for k, v := range m.githubIdx {
		s.githubIdx[k] = v
	}
	for id, c := range m.credentials {
		cp := *c
		s.credentials[id] = &cp
	}
	for id, c := range m.twoFactor {
		cp := *c
		s.twoFactor[id] = &cp
	}
	for id, c := range m.codes {
		cp := *c
		s.codes[id] = &cp
	}
	for k, v := range m.resets {
		cp := *v
		s.resets[k] = &cp
	}
	return s
}

func (m *memoryStore) restore(s storeSnapshot) {
	m.users = s.users
	m.emailIndex = s.emailIndex
	m.usernameIdx = s.usernameIdx
	m.githubIdx = s.githubIdx
	m.credentials = s.credentials
	m.twoFactor = s.twoFactor
	m.codes = s.codes
	m.resets = s.resets
}

func (m *memoryStore) seed(fn func(tx storeTx)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&memoryTx{store: m})
}

func (m *memoryStore) userByEmail(email string) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emailIndex[email]
	if !ok {
		return nil, false
	}
	cp := *m.users[id]
	return &cp, true
}

func (m *memoryStore) credentialByUserID(userID uuid.UUID) (*domain.PasswordCredential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[userID]
	if !ok {
		return nil, false
	}
	cp := *cred
	return &cp, true
}

func (m *memoryStore) configByUserID(userID uuid.UUID) (*domain.TwoFactorConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.twoFactor[userID]
	if !ok {
		return nil, false
	}
	cp := *cfg
	return &cp, true
}

func (m *memoryStore) pendingCodes(userID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.codes {
		if c.UserID == userID {
			out = append(out, c.Code)
		}
	}
	return out
}

func (m *memoryStore) resetTokens(userID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for tok, r := range m.resets {
		if r.UserID == userID {
			out = append(out, tok)
		}
	}
	return out
}

type memoryTx struct {
	store *memoryStore
}

func (m *memoryTx) Users() userStore             { return &memoryUserStore{store: m.store} }
func (m *memoryTx) Credentials() credentialStore { return &memoryCredentialStore{store: m.store} }
func (m *memoryTx) TwoFactor() twoFactorStore    { return &memoryTwoFactorStore{store: m.store} }
func (m *memoryTx) ResetTokens() resetTokenStore { return &memoryResetStore{store: m.store} }

type memoryUserStore struct {
	store *memoryStore
}

func (u *memoryUserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	if _, exists := u.store.usernameIdx[usr.Username]; exists {
		return store.ErrDuplicateKey
	}
	if _, exists := u.store.emailIndex[usr.Email]; exists {
		return store.ErrDuplicateKey
	}
	cp := *usr
	u.store.users[usr.ID] = &cp
	u.store.emailIndex[usr.Email] = usr.ID
	u.store.usernameIdx[usr.Username] = usr.ID
	if usr.GithubID != nil {
		u.store.githubIdx[*usr.GithubID] = usr.ID
	}
	return nil
}

func (u *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	usr, ok := u.store.users[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *usr
	return &cp, nil
}

func (u *memoryUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, ok := u.store.usernameIdx[username]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return u.GetByID(ctx, id)
}

func (u *memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := u.store.emailIndex[email]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return u.GetByID(ctx, id)
}

func (u *memoryUserStore) GetByUsernameOrEmail(ctx context.Context, id string) (*domain.User, error) {
	if strings.ContainsRune(id, '@') {
		if usr, err := u.GetByEmail(ctx, id); err == nil {
			return usr, nil
		}
	}
	return u.GetByUsername(ctx, id)
}

func (u *memoryUserStore) GetByGithubID(ctx context.Context, githubID string) (*domain.User, error) {
	id, ok := u.store.githubIdx[githubID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return u.GetByID(ctx, id)
}

func (u *memoryUserStore) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	usr, ok := u.store.users[id]
	if !ok {
		return store.ErrRecordNotFound
	}
	usr.AvatarURL = url
	return nil
}

type memoryCredentialStore struct {
	store *memoryStore
}

func (c *memoryCredentialStore) UpsertPassword(ctx context.Context, cred *domain.PasswordCredential) error {
	cp := *cred
	c.store.credentials[cred.UserID] = &cp
	return nil
}

func (c *memoryCredentialStore) GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error) {
	cred, ok := c.store.credentials[userID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *cred
	return &cp, nil
}

type memoryTwoFactorStore struct {
	store *memoryStore
}

func (t *memoryTwoFactorStore) CreateConfig(ctx context.Context, cfg *domain.TwoFactorConfig) error {
	if _, exists := t.store.twoFactor[cfg.UserID]; exists {
		return store.ErrDuplicateKey
	}
	cp := *cfg
	t.store.twoFactor[cfg.UserID] = &cp
	return nil
}

func (t *memoryTwoFactorStore) GetConfig(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorConfig, error) {
	cfg, ok := t.store.twoFactor[userID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (t *memoryTwoFactorStore) Enable(ctx context.Context, userID uuid.UUID) error {
	cfg, ok := t.store.twoFactor[userID]
	if !ok {
		return store.ErrRecordNotFound
	}
	cfg.Enabled = true
	return nil
}

func (t *memoryTwoFactorStore) DeleteConfig(ctx context.Context, userID uuid.UUID) error {
	delete(t.store.twoFactor, userID)
	return nil
}

func (t *memoryTwoFactorStore) CreateCode(ctx context.Context, code *domain.TwoFactorCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	cp := *code
	t.store.codes[code.ID] = &cp
	return nil
}

func (t *memoryTwoFactorStore) ConsumeCode(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	for id, c := range t.store.codes {
		if c.UserID == userID && c.Code == code && c.ExpiresAt.After(now) {
			delete(t.store.codes, id)
			return nil
		}
	}
	return store.ErrRecordNotFound
}

func (t *memoryTwoFactorStore) DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error {
	for id, c := range t.store.codes {
		if c.UserID == userID {
			delete(t.store.codes, id)
		}
	}
	return nil
}

type memoryResetStore struct {
	store *memoryStore
}

func (r *memoryResetStore) Create(ctx context.Context, tok *domain.PasswordResetToken) error {
	for key, existing := range r.store.resets {
		if existing.UserID == tok.UserID {
			delete(r.store.resets, key)
		}
	}
	cp := *tok
	r.store.resets[tok.Token] = &cp
	return nil
}

func (r *memoryResetStore) Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	tok, ok := r.store.resets[token]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	if !tok.ExpiresAt.After(now) {
		delete(r.store.resets, token)
		return nil, store.ErrRecordNotFound
	}
	delete(r.store.resets, token)
	cp := *tok
	return &cp, nil
}

func (r *memoryResetStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	for key, tok := range r.store.resets {
		if tok.UserID == userID {
			delete(r.store.resets, key)
		}
	}
	return nil
}
