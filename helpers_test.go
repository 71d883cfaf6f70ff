package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tidegate/authcore/password"
)

// memAccounts is an in-memory AccountStore used across the engine tests.
type memAccounts struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*Account{}}
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memAccounts) FindActiveByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := m.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account.Status != AccountActive {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *memAccounts) Save(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *account
	m.accounts[account.ID] = &clone
	return nil
}

// get returns the live stored account for direct inspection.
func (m *memAccounts) get(t *testing.T, id string) *Account {
	t.Helper()
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		t.Fatalf("account %q not in store", id)
	}
	clone := *account
	return &clone
}

// mutate applies fn to the stored account under the lock.
func (m *memAccounts) mutate(t *testing.T, id string, fn func(*Account)) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		t.Fatalf("account %q not in store", id)
	}
	fn(account)
}

// memTokens is an in-memory RefreshTokenStore with the same conditional
// delete semantics as the Redis and PostgreSQL implementations.
type memTokens struct {
	mu      sync.Mutex
	records map[string]RefreshTokenRecord
}

func newMemTokens() *memTokens {
	return &memTokens{records: map[string]RefreshTokenRecord{}}
}

func (m *memTokens) Replace(_ context.Context, record RefreshTokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.AccountID] = record
	return nil
}

func (m *memTokens) FindByAccount(_ context.Context, accountID string) (*RefreshTokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[accountID]
	if !ok {
		return nil, nil
	}
	clone := record
	return &clone, nil
}

func (m *memTokens) DeleteMatching(_ context.Context, accountID string, tokenHash [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[accountID]
	if !ok || record.TokenHash != tokenHash {
		return false, nil
	}
	delete(m.records, accountID)
	return true, nil
}

func (m *memTokens) DeleteByAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, accountID)
	return nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mutate applies fn to the stored record under the lock.
func (m *memTokens) mutate(t *testing.T, accountID string, fn func(*RefreshTokenRecord)) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[accountID]
	if !ok {
		t.Fatalf("no refresh record for account %q", accountID)
	}
	fn(&record)
	m.records[accountID] = record
}

// captureNotifier records delivered codes and tokens for inspection.
type captureNotifier struct {
	mu     sync.Mutex
	otps   []string
	resets []string
}

func (n *captureNotifier) DeliverOTP(_ context.Context, _, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, code)
	return nil
}

func (n *captureNotifier) DeliverResetToken(_ context.Context, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, token)
	return nil
}

func (n *captureNotifier) lastOTP(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.otps) == 0 {
		t.Fatal("no OTP was delivered")
	}
	return n.otps[len(n.otps)-1]
}

func (n *captureNotifier) lastReset(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets) == 0 {
		t.Fatal("no reset token was delivered")
	}
	return n.resets[len(n.resets)-1]
}

func (n *captureNotifier) resetCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.resets)
}

func testConfig() Config {
	cfg := Config{}
	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	cfg.Token.Issuer = "authcore-test"
	cfg.Lockout.Threshold = 3
	cfg.Lockout.Duration = time.Hour
	cfg.Password.Argon2 = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

type testEnv struct {
	engine   *Engine
	accounts *memAccounts
	tokens   *memTokens
}

func newTestEngine(t *testing.T, cfg Config) *testEnv {
	return newTestEngineNotify(t, cfg, nil)
}

func newTestEngineNotify(t *testing.T, cfg Config, notifier Notifier) *testEnv {
	t.Helper()

	accounts := newMemAccounts()
	tokens := newMemTokens()

	builder := New().
		WithConfig(cfg).
		WithAccountStore(accounts).
		WithRefreshTokenStore(tokens)
	if notifier != nil {
		builder = builder.WithNotifier(notifier)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, accounts: accounts, tokens: tokens}
}

// seedAccount hashes the password with the engine's hasher and stores an
// active account.
func (env *testEnv) seedAccount(t *testing.T, id, email, pass string) {
	t.Helper()

	hash, err := env.engine.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}
	err = env.accounts.Save(context.Background(), &Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         "member",
		Status:       AccountActive,
	})
	if err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
}
