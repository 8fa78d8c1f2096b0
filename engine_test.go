package matchauth_test

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/config"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/store"
	"github.com/MrEthical07/matchauth/mfa"
	"github.com/MrEthical07/matchauth/password"
)

const (
	testPassword = "correct-horse-battery"
	testIP       = "203.0.113.7"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Emit(_ context.Context, e audit.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) has(eventType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.events, func(e audit.Event) bool { return e.Type == eventType })
}

type harness struct {
	engine *matchauth.Engine
	repos  *store.Repositories
	clock  *fakeClock
	sink   *recordingSink
	hash   string
}

type harnessOption func(*matchauth.Builder)

var (
	hasherOnce sync.Once
	hasher     *password.Verifier
	hashed     string
)

func testHasher(t testing.TB) (*password.Verifier, string) {
	t.Helper()
	hasherOnce.Do(func() {
		a, err := password.NewArgon2(password.Config{
			Memory:      8 * 1024,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		})
		if err != nil {
			panic(err)
		}
		hasher, err = password.NewVerifier(a)
		if err != nil {
			panic(err)
		}
		hashed, err = hasher.Hash(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return hasher, hashed
}

func testConfig() matchauth.Config {
	cfg := matchauth.DefaultConfig()
	cfg.JWT.PrivateKey = testSigningKey
	return cfg
}

func newHarness(t testing.TB, mutate func(*matchauth.Config), opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "engine.db") + "?_pragma=busy_timeout(5000)"
	db, err := store.NewConnect(ctx, config.DB{Driver: store.DriverSQLite, DSN: dsn}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	repos := store.NewRepositories(db)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	verifier, hash := testHasher(t)
	clock := newFakeClock()
	sink := &recordingSink{}

	b := matchauth.New().
		WithConfig(cfg).
		WithPrincipalStore(repos.Principals).
		WithPasswordVerifier(verifier).
		WithRefreshStore(repos.RefreshTokens).
		WithMFAStores(repos.Principals, repos.RecoveryCodes).
		WithDeviceStore(repos.Devices).
		WithAuditSink(sink).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &harness{engine: engine, repos: repos, clock: clock, sink: sink, hash: hash}
}

func withRedis(t *testing.T) (harnessOption, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return func(b *matchauth.Builder) { b.WithRedis(client) }, mr
}

func (h *harness) addPrincipal(t testing.TB, username string, verified bool, roles ...string) {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"player"}
	}
	require.NoError(t, h.repos.Principals.CreatePrincipal(context.Background(), matchauth.Principal{
		Username:      username,
		PasswordHash:  h.hash,
		Roles:         roles,
		EmailVerified: verified,
		CreatedAt:     h.clock.Now(),
	}))
}

func (h *harness) login(username, deviceID string) (*matchauth.LoginResult, error) {
	return h.engine.Login(context.Background(), matchauth.LoginRequest{
		Username: username,
		Password: testPassword,
		DeviceID: deviceID,
		IP:       testIP,
	})
}

// enableMFA enrolls and confirms TOTP for username and returns the secret.
func (h *harness) enableMFA(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	enr, err := h.engine.EnrollMFA(ctx, username)
	require.NoError(t, err)
	require.NoError(t, h.engine.ConfirmMFA(ctx, username, h.code(t, enr.Secret)))
	return enr.Secret
}

func (h *harness) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := mfa.TOTP{}.Code(secret, h.clock.Now())
	require.NoError(t, err)
	return code
}

func (h *harness) waitFor(t *testing.T, eventType string) {
	t.Helper()
	require.Eventually(t, func() bool { return h.sink.has(eventType) }, time.Second, 5*time.Millisecond,
		"audit event %s not emitted", eventType)
}

func requireKind(t *testing.T, err error, kind matchauth.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, matchauth.KindOf(err), "error: %v", err)
}

func TestBuild_RequiresCollaborators(t *testing.T) {
	_, err := matchauth.New().WithConfig(testConfig()).Build()
	require.Error(t, err)

	_, err = matchauth.New().Build()
	require.Error(t, err, "default config has no signing key")
}

func TestBuild_BuilderIsSingleUse(t *testing.T) {
	h := newHarness(t, nil)
	require.NotNil(t, h.engine)

	verifier, _ := testHasher(t)
	b := matchauth.New().
		WithConfig(testConfig()).
		WithPrincipalStore(h.repos.Principals).
		WithPasswordVerifier(verifier).
		WithRefreshStore(h.repos.RefreshTokens).
		WithMFAStores(h.repos.Principals, h.repos.RecoveryCodes).
		WithDeviceStore(h.repos.Devices)
	e, err := b.Build()
	require.NoError(t, err)
	defer e.Close()

	_, err = b.Build()
	assert.Error(t, err)
}

func TestRecordEvent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.engine.RecordEvent(ctx, audit.PasswordChanged, "alice", testIP, map[string]string{"via": "settings"}))
	h.waitFor(t, audit.PasswordChanged)

	assert.Error(t, h.engine.RecordEvent(ctx, "passwordStolen", "alice", testIP, nil))
}

func TestMe(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "alice", true, "player", "organizer")

	res, err := h.login("alice", "")
	require.NoError(t, err)

	id, err := h.engine.Me(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, []string{"player", "organizer"}, id.Roles)

	_, err = h.engine.Me(context.Background(), "not-a-token")
	requireKind(t, err, matchauth.KindUnauthorized)
	assert.ErrorIs(t, err, matchauth.ErrUnauthorized)

	h.clock.Advance(16 * time.Minute)
	_, err = h.engine.Me(context.Background(), res.Tokens.AccessToken)
	requireKind(t, err, matchauth.KindUnauthorized)
}
