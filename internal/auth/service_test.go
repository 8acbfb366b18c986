// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/events"
	"github.com/smarttaxi/user-service/internal/metrics"
)

type memoryUsers struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*UserInfo
	license map[string]int64

	rehashed map[int64]string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:     map[int64]*UserInfo{},
		license:  map[string]int64{},
		rehashed: map[int64]string{},
	}
}

func (m *memoryUsers) find(email string) *UserInfo {
	for _, u := range m.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find(email)
	if u == nil {
		return nil, core.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memoryUsers) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(email) != nil, nil
}

func (m *memoryUsers) LicenseExists(_ context.Context, license string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.license[license]
	return ok, nil
}

func (m *memoryUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(nu.Email) != nil {
		return nil, ErrEmailExists
	}
	if nu.LicenseNumber != "" {
		if _, ok := m.license[nu.LicenseNumber]; ok {
			return nil, ErrLicenseExists
		}
	}

	m.nextID++
	u := &UserInfo{
		ID:           m.nextID,
		Email:        nu.Email,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		PasswordHash: nu.PasswordHash,
		Roles:        []string{"USER"},
		IsActive:     true,
	}
	m.byID[u.ID] = u
	if nu.LicenseNumber != "" {
		m.license[nu.LicenseNumber] = u.ID
	}

	clone := *u
	return &clone, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	m.rehashed[id] = hash
	return nil
}

func (m *memoryUsers) set(id int64, active, verified bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = active
	m.byID[id].IsVerified = verified
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	users     *memoryUsers
	jwt       *JWTManager
	hasher    *core.PasswordHasher
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func testArgon() core.ArgonParams {
	return core.ArgonParams{Time: 1, Memory: 1024, Threads: 1}
}

func newFixture(t *testing.T, unify bool) *fixture {
	t.Helper()

	hasher, err := core.NewPasswordHasher(testArgon())
	require.NoError(t, err)

	f := &fixture{
		users:     newMemoryUsers(),
		jwt:       newTestJWTManager(t),
		hasher:    hasher,
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
	}
	f.svc = NewService(ServiceConfig{
		Users:                 f.users,
		Tokens:                f.jwt,
		Hasher:                f.hasher,
		Publisher:             f.publisher,
		Metrics:               f.metrics,
		UnifyIneligibleErrors: unify,
	})
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "A",
		LastName:  "B",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister_TokenResolvesToNewUser(t *testing.T) {
	f := newFixture(t, false)

	resp := f.register(t, "  Driver@Example.COM ", "Secret1")

	assert.Equal(t, "driver@example.com", resp.Email)
	assert.Equal(t, []string{"USER"}, resp.Roles)
	assert.True(t, resp.IsActive)
	assert.False(t, resp.IsVerified)
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := f.jwt.Validate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(resp.UserID, 10), claims.Subject)
	assert.Equal(t, []string{"USER"}, claims.Roles)

	stored, err := f.users.GetByEmail(context.Background(), "driver@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("Secret1", stored.PasswordHash))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.UserRegistered, f.publisher.events[0].Type)
	assert.InDelta(t, 1, testutil.ToFloat64(
		f.metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess)), 0)
}

func TestRegister_Duplicates(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{
		Email: "a@x.com", Password: "Secret1", FirstName: "A", LastName: "B",
		LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterRequest{
		Email: "A@X.com", Password: "Secret1", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = f.svc.Register(ctx, RegisterRequest{
		Email: "b@x.com", Password: "Secret1", FirstName: "A", LastName: "B",
		LicenseNumber: " LIC-1 ",
	})
	assert.ErrorIs(t, err, ErrLicenseExists)

	assert.InDelta(t, 2, testutil.ToFloat64(
		f.metrics.Registrations.WithLabelValues(metrics.OutcomeDuplicate)), 0)
}

func TestRegister_RejectsBlankNames(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email: "blank@x.com", Password: "Secret1", FirstName: "   ", LastName: "B",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.Register(context.Background(), RegisterRequest{
		Email: "blank@x.com", Password: "Secret1", FirstName: "A", LastName: "\t",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Nil(t, f.users.find("blank@x.com"))
	assert.Empty(t, f.publisher.events)
}

func TestRegister_ConcurrentSameEmailHasOneWinner(t *testing.T) {
	f := newFixture(t, false)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		dupes    int
		otherErr []error
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), RegisterRequest{
				Email: "race@x.com", Password: "Secret1", FirstName: "R", LastName: "C",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrDuplicateIdentity):
				dupes++
			default:
				otherErr = append(otherErr, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, dupes)
	assert.Empty(t, otherErr)
}

func TestUserInfo_Eligible(t *testing.T) {
	tests := []struct {
		active, verified, want bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, tt := range tests {
		u := &UserInfo{IsActive: tt.active, IsVerified: tt.verified}
		assert.Equal(t, tt.want, u.Eligible(), "active=%v verified=%v", tt.active, tt.verified)
	}
}

func TestLogin_EligibilityGate(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		verified bool
		wantErr  error
	}{
		{"active and verified", true, true, nil},
		{"active but unverified", true, false, ErrAccountNotEligible},
		{"verified but inactive", false, true, ErrAccountNotEligible},
		{"neither", false, false, ErrAccountNotEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			reg := f.register(t, "gate@x.com", "Secret1")
			f.users.set(reg.UserID, tt.active, tt.verified)

			resp, err := f.svc.Login(context.Background(), LoginRequest{
				Email: "gate@x.com", Password: "Secret1",
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, reg.UserID, resp.UserID)
			assert.True(t, resp.IsVerified)

			claims, err := f.jwt.Validate(context.Background(), resp.Token)
			require.NoError(t, err)
			assert.Equal(t, strconv.FormatInt(reg.UserID, 10), claims.Subject)
		})
	}
}

func TestLogin_WrongPasswordIndistinguishableFromUnknownEmail(t *testing.T) {
	f := newFixture(t, false)
	reg := f.register(t, "known@x.com", "Secret1")
	f.users.set(reg.UserID, true, true)
	ctx := context.Background()

	_, wrongPassword := f.svc.Login(ctx, LoginRequest{Email: "known@x.com", Password: "nope"})
	_, unknownEmail := f.svc.Login(ctx, LoginRequest{Email: "ghost@x.com", Password: "nope"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	assert.InDelta(t, 2, testutil.ToFloat64(
		f.metrics.Logins.WithLabelValues(metrics.OutcomeInvalidCredentials)), 0)
}

func TestLogin_UnifiedIneligibleError(t *testing.T) {
	f := newFixture(t, true)
	f.register(t, "unverified@x.com", "Secret1")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email: "unverified@x.com", Password: "Secret1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrAccountNotEligible)
}

func TestLogin_WrongPasswordOnIneligibleAccountIsInvalidCredentials(t *testing.T) {
	f := newFixture(t, false)
	f.register(t, "pending@x.com", "Secret1")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email: "pending@x.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UpgradesOutdatedHash(t *testing.T) {
	f := newFixture(t, false)
	reg := f.register(t, "old@x.com", "Secret1")
	f.users.set(reg.UserID, true, true)

	weaker, err := core.NewPasswordHasher(core.ArgonParams{Time: 1, Memory: 512, Threads: 1})
	require.NoError(t, err)
	oldHash, err := weaker.Hash("Secret1")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdatePassword(context.Background(), reg.UserID, oldHash))

	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "old@x.com", Password: "Secret1"})
	require.NoError(t, err)

	stored, err := f.users.GetByEmail(context.Background(), "old@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, stored.PasswordHash)
	assert.False(t, f.hasher.NeedsRehash(stored.PasswordHash))
	assert.True(t, f.hasher.Verify("Secret1", stored.PasswordHash))
}

type brokenUsers struct{ memoryUsers }

func (b *brokenUsers) GetByEmail(context.Context, string) (*UserInfo, error) {
	return nil, errors.New("connection reset")
}

func TestLogin_StoreFailureIsNotInvalidCredentials(t *testing.T) {
	f := newFixture(t, false)
	svc := NewService(ServiceConfig{
		Users:  &brokenUsers{},
		Tokens: f.jwt,
		Hasher: f.hasher,
	})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
