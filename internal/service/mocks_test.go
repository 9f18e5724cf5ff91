package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-contact-api/internal/denylist"
	"go-contact-api/internal/model"
	"go-contact-api/internal/security"
	"go-contact-api/internal/token"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 7
	}
	return args.Error(0)
}

func (m *MockUserStore) FindByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByUUID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) EmailExists(ctx context.Context, email string, excludeUUID string) (bool, error) {
	args := m.Called(ctx, email, excludeUUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) List(ctx context.Context, q model.UserQuery) ([]model.User, int, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]model.User), args.Int(1), args.Error(2)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Create(ctx context.Context, p *model.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// fakeTx runs fn directly and remembers whether it ended in a rollback.
type fakeTx struct {
	calls      int
	rolledBack bool
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	err := fn(ctx)
	f.rolledBack = err != nil
	return err
}

type recordedEvent struct {
	event   string
	outcome string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) RecordAuthEvent(event string, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, outcome: outcome})
}

func (f *fakeRecorder) last() recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return recordedEvent{}
	}
	return f.events[len(f.events)-1]
}

type authFixture struct {
	users    *MockUserStore
	profiles *MockProfileStore
	tx       *fakeTx
	hasher   *security.BcryptHasher
	tokens   *token.Manager
	recorder *fakeRecorder
	redis    *miniredis.Miniredis
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := token.NewManager("0123456789abcdef0123456789abcdef", "test", time.Hour, denylist.NewRedisDenylist(client, "test"))
	require.NoError(t, err)

	f := &authFixture{
		users:    new(MockUserStore),
		profiles: new(MockProfileStore),
		tx:       &fakeTx{},
		hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		tokens:   tokens,
		recorder: &fakeRecorder{},
		redis:    mr,
	}
	f.svc = NewAuthService(f.users, f.profiles, f.tx, f.hasher, f.tokens)
	f.svc.SetRecorder(f.recorder)

	return f
}

func (f *authFixture) storedUser(t *testing.T, password string) model.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	return model.User{
		ID:           7,
		UUID:         "0d6f3c8e-5a4e-4a62-9b1c-2d3f1b2a9e10",
		Name:         "Jane",
		Email:        "jane@example.com",
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
}
