//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-api/internal/database"
	"go-contact-api/internal/model"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return db
}

func newTestUser(role model.Role) *model.User {
	return &model.User{
		UUID:         uuid.NewString(),
		Name:         "Integration",
		Email:        fmt.Sprintf("it-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hash",
		Role:         role,
	}
}

func TestUserRepository_CreateFindDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.Pool)
	ctx := context.Background()

	u := newTestUser(model.RoleUser)
	u.Email = "  MiXeD-" + u.Email
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	byEmail, err := repo.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, model.RoleUser, byEmail.Role)

	byUUID, err := repo.FindByUUID(ctx, u.UUID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byUUID.ID)

	require.NoError(t, repo.SoftDelete(ctx, u.ID))

	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	exists, err := repo.EmailExists(ctx, u.Email, "")
	require.NoError(t, err)
	assert.True(t, exists, "soft-deleted rows still reserve their email")

	dup := newTestUser(model.RoleUser)
	dup.Email = u.Email
	assert.ErrorIs(t, repo.Create(ctx, dup), model.ErrEmailTaken)
}

func TestTransactor_RollsBackUserWhenProfileFails(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.Pool)
	profiles := NewProfileRepository(db.Pool)
	ctx := context.Background()

	u := newTestUser(model.RoleUser)
	boom := errors.New("boom")

	err := db.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		if err := profiles.Create(ctx, &model.Profile{UUID: uuid.NewString(), UserID: u.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := users.EmailExists(ctx, u.Email, "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.Pool)
	ctx := context.Background()

	admin := newTestUser(model.RoleAdmin)
	admin.Name = fmt.Sprintf("Needle_%d", time.Now().UnixNano())
	require.NoError(t, repo.Create(ctx, admin))

	users, total, err := repo.List(ctx, model.UserQuery{Search: strings.ToLower(admin.Name), Role: "admin", Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total, "underscore is matched literally")
	found := false
	for _, u := range users {
		if u.ID == admin.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProfileRepository_Create(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.Pool)
	profiles := NewProfileRepository(db.Pool)
	ctx := context.Background()

	u := newTestUser(model.RoleUser)
	require.NoError(t, users.Create(ctx, u))

	p := &model.Profile{UUID: uuid.NewString(), UserID: u.ID}
	require.NoError(t, profiles.Create(ctx, p))
	require.NotZero(t, p.ID)

	var (
		userID int64
		phone  *string
	)
	err := db.Pool.QueryRow(ctx, `SELECT user_id, phone FROM profiles WHERE uuid = $1`, p.UUID).Scan(&userID, &phone)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Nil(t, phone)

	dup := &model.Profile{UUID: uuid.NewString(), UserID: u.ID}
	assert.Error(t, profiles.Create(ctx, dup), "one profile per user")
}
