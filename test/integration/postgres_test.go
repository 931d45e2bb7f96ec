//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/tifi/internal/domain/ident"
	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	pg "github.com/NordCoder/tifi/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openPG(t *testing.T) *pg.DB {
	t.Helper()
	cfg := LoadCfg()
	raw := DBOpen(t, cfg.DBDSN)
	Migrate(t, raw)
	_ = raw.Close()

	db, err := pg.NewDB(context.Background(), pg.Config{DSN: cfg.DBDSN, QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func seedUser(t *testing.T, repo *pg.UserRepo) *user.User {
	t.Helper()
	u := &user.User{ID: ident.New(), Email: UniqueEmail("it-pg"), PasswordHash: "x", FirstName: "Ada"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func newNotification(receiver, title string) *notification.Notification {
	now := time.Now().UTC()
	return &notification.Notification{
		ID: ident.New(), Title: title, Status: notification.StatusUnread, Type: notification.TypeInfo,
		ReceiverID: receiver, CreatedAt: now, UpdatedAt: now,
	}
}

func TestPostgres_UserRepo(t *testing.T) {
	db := openPG(t)
	users := pg.NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, users)
	assert.True(t, u.IsActive)

	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = users.Create(ctx, &user.User{ID: ident.New(), Email: u.Email, PasswordHash: "y"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestPostgres_NotificationRepo(t *testing.T) {
	db := openPG(t)
	users := pg.NewUserRepo(db)
	repo := pg.NewNotificationRepo(db)
	ctx := context.Background()

	u := seedUser(t, users)

	err := repo.Create(ctx, newNotification("nobody", "x"))
	assert.ErrorIs(t, err, notification.ErrUnknownReceiver)

	first := newNotification(u.ID, "first")
	require.NoError(t, repo.Create(ctx, first))
	second := newNotification(u.ID, "second")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.ListByReceiver(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)

	read, err := repo.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusRead, read.Status)
	again, err := repo.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, read.UpdatedAt, again.UpdatedAt)

	unread := notification.StatusUnread
	list, err = repo.ListByReceiver(ctx, u.ID, &unread)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	n, err := repo.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestPostgres_TransactorRollsBack(t *testing.T) {
	db := openPG(t)
	users := pg.NewUserRepo(db)
	tx := pg.NewTransactor(db, zap.NewNop())
	ctx := context.Background()

	u := &user.User{ID: ident.New(), Email: UniqueEmail("it-tx"), PasswordHash: "x"}
	boom := errors.New("boom")
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, users.Create(ctx, u))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}
