package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/notify"
)

func newRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo := NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestSessionRoundTripAndExpiry(t *testing.T) {
	repo, mr := newRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, &Session{ID: "s1", Token: "tok", UserID: "u1", Role: models.RoleSeller, ShopID: "shop-1"}, time.Minute))

	got, err := repo.GetSession(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, models.RoleSeller, got.Role)
	assert.False(t, got.CreatedAt.IsZero())

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetSession(ctx, "s1", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSessionSlidesExpiry(t *testing.T) {
	repo, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveSession(ctx, &Session{ID: "s1"}, time.Minute))

	mr.FastForward(50 * time.Second)
	_, err := repo.GetSession(ctx, "s1", time.Minute)
	require.NoError(t, err)
	mr.FastForward(50 * time.Second)
	_, err = repo.GetSession(ctx, "s1", time.Minute)
	assert.NoError(t, err)
}

func TestDeleteSessionDropsInbox(t *testing.T) {
	repo, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveSession(ctx, &Session{ID: "s1"}, time.Minute))
	require.NoError(t, repo.PushToast(ctx, notify.Toast{Session: "s1", Message: "hi", At: time.Now()}, time.Minute))

	require.NoError(t, repo.DeleteSession(ctx, "s1"))
	assert.False(t, mr.Exists("session:s1"))
	assert.False(t, mr.Exists("toasts:s1"))
}

func TestToastInboxDrainsOnce(t *testing.T) {
	repo, _ := newRedis(t)
	ctx := context.Background()
	inbox := NewToastInbox(repo, 5*time.Second, zaptest.NewLogger(t))

	inbox.Notify(ctx, notify.Toast{Session: "s1", Level: notify.LevelSuccess, Message: "Product deleted successfully", At: time.Now()})
	inbox.Notify(ctx, notify.Toast{Session: "s1", Level: notify.LevelError, Message: "stale", At: time.Now().Add(-time.Minute)})
	inbox.Notify(ctx, notify.Toast{Level: notify.LevelInfo, Message: "no session"})

	got, err := inbox.Drain(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Product deleted successfully", got[0].Message)
	assert.Equal(t, "s1", got[0].Session)

	got, err = inbox.Drain(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToastInboxExpires(t *testing.T) {
	repo, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.PushToast(ctx, notify.Toast{Session: "s1", Message: "hi", At: time.Now()}, 5*time.Second))
	assert.Equal(t, 5*time.Second, mr.TTL("toasts:s1"))
}

func newFilterRepo(t *testing.T) (*FilterRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewFilterRepositoryFromDB(db), mock
}

func TestSavedFilterMissing(t *testing.T) {
	repo, mock := newFilterRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `saved_filters` WHERE user_id = ? AND view = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "u1", "admin-orders")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedFilterFound(t *testing.T) {
	repo, mock := newFilterRepo(t)
	from := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `saved_filters`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "view", "term", "min_date", "created_at", "updated_at"}).
			AddRow(3, "u1", "admin-orders", "ravi", from, from, from))

	got, err := repo.Get(context.Background(), "u1", "admin-orders")
	require.NoError(t, err)
	c := got.Criteria()
	assert.Equal(t, "ravi", c.Term)
	require.NotNil(t, c.MinDate)
	assert.True(t, c.MinDate.Equal(from))
}

func TestSavedFilterUpserts(t *testing.T) {
	repo, mock := newFilterRepo(t)
	mock.ExpectExec("INSERT INTO `saved_filters`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(7, 1))

	got, err := repo.Save(context.Background(), "u1", "admin-users", filter.Criteria{Term: "asha"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, "asha", got.Term)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditTrail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		repo := NewMongoRepositoryFromClient(mt.Client, &config.MongoDBConfig{Database: "shopdash", Collection: "audit"})
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		entry := &AuditEntry{UserID: "u1", View: "admin-products", Action: "delete", EntityID: "p1", Outcome: "ok"}
		require.NoError(mt, repo.RecordMutation(context.Background(), entry))
		assert.False(mt, entry.CreatedAt.IsZero())
	})

	mt.Run("trail", func(mt *mtest.T) {
		repo := NewMongoRepositoryFromClient(mt.Client, &config.MongoDBConfig{Database: "shopdash", Collection: "audit"})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "shopdash.audit", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "user_id", Value: "u1"},
				{Key: "view", Value: "admin-products"},
				{Key: "action", Value: "delete"},
				{Key: "entity_id", Value: "p1"},
				{Key: "outcome", Value: "ok"},
			}))

		got, err := repo.AuditTrail(context.Background(), "admin-products", "p1", 10)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "delete", got[0].Action)
		assert.Equal(mt, "p1", got[0].EntityID)
	})
}
