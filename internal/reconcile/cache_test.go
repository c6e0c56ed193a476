package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
	"hostel-admissions/internal/store/memory"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCache_RoundTripWithTTL(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := reconcile.NewRedisCache(client, 5*time.Minute)
	ctx := context.Background()

	view := &reconcile.GuardianView{
		Contact: guardianMobile,
		Wards:   []models.WardSummary{{ID: "stu-1", Name: "Ravi", Status: models.DerivedCheckedIn, Room: "Room 101"}},
	}
	require.NoError(t, cache.Set(ctx, guardianMobile, view))
	assert.Equal(t, 5*time.Minute, mr.TTL("guardian:"+guardianMobile))

	got, ok, err := cache.Get(ctx, guardianMobile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, view, got)

	mr.FastForward(6 * time.Minute)
	_, ok, err = cache.Get(ctx, guardianMobile)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_MissAndFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := reconcile.NewRedisCache(client, time.Minute)
	ctx := context.Background()

	mock.ExpectGet("guardian:" + guardianMobile).RedisNil()
	_, ok, err := cache.Get(ctx, guardianMobile)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("guardian:" + guardianMobile).SetErr(errors.New("i/o timeout"))
	_, ok, err = cache.Get(ctx, guardianMobile)
	require.Error(t, err)
	assert.False(t, ok)

	mock.ExpectGet("guardian:" + guardianMobile).SetVal("{not json")
	_, _, err = cache.Get(ctx, guardianMobile)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SetUsesPrefixedKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := reconcile.NewRedisCache(client, 2*time.Minute)

	view := &reconcile.GuardianView{Contact: guardianMobile}
	data, err := json.Marshal(view)
	require.NoError(t, err)

	mock.ExpectSet("guardian:"+guardianMobile, data, 2*time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(context.Background(), guardianMobile, view))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateNormalizesAndDedups(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := reconcile.NewRedisCache(client, time.Minute)

	mock.ExpectDel("guardian:9876543210", "guardian:9123456780").SetVal(2)
	err := cache.Invalidate(context.Background(), "+91 98765 43210", "9876543210", "", "91234-56780")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, cache.Invalidate(context.Background(), "", "  "))
}

func TestCacheInvalidator_EvictsOnCommit(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := reconcile.NewRedisCache(client, time.Hour)

	store := memory.New()
	app := application("APP-1", "Ravi Kumar", models.StatusSubmitted)
	store.PutApplication(app)

	engine := newEngine(t, sourcesOf(store), reconcile.WithCache(cache))
	ctx := context.Background()

	view, err := engine.Reconcile(ctx, guardianMobile)
	require.NoError(t, err)
	assert.Equal(t, models.DerivedStatus(models.StatusSubmitted), view.Wards[0].Status)
	assert.True(t, mr.Exists("guardian:"+guardianMobile))

	machine := lifecycle.NewMachine(store, logger.NewTestLogger(t), lifecycle.WithHooks(reconcile.NewCacheInvalidator(cache)))
	out, err := machine.StartReview(ctx, "APP-1",
		models.Actor{ID: "u-sup", Name: "Supt", Role: models.RoleSuperintendent}, "documents look complete")
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.False(t, mr.Exists("guardian:"+guardianMobile))

	view, err = engine.Reconcile(ctx, guardianMobile)
	require.NoError(t, err)
	assert.Equal(t, models.DerivedStatus(models.StatusReview), view.Wards[0].Status)
}

func TestCacheInvalidator_FailureIsWarning(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := reconcile.NewRedisCache(client, time.Minute)
	mock.ExpectDel("guardian:" + guardianMobile).SetErr(errors.New("connection reset"))

	store := memory.New()
	store.PutApplication(application("APP-1", "Ravi Kumar", models.StatusSubmitted))
	machine := lifecycle.NewMachine(store, logger.NewTestLogger(t), lifecycle.WithHooks(reconcile.NewCacheInvalidator(cache)))

	out, err := machine.StartReview(context.Background(), "APP-1",
		models.Actor{ID: "u-sup", Role: models.RoleSuperintendent}, "reviewing")
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "cache")
	assert.Equal(t, models.StatusReview, out.Application.Status)
}
