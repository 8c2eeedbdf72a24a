package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/database/dbtest"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

var testSessionConfig = config.SessionConfig{
	CookieName: "storefront_session",
	Secret:     "test-session-secret",
	TTLHours:   1,
}

func newRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisSessionStore(rdb), mr
}

func TestResolveStartsAndResumesSessions(t *testing.T) {
	stores := map[string]SessionStore{
		"gorm": NewGormSessionStore(dbtest.Open(t)),
	}
	redisStore, _ := newRedisStore(t)
	stores["redis"] = redisStore

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewSessionService(store, testSessionConfig)

			first, err := svc.Resolve(ctx, "")
			require.NoError(t, err)
			assert.Len(t, first.Key, 32)
			require.NotEmpty(t, first.Token)

			again, err := svc.Resolve(ctx, first.Token)
			require.NoError(t, err)
			assert.Equal(t, first.Key, again.Key)
			assert.Empty(t, again.Token)

			forged, err := svc.Resolve(ctx, "not-a-token")
			require.NoError(t, err)
			assert.NotEqual(t, first.Key, forged.Key)
			assert.NotEmpty(t, forged.Token)
		})
	}
}

func TestResolveRejectsTokensFromOtherSecrets(t *testing.T) {
	store, _ := newRedisStore(t)
	svc := NewSessionService(store, testSessionConfig)

	token, err := utils.GenerateSessionToken([]byte("another-secret"), "attacker-chosen-key", time.Hour)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen-key", resolved.Key)
}

func TestResolveRenewsAgingTokens(t *testing.T) {
	stores := map[string]SessionStore{
		"gorm": NewGormSessionStore(dbtest.Open(t)),
	}
	redisStore, _ := newRedisStore(t)
	stores["redis"] = redisStore

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewSessionService(store, testSessionConfig)

			first, err := svc.Resolve(ctx, "")
			require.NoError(t, err)

			// A token issued 40 of 60 minutes ago while the store kept the
			// session alive.
			aging, err := utils.GenerateSessionToken([]byte(testSessionConfig.Secret), first.Key, 20*time.Minute)
			require.NoError(t, err)

			renewed, err := svc.Resolve(ctx, aging)
			require.NoError(t, err)
			assert.Equal(t, first.Key, renewed.Key)
			require.NotEmpty(t, renewed.Token)

			claims, err := utils.ParseSessionToken([]byte(testSessionConfig.Secret), renewed.Token)
			require.NoError(t, err)
			assert.Equal(t, first.Key, claims.Subject)
			assert.WithinDuration(t, time.Now().Add(svc.TTL()), claims.ExpiresAt.Time, time.Minute)

			// The renewed token resolves to the same key without another renewal.
			again, err := svc.Resolve(ctx, renewed.Token)
			require.NoError(t, err)
			assert.Equal(t, first.Key, again.Key)
			assert.Empty(t, again.Token)
		})
	}
}

func TestResolveReplacesExpiredSessions(t *testing.T) {
	t.Run("redis", func(t *testing.T) {
		store, mr := newRedisStore(t)
		svc := NewSessionService(store, testSessionConfig)
		ctx := context.Background()

		first, err := svc.Resolve(ctx, "")
		require.NoError(t, err)

		mr.FastForward(2 * time.Hour)

		next, err := svc.Resolve(ctx, first.Token)
		require.NoError(t, err)
		assert.NotEqual(t, first.Key, next.Key)
		assert.NotEmpty(t, next.Token)
	})

	t.Run("gorm", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := NewSessionService(NewGormSessionStore(db), testSessionConfig)
		ctx := context.Background()

		first, err := svc.Resolve(ctx, "")
		require.NoError(t, err)

		require.NoError(t, db.Model(&models.Session{}).
			Where("session_key = ?", first.Key).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		next, err := svc.Resolve(ctx, first.Token)
		require.NoError(t, err)
		assert.NotEqual(t, first.Key, next.Key)
	})
}

func TestSessionStoresRejectDuplicateKeys(t *testing.T) {
	ctx := context.Background()

	redisStore, mr := newRedisStore(t)
	require.NoError(t, redisStore.Create(ctx, "dup", time.Hour))
	assert.Error(t, redisStore.Create(ctx, "dup", time.Hour))
	assert.True(t, mr.Exists("session:dup"))

	gormStore := NewGormSessionStore(dbtest.Open(t))
	require.NoError(t, gormStore.Create(ctx, "dup", time.Hour))
	assert.Error(t, gormStore.Create(ctx, "dup", time.Hour))

	alive, err := gormStore.Touch(ctx, "missing", time.Hour)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestNewSessionStorePrefersRedis(t *testing.T) {
	db := dbtest.Open(t)
	assert.IsType(t, &GormSessionStore{}, NewSessionStore(db, nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	assert.IsType(t, &RedisSessionStore{}, NewSessionStore(db, rdb))
}
