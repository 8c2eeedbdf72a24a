// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

// SessionStore persists session keys with a sliding expiry.
type SessionStore interface {
	Create(ctx context.Context, key string, ttl time.Duration) error
	// Touch extends a live session and reports whether it existed.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionRedisKey(key string) string {
	return "session:" + key
}

func (s *RedisSessionStore) Create(ctx context.Context, key string, ttl time.Duration) error {
	created, err := s.rdb.SetNX(ctx, sessionRedisKey(key), time.Now().Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !created {
		return fmt.Errorf("session key collision")
	}
	return nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.Expire(ctx, sessionRedisKey(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to refresh session: %w", err)
	}
	return ok, nil
}

type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, key string, ttl time.Duration) error {
	session := models.Session{SessionKey: key, ExpiresAt: time.Now().Add(ttl)}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&session)
	if res.Error != nil {
		return fmt.Errorf("failed to store session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session key collision")
	}
	return nil
}

func (s *GormSessionStore) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("session_key = ? AND expires_at > ?", key, now).
		Update("expires_at", now.Add(ttl))
	if res.Error != nil {
		return false, fmt.Errorf("failed to refresh session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// NewSessionStore picks Redis when configured, else the database.
func NewSessionStore(db *gorm.DB, rdb *redis.Client) SessionStore {
	if rdb != nil {
		return NewRedisSessionStore(rdb)
	}
	return NewGormSessionStore(db)
}

// SessionService maps a request's session cookie to a stable session key.
type SessionService struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
}

type ResolvedSession struct {
	Key string
	// Token is set when a session was started or its token renewed, and must
	// be sent back as cookie.
	Token string
}

func NewSessionService(store SessionStore, cfg config.SessionConfig) *SessionService {
	return &SessionService{
		store:  store,
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(cfg.TTLHours) * time.Hour,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Resolve returns the session behind token, starting a new one when the
// token is absent, forged, expired, or unknown to the store. The store slides
// the expiry on every call; the token follows once less than half of its
// lifetime is left.
func (s *SessionService) Resolve(ctx context.Context, token string) (*ResolvedSession, error) {
	if token != "" {
		claims, err := utils.ParseSessionToken(s.secret, token)
		if err == nil {
			key := claims.Subject
			alive, err := s.store.Touch(ctx, key, s.ttl)
			if err != nil {
				return nil, err
			}
			if alive {
				resolved := &ResolvedSession{Key: key}
				if time.Until(claims.ExpiresAt.Time) < s.ttl/2 {
					if resolved.Token, err = utils.GenerateSessionToken(s.secret, key, s.ttl); err != nil {
						return nil, fmt.Errorf("failed to sign session token: %w", err)
					}
				}
				return resolved, nil
			}
		} else {
			logrus.WithError(err).Debug("Discarding invalid session token")
		}
	}

	return s.start(ctx)
}

func (s *SessionService) start(ctx context.Context) (*ResolvedSession, error) {
	key, err := utils.GenerateSessionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	if err := s.store.Create(ctx, key, s.ttl); err != nil {
		return nil, err
	}

	token, err := utils.GenerateSessionToken(s.secret, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &ResolvedSession{Key: key, Token: token}, nil
}
