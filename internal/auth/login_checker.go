package auth

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/fittracker/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte           = 1024 * 1024
	DefaultCacheTTL    = time.Minute
	loginCacheSizeInMB = 8
)

// LoginChecker validates session tokens against redis, with a short lived
// in-process cache in front of it.
type LoginChecker struct {
	ttl         time.Duration
	cacheTTL    time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
	now         func() time.Time
}

func NewLoginChecker(ttl, cacheTTL time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		cacheTTL:    cacheTTL,
		redisClient: redisClient,
		cache:       freecache.NewCache(loginCacheSizeInMB * megabyte),
		now:         time.Now,
	}
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (_ uuid.UUID, _ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.login_checker.is_logged")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if token == "" {
		return uuid.Nil, false, nil
	}

	sessionKey := sessionKeyPrefix + token
	var val string
	cached, cacheErr := lc.cache.Get([]byte(sessionKey))
	if cacheErr == nil {
		val = string(cached)
	} else {
		val, err = lc.redisClient.Get(ctx, sessionKey).Result()
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
	}

	session, err := parseSession(val)
	if err != nil {
		return uuid.Nil, false, err
	}

	remaining := lc.ttl - lc.now().Sub(session.CreatedAt)
	if remaining <= 0 {
		lc.cache.Del([]byte(sessionKey))
		return uuid.Nil, false, nil
	}

	cacheFor := lc.cacheTTL
	if remaining < cacheFor {
		cacheFor = remaining
	}
	if cacheSeconds := int(cacheFor / time.Second); cacheSeconds > 0 {
		if err := lc.cache.Set([]byte(sessionKey), []byte(val), cacheSeconds); err != nil {
			log.Errorf("login checker, cache session: %s", err)
		}
	}

	return session.OwnerID, true, nil
}

// Forget drops the cached state of the token, so a logout is seen immediately.
func (lc *LoginChecker) Forget(token string) {
	lc.cache.Del([]byte(sessionKeyPrefix + token))
}
