package profile

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service resolves sender display names for group history attribution.
type Service interface {
	DisplayName(ctx context.Context, userID string) string
}

// LookupFunc fetches a display name from the platform.
type LookupFunc func(ctx context.Context, userID string) (string, error)

// FallbackName is used whenever the platform lookup fails. Attribution is
// best-effort and never fatal.
const FallbackName = "User"

// CachedResolver memoizes platform profile lookups with a TTL cache so a
// chatty group does not hit the profile API on every message.
type CachedResolver struct {
	lookup LookupFunc
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewCachedResolver creates a resolver caching names for ttl.
func NewCachedResolver(lookup LookupFunc, ttl time.Duration, logger *logrus.Logger) *CachedResolver {
	return &CachedResolver{
		lookup: lookup,
		cache:  cache.New(ttl, ttl*2),
		logger: logger,
	}
}

// DisplayName returns the sender's display name, or FallbackName when the
// lookup fails. Failures are not cached so a transient error heals itself.
func (r *CachedResolver) DisplayName(ctx context.Context, userID string) string {
	if val, found := r.cache.Get(userID); found {
		return val.(string)
	}

	name, err := r.lookup(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("sender_id", userID).Warn("Profile lookup failed")
		return FallbackName
	}
	if name == "" {
		name = FallbackName
	}

	r.cache.SetDefault(userID, name)
	return name
}
