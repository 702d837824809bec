package geo

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"homeline/pkg/domain"
)

const defaultGeocodeTTL = 24 * time.Hour

// CachedGeocoder caches geocode results in redis. Addresses are stable, so
// hits avoid the round-trip on every repeated "where is" style query. Cache
// failures fall through to the inner geocoder.
type CachedGeocoder struct {
	inner  Geocoder
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedGeocoder wraps a geocoder with a redis cache.
func NewCachedGeocoder(inner Geocoder, addr, password string, ttl time.Duration) *CachedGeocoder {
	if ttl <= 0 {
		ttl = defaultGeocodeTTL
	}
	return &CachedGeocoder{
		inner: inner,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: "homeline:geocode:",
		ttl:    ttl,
	}
}

// Geocode returns the cached place for an address or resolves and caches it.
// Unresolvable addresses are not cached so a later retry can succeed.
func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.Place, bool, error) {
	key := c.prefix + strings.ToLower(strings.TrimSpace(address))
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var place domain.Place
		if err := json.Unmarshal(raw, &place); err == nil {
			return place, true, nil
		}
	} else if err != redis.Nil {
		slog.Debug("geocode cache read failed", "err", err)
	}
	place, ok, err := c.inner.Geocode(ctx, address)
	if err != nil || !ok {
		return place, ok, err
	}
	if raw, err := json.Marshal(place); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			slog.Debug("geocode cache write failed", "err", err)
		}
	}
	return place, true, nil
}
