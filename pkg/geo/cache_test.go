package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"homeline/pkg/domain"
)

type countingGeocoder struct {
	calls int
	place domain.Place
	ok    bool
	err   error
}

func (c *countingGeocoder) Geocode(context.Context, string) (domain.Place, bool, error) {
	c.calls++
	return c.place, c.ok, c.err
}

func TestCachedGeocoderHit(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingGeocoder{
		place: domain.Place{
			Latitude:         decimal.RequireFromString("37.77490000"),
			Longitude:        decimal.RequireFromString("-122.41940000"),
			FormattedAddress: "123 Main St, Springfield",
		},
		ok: true,
	}
	c := NewCachedGeocoder(inner, mr.Addr(), "", time.Hour)
	ctx := context.Background()

	first, ok, err := c.Geocode(ctx, "123 Main St")
	if err != nil || !ok {
		t.Fatalf("first geocode: ok=%v err=%v", ok, err)
	}
	second, ok, err := c.Geocode(ctx, "123 Main St")
	if err != nil || !ok {
		t.Fatalf("second geocode: ok=%v err=%v", ok, err)
	}
	if inner.calls != 1 {
		t.Fatalf("second lookup should hit the cache, inner calls = %d", inner.calls)
	}
	if second.FormattedAddress != first.FormattedAddress || !second.Latitude.Equal(first.Latitude) {
		t.Fatalf("cached place differs: %+v vs %+v", second, first)
	}

	// Keys are case- and whitespace-normalized.
	if _, _, err := c.Geocode(ctx, "  123 MAIN st "); err != nil {
		t.Fatalf("normalized geocode: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("normalized address should hit the same key, inner calls = %d", inner.calls)
	}
}

func TestCachedGeocoderMissNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingGeocoder{}
	c := NewCachedGeocoder(inner, mr.Addr(), "", time.Hour)
	ctx := context.Background()

	if _, ok, err := c.Geocode(ctx, "nowhere"); ok || err != nil {
		t.Fatalf("expected unresolved, ok=%v err=%v", ok, err)
	}
	if _, ok, err := c.Geocode(ctx, "nowhere"); ok || err != nil {
		t.Fatalf("expected unresolved, ok=%v err=%v", ok, err)
	}
	if inner.calls != 2 {
		t.Fatalf("unresolved addresses must not be cached, inner calls = %d", inner.calls)
	}
}

func TestCachedGeocoderRedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	inner := &countingGeocoder{
		place: domain.Place{FormattedAddress: "123 Main St, Springfield"},
		ok:    true,
	}
	c := NewCachedGeocoder(inner, addr, "", time.Hour)

	place, ok, err := c.Geocode(context.Background(), "123 Main St")
	if err != nil || !ok {
		t.Fatalf("cache outage should fall through: ok=%v err=%v", ok, err)
	}
	if place.FormattedAddress != "123 Main St, Springfield" {
		t.Fatalf("unexpected place: %+v", place)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d", inner.calls)
	}
}

func TestCachedGeocoderPropagatesInnerError(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingGeocoder{err: errors.New("upstream down")}
	c := NewCachedGeocoder(inner, mr.Addr(), "", time.Hour)

	if _, _, err := c.Geocode(context.Background(), "123 Main St"); err == nil {
		t.Fatal("inner error should propagate")
	}
}
