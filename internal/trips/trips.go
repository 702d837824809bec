// Package trips owns the current-location invariant and the trip lifecycle
// state machine, including live ETA recomputation.
package trips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"homeline/internal/util"
	"homeline/pkg/domain"
	"homeline/pkg/geo"
)

var (
	// ErrAddressNotFound indicates the geocoder could not resolve the
	// given free-text address. Nothing is written when this is returned.
	ErrAddressNotFound = errors.New("address not resolved")
	// ErrNoActiveTrip indicates the user has no trip in progress.
	ErrNoActiveTrip = errors.New("no active trip")
	// ErrNoCurrentLocation indicates the user has no known location.
	ErrNoCurrentLocation = errors.New("no current location")
)

// TripStore is the slice of the store the engine needs.
type TripStore interface {
	SetCurrentLocation(domain.Location) error
	GetCurrentLocation(userID string) (domain.Location, bool, error)
	CreateTrip(domain.Trip) error
	GetActiveTrip(userID string) (domain.Trip, bool, error)
	SetTripStatus(id string, status domain.TripStatus, completedAt time.Time) error
}

// ETAResult is a live estimate for an active trip. Route is nil when the
// routing collaborator failed; the trip and location are still returned so
// the caller can reply with what it knows.
type ETAResult struct {
	Trip     domain.Trip
	Location domain.Location
	Route    *domain.Route
	Arrival  *time.Time
}

// Engine coordinates locations and trips against the store and the external
// geocoding/routing collaborators.
type Engine struct {
	store    TripStore
	geocoder geo.Geocoder
	router   geo.Router
	now      func() time.Time
}

// New constructs the engine.
func New(store TripStore, geocoder geo.Geocoder, router geo.Router) *Engine {
	return &Engine{
		store:    store,
		geocoder: geocoder,
		router:   router,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetCurrentLocation records a new current location from known coordinates.
// The store flips the prior current row and inserts the new one atomically.
func (e *Engine) SetCurrentLocation(userID string, lat, lng decimal.Decimal, address string) (domain.Location, error) {
	loc := domain.Location{
		ID:        util.NewID(),
		UserID:    userID,
		Latitude:  lat,
		Longitude: lng,
		Address:   address,
		IsCurrent: true,
		CreatedAt: e.now(),
	}
	if err := e.store.SetCurrentLocation(loc); err != nil {
		return domain.Location{}, fmt.Errorf("set current location: %w", err)
	}
	return loc, nil
}

// SetCurrentLocationFromAddress geocodes a free-text address and records it
// as the current location. On geocoding failure nothing is written and
// ErrAddressNotFound is returned.
func (e *Engine) SetCurrentLocationFromAddress(ctx context.Context, userID, address string) (domain.Location, error) {
	place, ok, err := e.geocoder.Geocode(ctx, address)
	if err != nil {
		slog.Warn("geocoding failed", "address", address, "err", err)
		return domain.Location{}, ErrAddressNotFound
	}
	if !ok {
		return domain.Location{}, ErrAddressNotFound
	}
	return e.SetCurrentLocation(userID, place.Latitude, place.Longitude, place.FormattedAddress)
}

// CurrentLocation returns the user's current location if one exists.
func (e *Engine) CurrentLocation(userID string) (domain.Location, bool, error) {
	return e.store.GetCurrentLocation(userID)
}

// StartTrip creates an active trip to the given destination. The user's
// current location, if any, is snapshotted as origin; with an origin the
// routing collaborator supplies a traffic-aware duration to compute the
// estimated arrival. A routing failure leaves the trip without an ETA.
// A geocoding failure aborts with ErrAddressNotFound and writes nothing.
func (e *Engine) StartTrip(ctx context.Context, userID, destination string) (domain.Trip, error) {
	place, ok, err := e.geocoder.Geocode(ctx, destination)
	if err != nil {
		slog.Warn("geocoding failed", "address", destination, "err", err)
		return domain.Trip{}, ErrAddressNotFound
	}
	if !ok {
		return domain.Trip{}, ErrAddressNotFound
	}

	now := e.now()
	trip := domain.Trip{
		ID:                 util.NewID(),
		UserID:             userID,
		DestinationLat:     place.Latitude,
		DestinationLng:     place.Longitude,
		DestinationAddress: place.FormattedAddress,
		Status:             domain.TripActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	origin, hasOrigin, err := e.store.GetCurrentLocation(userID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("load current location: %w", err)
	}
	if hasOrigin {
		trip.OriginLat = &origin.Latitude
		trip.OriginLng = &origin.Longitude
		trip.OriginAddress = origin.Address
		route, routed, err := e.router.Route(ctx,
			geo.LatLng{Lat: origin.Latitude, Lng: origin.Longitude},
			geo.LatLng{Lat: place.Latitude, Lng: place.Longitude},
			now)
		if err != nil {
			slog.Warn("routing failed, trip created without eta", "user", userID, "err", err)
		} else if routed {
			arrival := now.Add(time.Duration(route.DurationInTrafficSeconds) * time.Second)
			trip.EstimatedArrival = &arrival
		}
	}

	if err := e.store.CreateTrip(trip); err != nil {
		return domain.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	return trip, nil
}

// CancelTrip transitions the user's active trip to cancelled. When there is
// no active trip the call reports ok=false rather than an error.
func (e *Engine) CancelTrip(userID string) (domain.Trip, bool, error) {
	trip, ok, err := e.store.GetActiveTrip(userID)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("load active trip: %w", err)
	}
	if !ok {
		return domain.Trip{}, false, nil
	}
	now := e.now()
	if err := e.store.SetTripStatus(trip.ID, domain.TripCancelled, now); err != nil {
		return domain.Trip{}, false, fmt.Errorf("cancel trip: %w", err)
	}
	trip.Status = domain.TripCancelled
	trip.CompletedAt = &now
	return trip, true, nil
}

// CompleteTrip transitions the user's active trip to completed. Same no-op
// semantics as CancelTrip when nothing is active.
func (e *Engine) CompleteTrip(userID string) (domain.Trip, bool, error) {
	trip, ok, err := e.store.GetActiveTrip(userID)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("load active trip: %w", err)
	}
	if !ok {
		return domain.Trip{}, false, nil
	}
	now := e.now()
	if err := e.store.SetTripStatus(trip.ID, domain.TripCompleted, now); err != nil {
		return domain.Trip{}, false, fmt.Errorf("complete trip: %w", err)
	}
	trip.Status = domain.TripCompleted
	trip.CompletedAt = &now
	return trip, true, nil
}

// ETA recomputes the arrival estimate for the user's active trip from their
// current location. The stored estimatedArrival is never trusted; the route
// is fetched live. A routing failure yields a result without a route rather
// than an error.
func (e *Engine) ETA(ctx context.Context, userID string) (ETAResult, error) {
	trip, ok, err := e.store.GetActiveTrip(userID)
	if err != nil {
		return ETAResult{}, fmt.Errorf("load active trip: %w", err)
	}
	if !ok {
		return ETAResult{}, ErrNoActiveTrip
	}
	loc, ok, err := e.store.GetCurrentLocation(userID)
	if err != nil {
		return ETAResult{}, fmt.Errorf("load current location: %w", err)
	}
	if !ok {
		return ETAResult{}, ErrNoCurrentLocation
	}
	res := ETAResult{Trip: trip, Location: loc}
	now := e.now()
	route, routed, err := e.router.Route(ctx,
		geo.LatLng{Lat: loc.Latitude, Lng: loc.Longitude},
		geo.LatLng{Lat: trip.DestinationLat, Lng: trip.DestinationLng},
		now)
	if err != nil {
		slog.Warn("routing failed for eta query", "user", userID, "err", err)
		return res, nil
	}
	if !routed {
		return res, nil
	}
	arrival := now.Add(time.Duration(route.DurationInTrafficSeconds) * time.Second)
	res.Route = &route
	res.Arrival = &arrival
	return res, nil
}
