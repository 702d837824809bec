// Package format renders domain results into bounded-length reply text.
// Handlers go through this package so presentation changes never touch
// business logic.
package format

import (
	"fmt"
	"strings"
	"time"

	"homeline/internal/trips"
	"homeline/pkg/domain"
)

// DefaultMaxLen bounds replies to one concatenated-SMS worth of text.
const DefaultMaxLen = 1600

// Formatter renders replies bounded to a maximum transport length.
type Formatter struct {
	maxLen int
}

// New constructs a formatter. maxLen <= 0 selects the default bound.
func New(maxLen int) *Formatter {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Formatter{maxLen: maxLen}
}

// Text bounds arbitrary text with a deterministic hard cut plus ellipsis.
func (f *Formatter) Text(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= f.maxLen {
		return string(runes)
	}
	return string(runes[:f.maxLen-1]) + "…"
}

// List renders a list and its items, open items first.
func (f *Formatter) List(list domain.List, items []domain.ListItem) string {
	if len(items) == 0 {
		return f.Text(fmt.Sprintf("%s is empty.", list.Name))
	}
	var sb strings.Builder
	sb.WriteString(list.Name)
	sb.WriteString(":")
	for _, item := range items {
		if item.IsCompleted {
			continue
		}
		sb.WriteString("\n- ")
		sb.WriteString(item.Content)
		if item.Quantity != "" {
			sb.WriteString(" (" + item.Quantity + ")")
		}
	}
	done := 0
	for _, item := range items {
		if item.IsCompleted {
			done++
		}
	}
	if done > 0 {
		sb.WriteString(fmt.Sprintf("\n(%d done)", done))
	}
	return f.Text(sb.String())
}

// Contacts renders contact records, one per line.
func (f *Formatter) Contacts(found []domain.Contact) string {
	if len(found) == 0 {
		return "No contacts found."
	}
	var sb strings.Builder
	for i, c := range found {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Name)
		if c.PhoneNumber != "" {
			sb.WriteString(": " + c.PhoneNumber)
		}
	}
	return f.Text(sb.String())
}

// Trip renders a freshly started trip, with the ETA clause omitted when no
// estimate is available.
func (f *Formatter) Trip(trip domain.Trip) string {
	msg := fmt.Sprintf("Trip started to %s.", trip.DestinationAddress)
	if trip.EstimatedArrival != nil {
		msg += fmt.Sprintf(" ETA %s.", clock(*trip.EstimatedArrival))
	}
	return f.Text(msg)
}

// ETA renders a live estimate, degrading to what is known when the routing
// collaborator gave no answer.
func (f *Formatter) ETA(name string, res trips.ETAResult) string {
	if res.Route == nil || res.Arrival == nil {
		return f.Text(fmt.Sprintf("%s is heading to %s; no live estimate is available right now.",
			name, res.Trip.DestinationAddress))
	}
	km := float64(res.Route.DistanceMeters) / 1000
	mins := (res.Route.DurationInTrafficSeconds + 59) / 60
	return f.Text(fmt.Sprintf("%s is %.1f km from %s, about %d min away (arriving around %s).",
		name, km, res.Trip.DestinationAddress, mins, clock(*res.Arrival)))
}

// Location renders a known position.
func (f *Formatter) Location(name string, loc domain.Location) string {
	if loc.Address != "" {
		return f.Text(fmt.Sprintf("%s was last seen at %s.", name, loc.Address))
	}
	return f.Text(fmt.Sprintf("%s was last seen at %s, %s.",
		name, loc.Latitude.StringFixed(8), loc.Longitude.StringFixed(8)))
}

func clock(t time.Time) string {
	return t.Format("3:04 PM")
}
