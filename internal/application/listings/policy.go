package listings

import (
	"time"

	"ecotrack-backend/internal/domain"
)

const defaultRetention = 30 * 24 * time.Hour

// Policy holds the time-based lifecycle rules.
type Policy struct {
	// ReservationTTL is how long a claim blocks other users before it is
	// released. Zero disables auto-release for that kind.
	ReservationTTL map[domain.ListingKind]time.Duration
	// Retention is how long any unfinished listing stays open.
	Retention time.Duration
}

// DefaultPolicy releases recyclable reservations after 48 hours, never releases
// donation claims, and expires listings after 30 days.
func DefaultPolicy() Policy {
	return Policy{
		ReservationTTL: map[domain.ListingKind]time.Duration{
			domain.KindRecyclable: 48 * time.Hour,
			domain.KindDonation:   0,
		},
		Retention: defaultRetention,
	}
}

func (p Policy) reservationTTL(kind domain.ListingKind) time.Duration {
	return p.ReservationTTL[kind]
}

func (p Policy) retention() time.Duration {
	if p.Retention <= 0 {
		return defaultRetention
	}
	return p.Retention
}

// Expired reports whether l is past its perishable expiry or the retention window.
func (p Policy) Expired(l *domain.Listing, now time.Time) bool {
	if domain.IsPerishable(l.Kind, l.Category) && l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
		return true
	}
	return now.After(l.CreatedAt.Add(p.retention()))
}

// ReservationLapsed reports whether a reserved listing's hold has run out.
func (p Policy) ReservationLapsed(l *domain.Listing, now time.Time) bool {
	return l.State == domain.StateReserved && l.ReservedUntil != nil && now.After(*l.ReservedUntil)
}

// CreatePoints is credited to the owner for posting a listing.
func CreatePoints(kind domain.ListingKind, urgency string) int {
	if kind == domain.KindDonation {
		switch urgency {
		case domain.UrgencyUrgent:
			return 15
		case domain.UrgencyHigh:
			return 10
		}
	}
	return 5
}

// CompletionPoints returns the owner and claimant credit for a completed hand-over.
func CompletionPoints(kind domain.ListingKind, urgency string) (owner, claimant int) {
	if kind == domain.KindDonation {
		switch urgency {
		case domain.UrgencyUrgent:
			return 20, 5
		case domain.UrgencyHigh:
			return 15, 5
		}
		return 10, 5
	}
	return 10, 5
}

func completionReasons(kind domain.ListingKind) (owner, claimant string) {
	if kind == domain.KindDonation {
		return "Donation completed", "Received a donation"
	}
	return "Recyclable exchange completed", "Picked up a recyclable item"
}
