package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingKind distinguishes the two listing flavours sharing one lifecycle.
type ListingKind string

const (
	KindRecyclable ListingKind = "recyclable"
	KindDonation   ListingKind = "donation"
)

// ListingState is the availability state of a listing.
type ListingState string

const (
	StateAvailable ListingState = "available"
	StateReserved  ListingState = "reserved"
	StateCompleted ListingState = "completed"
	StateExpired   ListingState = "expired"
)

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

var RecyclableCategories = []string{"electronics", "furniture", "clothing", "books", "appliances", "toys", "sports", "other"}

var DonationCategories = []string{"food", "clothing", "electronics", "furniture", "books", "toys", "household", "medical", "other"}

var Urgencies = []string{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent}

var perishable = map[ListingKind]map[string]bool{
	KindDonation: {"food": true},
}

// IsPerishable reports whether listings of this kind and category carry a hard expiry.
func IsPerishable(kind ListingKind, category string) bool {
	return perishable[kind][category]
}

// PerishableCategories returns the perishable categories for a kind.
func PerishableCategories(kind ListingKind) []string {
	out := make([]string, 0, len(perishable[kind]))
	for c := range perishable[kind] {
		out = append(out, c)
	}
	return out
}

// Listing generalizes recyclable items and donations.
type Listing struct {
	ID            uuid.UUID    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind          ListingKind  `gorm:"column:kind;type:varchar(20);not null;index" json:"kind"`
	OwnerID       uuid.UUID    `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title         string       `gorm:"column:title;not null" json:"title"`
	Description   string       `gorm:"column:description" json:"description"`
	Category      string       `gorm:"column:category;not null;index" json:"category"`
	Condition     string       `gorm:"column:condition" json:"condition,omitempty"`
	Urgency       string       `gorm:"column:urgency" json:"urgency,omitempty"`
	Quantity      float64      `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Unit          string       `gorm:"column:unit" json:"unit"`
	City          string       `gorm:"column:city;index" json:"city"`
	Address       string       `gorm:"column:address" json:"address"`
	State         ListingState `gorm:"column:state;type:varchar(20);not null;default:available;index" json:"state"`
	ClaimantID    *uuid.UUID   `gorm:"column:claimant_id;type:uuid" json:"claimant_id"`
	ClaimedAt     *time.Time   `gorm:"column:claimed_at" json:"claimed_at"`
	ReservedUntil *time.Time   `gorm:"column:reserved_until;index" json:"reserved_until"`
	CompletedAt   *time.Time   `gorm:"column:completed_at" json:"completed_at"`
	ExpiresAt     *time.Time   `gorm:"column:expires_at;index" json:"expires_at"`
	IsActive      bool         `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Views         int          `gorm:"column:views;not null;default:0" json:"views"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Availability is the kind-specific label for the state: recyclables are
// "reserved"/"taken", donations are "claimed"/"completed".
func (l *Listing) Availability() string {
	switch l.State {
	case StateReserved:
		if l.Kind == KindDonation {
			return "claimed"
		}
		return "reserved"
	case StateCompleted:
		if l.Kind == KindRecyclable {
			return "taken"
		}
		return "completed"
	}
	return string(l.State)
}

// IsOwner reports whether userID owns the listing.
func (l *Listing) IsOwner(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// IsClaimant reports whether userID holds the current claim.
func (l *Listing) IsClaimant(userID uuid.UUID) bool {
	return l.ClaimantID != nil && *l.ClaimantID == userID
}

// IsWithdrawn reports whether the owner or an admin took the listing down
// while it was still open. Completed and expired listings are inactive too,
// but they are not withdrawn.
func (l *Listing) IsWithdrawn() bool {
	return !l.IsActive && (l.State == StateAvailable || l.State == StateReserved)
}

// ListingInterest is a claimant's message on a listing. One row per (listing, user);
// a newer message replaces the older one.
type ListingInterest struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID    uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_interest_listing_user" json:"listing_id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_interest_listing_user" json:"user_id"`
	Message      string    `gorm:"column:message" json:"message"`
	Organization string    `gorm:"column:organization" json:"organization"`
	ContactPhone string    `gorm:"column:contact_phone" json:"contact_phone"`
	ContactEmail string    `gorm:"column:contact_email" json:"contact_email"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (ListingInterest) TableName() string {
	return "ListingInterests"
}

func (i *ListingInterest) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Listing event types recorded in the audit trail.
const (
	EventCreated     = "CREATED"
	EventUpdated     = "UPDATED"
	EventClaimed     = "CLAIMED"
	EventInterest    = "INTEREST"
	EventReleased    = "RELEASED"
	EventCompleted   = "COMPLETED"
	EventExpired     = "EXPIRED"
	EventDeactivated = "DEACTIVATED"
)

// ListingEvent is an append-only audit row written in the same transaction as
// the listing change it describes.
type ListingEvent struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID   uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ActorUserID *uuid.UUID     `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (ListingEvent) TableName() string {
	return "ListingEvents"
}

func (e *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
