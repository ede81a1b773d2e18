package realtime

import (
	"context"
	"time"
)

// Event names pushed to clients.
const (
	EventConnected           = "connected"
	EventPong                = "pong"
	EventNewRecyclableItem   = "newRecyclableItem"
	EventNewDonation         = "newDonation"
	EventItemClaimed         = "itemClaimed"
	EventDonationClaimed     = "donationClaimed"
	EventItemUnavailable     = "itemUnavailable"
	EventUrgentDonation      = "urgentDonation"
	EventLeaderboardUpdate   = "leaderboardUpdate"
	EventAchievementUnlocked = "achievementUnlocked"
	EventNewComment          = "newComment"
	EventNewAwarenessPost    = "newAwarenessPost"
	EventFeaturedPost        = "featuredPost"
	EventGlobalCarbonUpdate  = "globalCarbonUpdate"
	EventGlobalWaterUpdate   = "globalWaterUpdate"
	EventAdminAlert          = "adminAlert"
	EventSecurityAlert       = "securityAlert"
	EventSystemStats         = "systemStats"
	EventAnnouncement        = "announcement"
)

// Room names.
const (
	RoomGeneral = "general"
	RoomAdmins  = "admins"
)

// UserRoom is the private room of a single user.
func UserRoom(userID string) string {
	return "user:" + userID
}

// Message is one fan-out instruction. Exactly one of Room or Public addresses it.
type Message struct {
	Room      string      `json:"room,omitempty"`
	Public    bool        `json:"public,omitempty"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Envelope is what a connected client receives.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Emitter delivers messages to connections. The local Hub and the Redis Relay
// both implement it.
type Emitter interface {
	Emit(ctx context.Context, msg Message) error
}

// ListingSummary is the payload of new-listing and urgent-donation events.
type ListingSummary struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Urgency   string     `json:"urgency,omitempty"`
	City      string     `json:"city,omitempty"`
	OwnerID   string     `json:"ownerId"`
	Owner     string     `json:"owner,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ClaimNotice tells an owner that their listing was claimed.
type ClaimNotice struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	Claimant  string `json:"claimant"`
	Message   string `json:"message,omitempty"`
}

// PointsUpdate is the leaderboardUpdate payload.
type PointsUpdate struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Total    int    `json:"total"`
	Reason   string `json:"reason"`
}

// AchievementNotice is the achievementUnlocked payload.
type AchievementNotice struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CommentNotice is the newComment payload.
type CommentNotice struct {
	PostID    string `json:"postId"`
	PostTitle string `json:"postTitle"`
	Username  string `json:"username"`
	Comment   string `json:"comment"`
}

// PostSummary is the payload of awareness post events.
type PostSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Featured bool   `json:"featured"`
}

// ActivityUpdate is the payload of global carbon and water updates.
type ActivityUpdate struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Points   int     `json:"points"`
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is the adminAlert and securityAlert payload.
type Alert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}
