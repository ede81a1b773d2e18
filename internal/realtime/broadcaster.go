package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Broadcaster maps domain facts onto named events and addressing modes.
// Delivery is best effort: failures are logged and never returned to the caller.
// A nil *Broadcaster is a no-op.
type Broadcaster struct {
	out Emitter
	now func() time.Time
}

func NewBroadcaster(out Emitter) *Broadcaster {
	return &Broadcaster{out: out, now: time.Now}
}

func (b *Broadcaster) emit(ctx context.Context, msg Message) {
	if b == nil || b.out == nil {
		return
	}
	msg.Timestamp = b.now().UTC()
	if err := b.out.Emit(ctx, msg); err != nil {
		log.Warn().Err(err).Str("event", msg.Event).Str("room", msg.Room).Bool("public", msg.Public).Msg("realtime: broadcast failed")
	}
}

// ToGeneral broadcasts to every authenticated connection.
func (b *Broadcaster) ToGeneral(ctx context.Context, event string, data interface{}) {
	b.emit(ctx, Message{Room: RoomGeneral, Event: event, Data: data})
}

// ToUser broadcasts to every connection of one user.
func (b *Broadcaster) ToUser(ctx context.Context, userID, event string, data interface{}) {
	b.emit(ctx, Message{Room: UserRoom(userID), Event: event, Data: data})
}

// ToAdmins broadcasts to admin connections.
func (b *Broadcaster) ToAdmins(ctx context.Context, event string, data interface{}) {
	b.emit(ctx, Message{Room: RoomAdmins, Event: event, Data: data})
}

// ToPublic broadcasts to anonymous connections.
func (b *Broadcaster) ToPublic(ctx context.Context, event string, data interface{}) {
	b.emit(ctx, Message{Public: true, Event: event, Data: data})
}

func (b *Broadcaster) NewRecyclableItem(ctx context.Context, s ListingSummary) {
	b.ToGeneral(ctx, EventNewRecyclableItem, s)
}

func (b *Broadcaster) NewDonation(ctx context.Context, s ListingSummary) {
	b.ToGeneral(ctx, EventNewDonation, s)
}

func (b *Broadcaster) UrgentDonation(ctx context.Context, s ListingSummary) {
	b.ToGeneral(ctx, EventUrgentDonation, s)
}

func (b *Broadcaster) ItemClaimed(ctx context.Context, ownerID string, n ClaimNotice) {
	b.ToUser(ctx, ownerID, EventItemClaimed, n)
}

func (b *Broadcaster) DonationClaimed(ctx context.Context, ownerID string, n ClaimNotice) {
	b.ToUser(ctx, ownerID, EventDonationClaimed, n)
}

func (b *Broadcaster) ItemUnavailable(ctx context.Context, listingID, kind string) {
	b.ToGeneral(ctx, EventItemUnavailable, map[string]string{"itemId": listingID, "kind": kind})
}

func (b *Broadcaster) LeaderboardUpdate(ctx context.Context, u PointsUpdate) {
	b.ToGeneral(ctx, EventLeaderboardUpdate, u)
}

func (b *Broadcaster) AchievementUnlocked(ctx context.Context, n AchievementNotice) {
	b.ToGeneral(ctx, EventAchievementUnlocked, n)
}

func (b *Broadcaster) NewComment(ctx context.Context, n CommentNotice) {
	b.ToGeneral(ctx, EventNewComment, n)
}

func (b *Broadcaster) NewAwarenessPost(ctx context.Context, p PostSummary) {
	b.ToGeneral(ctx, EventNewAwarenessPost, p)
}

func (b *Broadcaster) FeaturedPost(ctx context.Context, p PostSummary) {
	b.ToGeneral(ctx, EventFeaturedPost, p)
}

func (b *Broadcaster) GlobalCarbonUpdate(ctx context.Context, u ActivityUpdate) {
	b.ToGeneral(ctx, EventGlobalCarbonUpdate, u)
}

func (b *Broadcaster) GlobalWaterUpdate(ctx context.Context, u ActivityUpdate) {
	b.ToGeneral(ctx, EventGlobalWaterUpdate, u)
}

func (b *Broadcaster) AdminAlert(ctx context.Context, a Alert) {
	if a.Severity == "" {
		a.Severity = SeverityInfo
	}
	b.ToAdmins(ctx, EventAdminAlert, a)
}

func (b *Broadcaster) SecurityAlert(ctx context.Context, a Alert) {
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}
	b.ToAdmins(ctx, EventSecurityAlert, a)
}

func (b *Broadcaster) SystemStats(ctx context.Context, s Stats) {
	b.ToAdmins(ctx, EventSystemStats, s)
}

func (b *Broadcaster) Announcement(ctx context.Context, message string) {
	b.ToPublic(ctx, EventAnnouncement, map[string]string{"message": message})
}
