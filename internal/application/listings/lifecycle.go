package listings

import (
	"context"
	"strings"
	"time"

	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterestInput is the message a claimant leaves for the owner.
type InterestInput struct {
	Message      string `json:"message"`
	Organization string `json:"organization"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
}

func (in InterestInput) row(listingID, userID uuid.UUID) *domain.ListingInterest {
	return &domain.ListingInterest{
		ListingID:    listingID,
		UserID:       userID,
		Message:      strings.TrimSpace(in.Message),
		Organization: in.Organization,
		ContactPhone: in.ContactPhone,
		ContactEmail: in.ContactEmail,
	}
}

func upsertInterest(tx *gorm.DB, row *domain.ListingInterest) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "organization", "contact_phone", "contact_email", "updated_at"}),
	}).Create(row).Error
}

// Claim reserves an available listing for claimantID. Of several concurrent
// claims exactly one succeeds; the others get ErrRaceLost.
func (s *Service) Claim(ctx context.Context, kind domain.ListingKind, id, claimantID uuid.UUID, in InterestInput) (*domain.Listing, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if l.IsWithdrawn() {
		return nil, domain.ErrNotFound
	}
	if l.IsOwner(claimantID) {
		return nil, domain.ErrSelfAction
	}
	if l.State != domain.StateAvailable {
		return nil, domain.ErrInvalidState
	}
	claimant, err := s.activeUser(ctx, claimantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]interface{}{
		"state":       domain.StateReserved,
		"claimant_id": claimantID,
		"claimed_at":  now,
	}
	if ttl := s.Policy.reservationTTL(l.Kind); ttl > 0 {
		updates["reserved_until"] = now.Add(ttl)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND state = ? AND is_active = ?", l.ID, domain.StateAvailable, true).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRaceLost
		}
		if err := upsertInterest(tx, in.row(l.ID, claimantID)); err != nil {
			return err
		}
		return s.recordEvent(tx, l.ID, domain.EventClaimed, &claimantID, map[string]interface{}{
			"claimant_id": claimantID, "reserved_until": updates["reserved_until"],
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", l.ID.String()).Str("claimant_id", claimantID.String()).Msg("listing claimed")
	notice := realtime.ClaimNotice{
		ListingID: l.ID.String(),
		Title:     l.Title,
		Claimant:  claimant.Username,
		Message:   strings.TrimSpace(in.Message),
	}
	if l.Kind == domain.KindDonation {
		s.Broadcaster.DonationClaimed(ctx, l.OwnerID.String(), notice)
	} else {
		s.Broadcaster.ItemClaimed(ctx, l.OwnerID.String(), notice)
	}
	s.Broadcaster.ItemUnavailable(ctx, l.ID.String(), string(l.Kind))
	return s.load(ctx, kind, id)
}

// RegisterInterest records or replaces userID's message on a listing without
// claiming it.
func (s *Service) RegisterInterest(ctx context.Context, kind domain.ListingKind, id, userID uuid.UUID, in InterestInput) (*domain.ListingInterest, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if l.IsWithdrawn() {
		return nil, domain.ErrNotFound
	}
	if l.IsOwner(userID) {
		return nil, domain.ErrSelfAction
	}
	if l.State != domain.StateAvailable && l.State != domain.StateReserved {
		return nil, domain.ErrInvalidState
	}
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}

	row := in.row(l.ID, userID)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertInterest(tx, row); err != nil {
			return err
		}
		return s.recordEvent(tx, l.ID, domain.EventInterest, &userID, map[string]interface{}{"message": row.Message})
	})
	if err != nil {
		return nil, err
	}

	var stored domain.ListingInterest
	if err := s.DB.WithContext(ctx).Where("listing_id = ? AND user_id = ?", l.ID, userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Complete finishes a reserved hand-over. Either party may confirm; owner and
// claimant are credited in the same transaction as the state change.
func (s *Service) Complete(ctx context.Context, kind domain.ListingKind, id, actorID uuid.UUID) (*domain.Listing, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if l.IsWithdrawn() {
		return nil, domain.ErrNotFound
	}
	if l.State != domain.StateReserved || l.ClaimantID == nil {
		return nil, domain.ErrInvalidState
	}
	if !l.IsOwner(actorID) && !l.IsClaimant(actorID) {
		return nil, domain.ErrNotAuthorized
	}

	claimantID := *l.ClaimantID
	ownerPts, claimantPts := CompletionPoints(l.Kind, l.Urgency)
	ownerReason, claimantReason := completionReasons(l.Kind)
	now := s.now()
	var ownerAward, claimantAward *ledger.Award

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND state = ? AND claimant_id = ? AND is_active = ?", l.ID, domain.StateReserved, claimantID, true).
			Updates(map[string]interface{}{
				"state":          domain.StateCompleted,
				"completed_at":   now,
				"reserved_until": nil,
				"is_active":      false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRaceLost
		}
		key := "listing:" + l.ID.String() + ":complete:"
		var err error
		if ownerAward, err = s.Ledger.Award(ctx, tx, l.OwnerID, ownerPts, ownerReason, key+"owner"); err != nil {
			return err
		}
		if claimantAward, err = s.Ledger.Award(ctx, tx, claimantID, claimantPts, claimantReason, key+"claimant"); err != nil {
			return err
		}
		return s.recordEvent(tx, l.ID, domain.EventCompleted, &actorID, map[string]interface{}{
			"claimant_id": claimantID, "owner_points": ownerPts, "claimant_points": claimantPts,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", l.ID.String()).Str("actor_id", actorID.String()).Msg("listing completed")
	s.Board.Announce(ctx, ownerAward, claimantAward)
	return s.load(ctx, kind, id)
}

// Refresh applies any due expiry or reservation release to l and updates it
// in place. Every read and write path calls it before acting.
func (s *Service) Refresh(ctx context.Context, l *domain.Listing) error {
	_, err := s.refresh(ctx, l)
	return err
}

func (s *Service) refresh(ctx context.Context, l *domain.Listing) (string, error) {
	now := s.now()
	switch {
	case (l.State == domain.StateAvailable || l.State == domain.StateReserved) && s.Policy.Expired(l, now):
		return s.expire(ctx, l, now)
	case s.Policy.ReservationLapsed(l, now):
		return s.release(ctx, l)
	}
	return "", nil
}

func (s *Service) expire(ctx context.Context, l *domain.Listing, now time.Time) (string, error) {
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND state IN ?", l.ID, []domain.ListingState{domain.StateAvailable, domain.StateReserved}).
			Updates(map[string]interface{}{"state": domain.StateExpired, "is_active": false})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		changed = true
		reason := "retention"
		if domain.IsPerishable(l.Kind, l.Category) && l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
			reason = "expires_at"
		}
		return s.recordEvent(tx, l.ID, domain.EventExpired, nil, map[string]interface{}{"reason": reason, "previous_state": l.State})
	})
	if err != nil {
		return "", err
	}
	if !changed {
		return "", s.reload(ctx, l)
	}
	wasAvailable := l.State == domain.StateAvailable
	l.State = domain.StateExpired
	l.IsActive = false
	log.Info().Str("listing_id", l.ID.String()).Msg("listing expired")
	if wasAvailable {
		s.Broadcaster.ItemUnavailable(ctx, l.ID.String(), string(l.Kind))
	}
	return domain.EventExpired, nil
}

func (s *Service) release(ctx context.Context, l *domain.Listing) (string, error) {
	claimantID := *l.ClaimantID
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND state = ? AND claimant_id = ?", l.ID, domain.StateReserved, claimantID).
			Updates(map[string]interface{}{
				"state":          domain.StateAvailable,
				"claimant_id":    nil,
				"claimed_at":     nil,
				"reserved_until": nil,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		changed = true
		return s.recordEvent(tx, l.ID, domain.EventReleased, nil, map[string]interface{}{"claimant_id": claimantID})
	})
	if err != nil {
		return "", err
	}
	if !changed {
		return "", s.reload(ctx, l)
	}
	l.State = domain.StateAvailable
	l.ClaimantID = nil
	l.ClaimedAt = nil
	l.ReservedUntil = nil
	log.Info().Str("listing_id", l.ID.String()).Str("claimant_id", claimantID.String()).Msg("reservation released")
	return domain.EventReleased, nil
}

// reload picks up a change made by a concurrent writer.
func (s *Service) reload(ctx context.Context, l *domain.Listing) error {
	fresh, err := s.load(ctx, "", l.ID)
	if err != nil {
		return err
	}
	*l = *fresh
	return nil
}
