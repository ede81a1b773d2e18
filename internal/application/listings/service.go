package listings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/pkg/validation"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Conditions = []string{"new", "like-new", "good", "fair", "poor"}

// Service owns the listing lifecycle for both recyclables and donations.
type Service struct {
	DB          *gorm.DB
	Ledger      *ledger.Service
	Board       *leaderboard.Service
	Broadcaster *realtime.Broadcaster
	Policy      Policy
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	Urgency     string     `json:"urgency"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	City        string     `json:"city"`
	Address     string     `json:"address"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// UpdateInput lists the only fields an owner may change.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Condition   *string    `json:"condition"`
	Urgency     *string    `json:"urgency"`
	Quantity    *float64   `json:"quantity"`
	Unit        *string    `json:"unit"`
	City        *string    `json:"city"`
	Address     *string    `json:"address"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type ListFilter struct {
	Category string
	City     string
	Urgency  string
	Search   string
	Page     int
	Limit    int
}

func categoriesFor(kind domain.ListingKind) []string {
	if kind == domain.KindDonation {
		return domain.DonationCategories
	}
	return domain.RecyclableCategories
}

func (s *Service) validateCreate(kind domain.ListingKind, in *CreateInput, now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Invalid("title", "is required")
	}
	if len(in.Title) > 100 {
		return domain.Invalid("title", "must be at most 100 characters")
	}
	if !validation.OneOf(in.Category, categoriesFor(kind)) {
		return domain.Invalid("category", "is not a valid "+string(kind)+" category")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return domain.Invalid("quantity", "must be positive")
	}
	switch kind {
	case domain.KindDonation:
		if in.Urgency == "" {
			in.Urgency = domain.UrgencyMedium
		}
		if !validation.OneOf(in.Urgency, domain.Urgencies) {
			return domain.Invalid("urgency", "must be one of low, medium, high, urgent")
		}
		in.Condition = ""
	case domain.KindRecyclable:
		if in.Condition == "" {
			in.Condition = "good"
		}
		if !validation.OneOf(in.Condition, Conditions) {
			return domain.Invalid("condition", "is not a valid condition")
		}
		in.Urgency = ""
	default:
		return domain.Invalid("kind", "is not supported")
	}
	if domain.IsPerishable(kind, in.Category) {
		if in.ExpiresAt == nil {
			return domain.Invalid("expires_at", "is required for perishable items")
		}
		if !in.ExpiresAt.After(now) {
			return domain.Invalid("expires_at", "must be in the future")
		}
	}
	return nil
}

// Create posts a listing, credits the owner and announces it.
func (s *Service) Create(ctx context.Context, kind domain.ListingKind, ownerID uuid.UUID, in CreateInput) (*domain.Listing, error) {
	now := s.now()
	if err := s.validateCreate(kind, &in, now); err != nil {
		return nil, err
	}
	owner, err := s.activeUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var expires *time.Time
	if in.ExpiresAt != nil && domain.IsPerishable(kind, in.Category) {
		e := in.ExpiresAt.UTC()
		expires = &e
	}
	listing := &domain.Listing{
		Kind:        kind,
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Condition:   in.Condition,
		Urgency:     in.Urgency,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		City:        in.City,
		Address:     in.Address,
		State:       domain.StateAvailable,
		ExpiresAt:   expires,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var award *ledger.Award
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		if err := s.recordEvent(tx, listing.ID, domain.EventCreated, &ownerID, map[string]interface{}{
			"kind": kind, "category": listing.Category, "urgency": listing.Urgency,
		}); err != nil {
			return err
		}
		reason := "Listed a recyclable item"
		if kind == domain.KindDonation {
			reason = "Posted a donation"
		}
		award, err = s.Ledger.Award(ctx, tx, ownerID, CreatePoints(kind, listing.Urgency), reason, "listing:"+listing.ID.String()+":create")
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", listing.ID.String()).Str("kind", string(kind)).Str("owner_id", ownerID.String()).Msg("listing created")
	s.Board.Announce(ctx, award)
	summary := summaryOf(listing, owner.Username)
	if kind == domain.KindDonation {
		s.Broadcaster.NewDonation(ctx, summary)
		if listing.Urgency == domain.UrgencyUrgent {
			s.Broadcaster.UrgentDonation(ctx, summary)
		}
	} else {
		s.Broadcaster.NewRecyclableItem(ctx, summary)
	}
	return listing, nil
}

func summaryOf(l *domain.Listing, owner string) realtime.ListingSummary {
	return realtime.ListingSummary{
		ID:        l.ID.String(),
		Kind:      string(l.Kind),
		Title:     l.Title,
		Category:  l.Category,
		Urgency:   l.Urgency,
		City:      l.City,
		OwnerID:   l.OwnerID.String(),
		Owner:     owner,
		ExpiresAt: l.ExpiresAt,
	}
}

// Get returns one listing after applying any due expiry or release. Views by
// anyone but the owner are counted. A withdrawn listing is only visible to its
// owner.
func (s *Service) Get(ctx context.Context, kind domain.ListingKind, id uuid.UUID, viewer *uuid.UUID) (*domain.Listing, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if l.IsWithdrawn() && (viewer == nil || *viewer != l.OwnerID) {
		return nil, domain.ErrNotFound
	}
	if viewer == nil || *viewer != l.OwnerID {
		if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", l.ID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error; err == nil {
			l.Views++
		}
	}
	return l, nil
}

// List returns available listings of a kind, newest first.
func (s *Service) List(ctx context.Context, kind domain.ListingKind, f ListFilter) ([]domain.Listing, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	q := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("kind = ? AND state = ? AND is_active = ?", kind, domain.StateAvailable, true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(f.City))
	}
	if f.Urgency != "" {
		q = q.Where("urgency = ?", f.Urgency)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []domain.Listing
	if err := q.Order("created_at DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return s.refreshAll(ctx, rows, true), total, nil
}

// Urgent returns available donations flagged urgent or high.
func (s *Service) Urgent(ctx context.Context, limit int) ([]domain.Listing, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var rows []domain.Listing
	err := s.DB.WithContext(ctx).
		Where("kind = ? AND state = ? AND is_active = ? AND urgency IN ?", domain.KindDonation, domain.StateAvailable, true,
			[]string{domain.UrgencyUrgent, domain.UrgencyHigh}).
		Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rows, true), nil
}

// Mine returns every listing of a kind owned by ownerID.
func (s *Service) Mine(ctx context.Context, kind domain.ListingKind, ownerID uuid.UUID) ([]domain.Listing, error) {
	var rows []domain.Listing
	err := s.DB.WithContext(ctx).Where("kind = ? AND owner_id = ?", kind, ownerID).
		Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rows, false), nil
}

// Claimed returns listings of a kind currently or previously claimed by userID.
func (s *Service) Claimed(ctx context.Context, kind domain.ListingKind, userID uuid.UUID) ([]domain.Listing, error) {
	var rows []domain.Listing
	err := s.DB.WithContext(ctx).Where("kind = ? AND claimant_id = ?", kind, userID).
		Order("claimed_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rows, false), nil
}

func (s *Service) refreshAll(ctx context.Context, rows []domain.Listing, onlyAvailable bool) []domain.Listing {
	out := rows[:0]
	for i := range rows {
		if err := s.Refresh(ctx, &rows[i]); err != nil {
			log.Warn().Err(err).Str("listing_id", rows[i].ID.String()).Msg("listing refresh failed")
		}
		if onlyAvailable && rows[i].State != domain.StateAvailable {
			continue
		}
		out = append(out, rows[i])
	}
	return out
}

// Update applies an owner's edits while the listing is still available.
func (s *Service) Update(ctx context.Context, kind domain.ListingKind, id, actorID uuid.UUID, in UpdateInput) (*domain.Listing, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if !l.IsOwner(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	if l.State != domain.StateAvailable || !l.IsActive {
		return nil, domain.ErrInvalidState
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len(t) > 100 {
			return nil, domain.Invalid("title", "must be 1-100 characters")
		}
		updates["title"] = t
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return nil, domain.Invalid("quantity", "must be positive")
		}
		updates["quantity"] = *in.Quantity
	}
	if in.Unit != nil {
		updates["unit"] = *in.Unit
	}
	if in.City != nil {
		updates["city"] = *in.City
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.Condition != nil && kind == domain.KindRecyclable {
		if !validation.OneOf(*in.Condition, Conditions) {
			return nil, domain.Invalid("condition", "is not a valid condition")
		}
		updates["condition"] = *in.Condition
	}
	if in.Urgency != nil && kind == domain.KindDonation {
		if !validation.OneOf(*in.Urgency, domain.Urgencies) {
			return nil, domain.Invalid("urgency", "must be one of low, medium, high, urgent")
		}
		updates["urgency"] = *in.Urgency
	}
	if in.ExpiresAt != nil && domain.IsPerishable(l.Kind, l.Category) {
		if !in.ExpiresAt.After(s.now()) {
			return nil, domain.Invalid("expires_at", "must be in the future")
		}
		updates["expires_at"] = in.ExpiresAt.UTC()
	}
	if len(updates) == 0 {
		return nil, domain.Invalid("", "No valid changes provided")
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Listing{}).Where("id = ? AND state = ?", l.ID, domain.StateAvailable).Updates(updates)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, domain.ErrRaceLost
	}
	if err := s.recordEvent(tx, l.ID, domain.EventUpdated, &actorID, updates); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.load(ctx, kind, id)
}

// Deactivate soft-deletes a listing. Owners and admins may do this.
func (s *Service) Deactivate(ctx context.Context, kind domain.ListingKind, id, actorID uuid.UUID, admin bool) error {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return err
	}
	if !l.IsOwner(actorID) && !admin {
		return domain.ErrNotAuthorized
	}
	if !l.IsActive {
		return nil
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	res := tx.Model(&domain.Listing{}).Where("id = ? AND is_active = ?", l.ID, true).Update("is_active", false)
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil
	}
	if err := s.recordEvent(tx, l.ID, domain.EventDeactivated, &actorID, map[string]interface{}{"by_admin": admin && !l.IsOwner(actorID)}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	log.Info().Str("listing_id", l.ID.String()).Str("actor_id", actorID.String()).Msg("listing deactivated")
	s.Broadcaster.ItemUnavailable(ctx, l.ID.String(), string(l.Kind))
	return nil
}

// Events returns the audit trail to the owner, the claimant or an admin.
func (s *Service) Events(ctx context.Context, kind domain.ListingKind, id, actorID uuid.UUID, admin bool) ([]domain.ListingEvent, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if !admin && !l.IsOwner(actorID) && !l.IsClaimant(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	var events []domain.ListingEvent
	err = s.DB.WithContext(ctx).Where("listing_id = ?", id).Order("created_at ASC").Find(&events).Error
	return events, err
}

// Interests returns the interest messages on a listing to its owner or an admin.
func (s *Service) Interests(ctx context.Context, kind domain.ListingKind, id, actorID uuid.UUID, admin bool) ([]domain.ListingInterest, error) {
	l, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, l); err != nil {
		return nil, err
	}
	if !admin && !l.IsOwner(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	var out []domain.ListingInterest
	err = s.DB.WithContext(ctx).Where("listing_id = ?", id).Order("updated_at DESC").Find(&out).Error
	return out, err
}

func (s *Service) load(ctx context.Context, kind domain.ListingKind, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	q := s.DB.WithContext(ctx).Where("id = ?", id)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *Service) activeUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Select("id", "username", "is_active").First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Service) recordEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actor *uuid.UUID, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&domain.ListingEvent{
		ListingID:   listingID,
		EventType:   eventType,
		ActorUserID: actor,
		Payload:     datatypes.JSON(b),
		CreatedAt:   s.now(),
	}).Error
}
