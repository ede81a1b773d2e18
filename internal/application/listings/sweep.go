package listings

import (
	"context"

	"ecotrack-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

const sweepBatch = 500

// SweepExpired expires every open listing past its expiry or retention window
// and returns how many changed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.Policy.retention())
	due := s.DB.Where("created_at < ?", cutoff)
	for _, kind := range []domain.ListingKind{domain.KindRecyclable, domain.KindDonation} {
		if cats := domain.PerishableCategories(kind); len(cats) > 0 {
			due = due.Or("kind = ? AND category IN ? AND expires_at IS NOT NULL AND expires_at < ?", kind, cats, now)
		}
	}
	var rows []domain.Listing
	err := s.DB.WithContext(ctx).
		Where("state IN ?", []domain.ListingState{domain.StateAvailable, domain.StateReserved}).
		Where(due).
		Order("created_at ASC").
		Limit(sweepBatch).Find(&rows).Error
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, rows, domain.EventExpired)
}

// ReleaseStale returns lapsed reservations to available and returns how many
// changed.
func (s *Service) ReleaseStale(ctx context.Context) (int, error) {
	var rows []domain.Listing
	err := s.DB.WithContext(ctx).
		Where("state = ? AND reserved_until IS NOT NULL AND reserved_until < ?", domain.StateReserved, s.now()).
		Order("reserved_until ASC").
		Limit(sweepBatch).Find(&rows).Error
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, rows, domain.EventReleased)
}

func (s *Service) sweep(ctx context.Context, rows []domain.Listing, want string) (int, error) {
	n := 0
	for i := range rows {
		changed, err := s.refresh(ctx, &rows[i])
		if err != nil {
			log.Warn().Err(err).Str("listing_id", rows[i].ID.String()).Msg("sweep: refresh failed")
			continue
		}
		if changed == want {
			n++
		}
	}
	return n, nil
}
