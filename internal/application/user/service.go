package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service holds the collaborators for profile, stats and account status.
type Service struct {
	DB       *gorm.DB
	Ledger   *ledger.Service
	Board    *leaderboard.Service
	Tokens   *auth.TokenStore
	TokenTTL time.Duration
}

// Profile is a user with derived standing.
type Profile struct {
	User         *domain.User         `json:"user"`
	Rank         string               `json:"rank"`
	NextRank     string               `json:"next_rank,omitempty"`
	PointsToNext int                  `json:"points_to_next"`
	Position     int                  `json:"position"`
	Achievements []domain.Achievement `json:"achievements"`
}

// ListingCounts counts a user's listings of one kind.
type ListingCounts struct {
	Posted    int64 `json:"posted"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Claimed   int64 `json:"claimed"`
}

type Stats struct {
	EcoPoints      int                                  `json:"eco_points"`
	Rank           string                               `json:"rank"`
	Position       int                                  `json:"position"`
	Achievements   int64                                `json:"achievements"`
	CarbonKg       float64                              `json:"carbon_kg"`
	FootprintLogs  int64                                `json:"footprint_logs"`
	WaterLiters    float64                              `json:"water_liters"`
	WaterLogs      int64                                `json:"water_logs"`
	Listings       map[domain.ListingKind]ListingCounts `json:"listings"`
	PointsLast30d  int                                  `json:"points_last_30d"`
	MemberSinceDay string                               `json:"member_since"`
}

// ProfileUpdate lists the only fields a user may change on their own profile.
type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	City      *string `json:"city"`
	Country   *string `json:"country"`
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Profile returns the user with rank, leaderboard position and achievements.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.Ledger.Achievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos, err := s.Board.Position(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, need := ledger.NextRank(u.EcoPoints)
	return &Profile{
		User:         u,
		Rank:         ledger.RankFor(u.EcoPoints),
		NextRank:     next,
		PointsToNext: need,
		Position:     pos,
		Achievements: achievements,
	}, nil
}

// UpdateProfile applies allow-listed profile edits.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*domain.User, error) {
	upd := map[string]interface{}{}
	for col, v := range map[string]*string{"first_name": in.FirstName, "last_name": in.LastName} {
		if v == nil {
			continue
		}
		name := strings.TrimSpace(*v)
		if name != "" && !validation.IsValidName(name) {
			return nil, domain.Invalid(col, "contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
		}
		upd[col] = titleCaseAndNormalize(name)
	}
	if in.City != nil {
		upd["city"] = titleCaseAndNormalize(*in.City)
	}
	if in.Country != nil {
		upd["country"] = strings.TrimSpace(*in.Country)
	}
	if len(upd) == 0 {
		return nil, domain.Invalid("", "No valid update fields provided")
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.load(ctx, userID)
}

// Stats aggregates a user's activity across every feature.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*Stats, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	out := &Stats{
		EcoPoints:      u.EcoPoints,
		Rank:           ledger.RankFor(u.EcoPoints),
		Listings:       map[domain.ListingKind]ListingCounts{},
		MemberSinceDay: u.CreatedAt.Format("2006-01-02"),
	}
	if out.Position, err = s.Board.Position(ctx, userID); err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Achievement{}).Where("user_id = ?", userID).Count(&out.Achievements).Error; err != nil {
		return nil, err
	}

	var carbon struct {
		Total float64
		Count int64
	}
	if err := db.Model(&domain.FootprintLog{}).Select("COALESCE(SUM(emission_kg), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).Scan(&carbon).Error; err != nil {
		return nil, err
	}
	out.CarbonKg, out.FootprintLogs = carbon.Total, carbon.Count

	var water struct {
		Total float64
		Count int64
	}
	if err := db.Model(&domain.WaterLog{}).Select("COALESCE(SUM(liters), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).Scan(&water).Error; err != nil {
		return nil, err
	}
	out.WaterLiters, out.WaterLogs = water.Total, water.Count

	for _, kind := range []domain.ListingKind{domain.KindRecyclable, domain.KindDonation} {
		var c ListingCounts
		base := func() *gorm.DB { return db.Model(&domain.Listing{}).Where("kind = ?", kind) }
		if err := base().Where("owner_id = ?", userID).Count(&c.Posted).Error; err != nil {
			return nil, err
		}
		if err := base().Where("owner_id = ? AND is_active = ? AND state = ?", userID, true, domain.StateAvailable).Count(&c.Active).Error; err != nil {
			return nil, err
		}
		if err := base().Where("owner_id = ? AND state = ?", userID, domain.StateCompleted).Count(&c.Completed).Error; err != nil {
			return nil, err
		}
		if err := base().Where("claimant_id = ?", userID).Count(&c.Claimed).Error; err != nil {
			return nil, err
		}
		out.Listings[kind] = c
	}

	var recent struct{ Total int }
	if err := db.Model(&domain.PointTransaction{}).Select("COALESCE(SUM(points), 0) AS total").
		Where("user_id = ? AND created_at >= ?", userID, now.UTC().Add(-30*24*time.Hour)).Scan(&recent).Error; err != nil {
		return nil, err
	}
	out.PointsLast30d = recent.Total
	return out, nil
}

// Points returns the user's point history, newest first.
func (s *Service) Points(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PointTransaction, error) {
	return s.Ledger.History(ctx, userID, limit)
}

// SetActive activates or deactivates an account. Deactivation revokes every
// session and hides the user from the leaderboard.
func (s *Service) SetActive(ctx context.Context, actorID, targetID uuid.UUID, active bool) (*domain.User, error) {
	if actorID == targetID && !active {
		return nil, domain.ErrSelfAction
	}
	u, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	u.IsActive = active
	if active {
		s.Board.Sync(ctx, u.ID, u.EcoPoints)
	} else {
		if err := s.Tokens.RevokeAll(ctx, u.ID.String(), s.TokenTTL); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("revoke sessions failed")
		}
		s.Board.Remove(ctx, u.ID)
	}
	log.Info().Str("actor_id", actorID.String()).Str("user_id", u.ID.String()).Bool("active", active).Msg("user status changed")
	return u, nil
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
