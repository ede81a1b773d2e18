package activity

import (
	"context"
	"strings"
	"time"

	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/pkg/validation"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service logs carbon and water activity and credits eco points for it.
type Service struct {
	DB          *gorm.DB
	Ledger      *ledger.Service
	Board       *leaderboard.Service
	Broadcaster *realtime.Broadcaster
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type FootprintInput struct {
	Category string     `json:"category"`
	Activity string     `json:"activity"`
	Amount   float64    `json:"amount"`
	Unit     string     `json:"unit"`
	Notes    string     `json:"notes"`
	Date     *time.Time `json:"date"`
}

type WaterInput struct {
	Category        string     `json:"category"`
	Amount          float64    `json:"amount"`
	Unit            string     `json:"unit"`
	DurationMinutes float64    `json:"duration"`
	Notes           string     `json:"notes"`
	Date            *time.Time `json:"date"`
}

type Filter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (f *Filter) normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// CategoryTotal is one row of a per-category summary.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Points   int     `json:"points"`
	Count    int64   `json:"count"`
}

type Summary struct {
	Total      float64         `json:"total"`
	Points     int             `json:"points"`
	Count      int64           `json:"count"`
	Average    float64         `json:"average"`
	Categories []CategoryTotal `json:"categories"`
}

func (s *Service) loggedAt(date *time.Time) (time.Time, error) {
	now := s.now()
	if date == nil {
		return now, nil
	}
	if date.After(now.Add(time.Minute)) {
		return time.Time{}, domain.Invalid("date", "cannot be in the future")
	}
	return date.UTC(), nil
}

// LogFootprint records an activity, computes its emission and credits points.
func (s *Service) LogFootprint(ctx context.Context, userID uuid.UUID, in FootprintInput) (*domain.FootprintLog, *ledger.Award, error) {
	in.Activity = strings.TrimSpace(in.Activity)
	switch {
	case !validation.OneOf(in.Category, domain.FootprintCategories):
		return nil, nil, domain.Invalid("category", "must be one of transport, energy, food, travel, shopping")
	case in.Activity == "":
		return nil, nil, domain.Invalid("activity", "is required")
	case in.Amount <= 0:
		return nil, nil, domain.Invalid("amount", "must be positive")
	case !validation.OneOf(in.Unit, domain.FootprintUnits):
		return nil, nil, domain.Invalid("unit", "is not supported")
	}
	at, err := s.loggedAt(in.Date)
	if err != nil {
		return nil, nil, err
	}

	emission := Emission(in.Category, in.Activity, in.Amount, in.Unit)
	entry := &domain.FootprintLog{
		UserID:       userID,
		Category:     in.Category,
		Activity:     in.Activity,
		Amount:       in.Amount,
		Unit:         in.Unit,
		EmissionKg:   emission,
		PointsEarned: FootprintPoints(emission, in.Category),
		Notes:        in.Notes,
		LoggedAt:     at,
		CreatedAt:    s.now(),
	}

	var award *ledger.Award
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if entry.PointsEarned == 0 {
			return nil
		}
		award, err = s.Ledger.Award(ctx, tx, userID, entry.PointsEarned, "Carbon footprint logged", "footprint:"+entry.ID.String())
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", userID.String()).Str("category", entry.Category).Float64("emission_kg", emission).Msg("footprint logged")
	s.Broadcaster.GlobalCarbonUpdate(ctx, realtime.ActivityUpdate{
		UserID:   userID.String(),
		Username: s.username(ctx, userID, award),
		Category: entry.Category,
		Amount:   emission,
		Unit:     "kg CO2",
		Points:   entry.PointsEarned,
	})
	s.Board.Announce(ctx, award)
	return entry, award, nil
}

// LogWater records water usage, rates its efficiency and credits points.
func (s *Service) LogWater(ctx context.Context, userID uuid.UUID, in WaterInput) (*domain.WaterLog, *ledger.Award, error) {
	if in.Unit == "" {
		in.Unit = "liters"
	}
	switch {
	case !validation.OneOf(in.Category, domain.WaterCategories):
		return nil, nil, domain.Invalid("category", "must be one of shower, dishes, laundry, garden, drinking, other")
	case in.Amount <= 0:
		return nil, nil, domain.Invalid("amount", "must be positive")
	case !validation.OneOf(in.Unit, domain.WaterUnits):
		return nil, nil, domain.Invalid("unit", "must be liters or gallons")
	case in.DurationMinutes < 0:
		return nil, nil, domain.Invalid("duration", "cannot be negative")
	}
	at, err := s.loggedAt(in.Date)
	if err != nil {
		return nil, nil, err
	}

	liters := ToLiters(in.Amount, in.Unit)
	entry := &domain.WaterLog{
		UserID:          userID,
		Category:        in.Category,
		Amount:          in.Amount,
		Unit:            in.Unit,
		Liters:          liters,
		DurationMinutes: in.DurationMinutes,
		Efficiency:      Efficiency(in.Category, liters),
		PointsEarned:    WaterPoints(in.Category, liters, in.DurationMinutes),
		Notes:           in.Notes,
		LoggedAt:        at,
		CreatedAt:       s.now(),
	}

	var award *ledger.Award
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if entry.PointsEarned == 0 {
			return nil
		}
		award, err = s.Ledger.Award(ctx, tx, userID, entry.PointsEarned, "Water usage logged", "water:"+entry.ID.String())
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", userID.String()).Str("category", entry.Category).Float64("liters", liters).Str("efficiency", entry.Efficiency).Msg("water usage logged")
	s.Broadcaster.GlobalWaterUpdate(ctx, realtime.ActivityUpdate{
		UserID:   userID.String(),
		Username: s.username(ctx, userID, award),
		Category: entry.Category,
		Amount:   liters,
		Unit:     "liters",
		Points:   entry.PointsEarned,
	})
	s.Board.Announce(ctx, award)
	return entry, award, nil
}

func (s *Service) username(ctx context.Context, userID uuid.UUID, a *ledger.Award) string {
	if a != nil {
		return a.Username
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Select("username").First(&u, "id = ?", userID).Error; err != nil {
		return ""
	}
	return u.Username
}

func scoped(q *gorm.DB, userID uuid.UUID, f Filter) *gorm.DB {
	q = q.Where("user_id = ?", userID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.From != nil {
		q = q.Where("logged_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("logged_at <= ?", f.To.UTC())
	}
	return q
}

// Footprints lists a user's footprint entries, newest first.
func (s *Service) Footprints(ctx context.Context, userID uuid.UUID, f Filter) ([]domain.FootprintLog, int64, error) {
	f.normalize()
	q := scoped(s.DB.WithContext(ctx).Model(&domain.FootprintLog{}), userID, f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []domain.FootprintLog
	err := q.Order("logged_at DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&rows).Error
	return rows, total, err
}

// WaterLogs lists a user's water entries, newest first.
func (s *Service) WaterLogs(ctx context.Context, userID uuid.UUID, f Filter) ([]domain.WaterLog, int64, error) {
	f.normalize()
	q := scoped(s.DB.WithContext(ctx).Model(&domain.WaterLog{}), userID, f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []domain.WaterLog
	err := q.Order("logged_at DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&rows).Error
	return rows, total, err
}

// FootprintSummary totals emissions per category.
func (s *Service) FootprintSummary(ctx context.Context, userID uuid.UUID, f Filter) (*Summary, error) {
	return s.summarize(ctx, &domain.FootprintLog{}, "emission_kg", userID, f)
}

// WaterSummary totals liters per category.
func (s *Service) WaterSummary(ctx context.Context, userID uuid.UUID, f Filter) (*Summary, error) {
	return s.summarize(ctx, &domain.WaterLog{}, "liters", userID, f)
}

func (s *Service) summarize(ctx context.Context, model interface{}, column string, userID uuid.UUID, f Filter) (*Summary, error) {
	var rows []CategoryTotal
	err := scoped(s.DB.WithContext(ctx).Model(model), userID, f).
		Select("category, COALESCE(SUM(" + column + "), 0) AS amount, COALESCE(SUM(points_earned), 0) AS points, COUNT(*) AS count").
		Group("category").Order("category").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := &Summary{Categories: rows}
	for i := range rows {
		rows[i].Amount = round2(rows[i].Amount)
		out.Total += rows[i].Amount
		out.Points += rows[i].Points
		out.Count += rows[i].Count
	}
	out.Total = round2(out.Total)
	if out.Count > 0 {
		out.Average = round2(out.Total / float64(out.Count))
	}
	if out.Categories == nil {
		out.Categories = []CategoryTotal{}
	}
	return out, nil
}

// DeleteFootprint removes one of the user's own entries. Awarded points stay.
func (s *Service) DeleteFootprint(ctx context.Context, userID, id uuid.UUID) error {
	return s.deleteOwn(ctx, &domain.FootprintLog{}, userID, id)
}

// DeleteWater removes one of the user's own entries. Awarded points stay.
func (s *Service) DeleteWater(ctx context.Context, userID, id uuid.UUID) error {
	return s.deleteOwn(ctx, &domain.WaterLog{}, userID, id)
}

func (s *Service) deleteOwn(ctx context.Context, model interface{}, userID, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
