package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (r *recorder) Emit(_ context.Context, m realtime.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Event)
	}
	return out
}

func setupActivity(t *testing.T) (*Service, *gorm.DB, *recorder, domain.User) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	now := func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }
	rec := &recorder{}
	b := realtime.NewBroadcaster(rec)
	s := &Service{
		DB:          db,
		Ledger:      &ledger.Service{DB: db, Now: now},
		Board:       &leaderboard.Service{DB: db, Broadcaster: b},
		Broadcaster: b,
		Now:         now,
	}
	u := domain.User{Username: "wanda", Email: "wanda@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return s, db, rec, u
}

func TestLogFootprint_AwardsAndBroadcasts(t *testing.T) {
	s, db, rec, u := setupActivity(t)
	ctx := context.Background()

	entry, award, err := s.LogFootprint(ctx, u.ID, FootprintInput{Category: "transport", Activity: "car", Amount: 10, Unit: "km"})
	require.NoError(t, err)
	assert.InDelta(t, 1.2, entry.EmissionKg, 0.001)
	assert.Equal(t, 12, entry.PointsEarned)
	require.NotNil(t, award)
	assert.Equal(t, 12, award.Total)
	assert.Equal(t, "Low", entry.EmissionLevel())

	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, "id = ?", u.ID).Error)
	assert.Equal(t, 12, reloaded.EcoPoints)
	assert.Equal(t, []string{realtime.EventGlobalCarbonUpdate, realtime.EventLeaderboardUpdate}, rec.events())
}

func TestLogFootprint_Validation(t *testing.T) {
	s, _, _, u := setupActivity(t)
	ctx := context.Background()
	future := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []FootprintInput{
		{Category: "sports", Activity: "x", Amount: 1, Unit: "km"},
		{Category: "food", Activity: " ", Amount: 1, Unit: "kg"},
		{Category: "food", Activity: "meat", Amount: 0, Unit: "kg"},
		{Category: "food", Activity: "meat", Amount: 1, Unit: "lbs"},
		{Category: "food", Activity: "meat", Amount: 1, Unit: "kg", Date: &future},
	} {
		_, _, err := s.LogFootprint(ctx, u.ID, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestLogWater_NoPointsStillBroadcasts(t *testing.T) {
	s, _, rec, u := setupActivity(t)

	entry, award, err := s.LogWater(context.Background(), u.ID, WaterInput{Category: "drinking", Amount: 10})
	require.NoError(t, err)
	assert.Nil(t, award)
	assert.Equal(t, 0, entry.PointsEarned)
	assert.Equal(t, "poor", entry.Efficiency)
	assert.Equal(t, "liters", entry.Unit)
	assert.Equal(t, []string{realtime.EventGlobalWaterUpdate}, rec.events())
	assert.Equal(t, "wanda", rec.msgs[0].Data.(realtime.ActivityUpdate).Username)
}

func TestLogWater_Gallons(t *testing.T) {
	s, _, _, u := setupActivity(t)

	entry, award, err := s.LogWater(context.Background(), u.ID, WaterInput{Category: "laundry", Amount: 10, Unit: "gallons"})
	require.NoError(t, err)
	assert.InDelta(t, 37.85, entry.Liters, 0.001)
	assert.Equal(t, "excellent", entry.Efficiency)
	assert.Equal(t, 10, entry.PointsEarned)
	require.NotNil(t, award)
}

func TestSummariesAndListing(t *testing.T) {
	s, _, _, u := setupActivity(t)
	ctx := context.Background()

	_, _, err := s.LogFootprint(ctx, u.ID, FootprintInput{Category: "transport", Activity: "bus", Amount: 20, Unit: "km"})
	require.NoError(t, err)
	_, _, err = s.LogFootprint(ctx, u.ID, FootprintInput{Category: "food", Activity: "meat", Amount: 1, Unit: "kg"})
	require.NoError(t, err)
	_, _, err = s.LogFootprint(ctx, u.ID, FootprintInput{Category: "food", Activity: "vegetables", Amount: 1, Unit: "kg"})
	require.NoError(t, err)

	sum, err := s.FootprintSummary(ctx, u.ID, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.Count)
	assert.InDelta(t, 8.3, sum.Total, 0.001)
	require.Len(t, sum.Categories, 2)
	assert.Equal(t, "food", sum.Categories[0].Category)
	assert.InDelta(t, 7.3, sum.Categories[0].Amount, 0.001)
	assert.EqualValues(t, 2, sum.Categories[0].Count)

	rows, total, err := s.Footprints(ctx, u.ID, Filter{Category: "food"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	require.NoError(t, s.DeleteFootprint(ctx, u.ID, rows[0].ID))
	assert.ErrorIs(t, s.DeleteFootprint(ctx, u.ID, rows[0].ID), domain.ErrNotFound)

	water, err := s.WaterSummary(ctx, u.ID, Filter{})
	require.NoError(t, err)
	assert.Zero(t, water.Count)
	assert.Empty(t, water.Categories)
}
