package ledger

import (
	"context"
	"testing"
	"time"

	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (*Service, *gorm.DB) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Service{DB: db, Now: func() time.Time { return now }}, db
}

func seedUser(t *testing.T, db *gorm.DB, name string, points int) domain.User {
	u := domain.User{Username: name, Email: name + "@example.com", PasswordHash: "x", EcoPoints: points, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestAward_CreditsAndRecordsTransaction(t *testing.T) {
	s, db := setupLedger(t)
	ctx := context.Background()
	u := seedUser(t, db, "alice", 0)

	award, err := s.Award(ctx, nil, u.ID, 10, "Recyclable exchange completed", "test:1")
	require.NoError(t, err)
	assert.Equal(t, 10, award.Total)
	assert.Equal(t, 10, award.Points)
	assert.Equal(t, "alice", award.Username)
	assert.False(t, award.Duplicate)
	assert.Empty(t, award.Unlocked)

	history, err := s.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 10, history[0].BalanceAfter)
	assert.Equal(t, "Recyclable exchange completed", history[0].Reason)
}

func TestAward_NegativeRejected(t *testing.T) {
	s, db := setupLedger(t)
	u := seedUser(t, db, "bob", 20)

	_, err := s.Award(context.Background(), nil, u.ID, -5, "oops", "test:neg")
	assert.ErrorIs(t, err, domain.ErrNegativePoints)

	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, "id = ?", u.ID).Error)
	assert.Equal(t, 20, reloaded.EcoPoints)
}

func TestAward_ReplayedActionKeyIsNoop(t *testing.T) {
	s, db := setupLedger(t)
	ctx := context.Background()
	u := seedUser(t, db, "carol", 0)

	_, err := s.Award(ctx, nil, u.ID, 15, "Donation completed", "listing:x:complete:owner")
	require.NoError(t, err)
	again, err := s.Award(ctx, nil, u.ID, 15, "Donation completed", "listing:x:complete:owner")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 15, again.Total)

	var count int64
	require.NoError(t, db.Model(&domain.PointTransaction{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAward_UnknownUser(t *testing.T) {
	s, _ := setupLedger(t)
	_, err := s.Award(context.Background(), nil, uuid.New(), 5, "x", "test:ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAward_JumpUnlocksEveryCrossedMilestone(t *testing.T) {
	s, db := setupLedger(t)
	ctx := context.Background()
	u := seedUser(t, db, "dave", 0)

	award, err := s.Award(ctx, nil, u.ID, 600, "bulk", "test:jump")
	require.NoError(t, err)
	require.Len(t, award.Unlocked, 3)
	assert.Equal(t, "First Steps", award.Unlocked[0].Name)
	assert.Equal(t, "Eco Explorer", award.Unlocked[1].Name)
	assert.Equal(t, "Green Guardian", award.Unlocked[2].Name)
}

func TestUnlock_Idempotent(t *testing.T) {
	s, db := setupLedger(t)
	ctx := context.Background()
	u := seedUser(t, db, "erin", 250)

	first, err := s.Unlock(ctx, nil, u.ID, 250)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.Unlock(ctx, nil, u.ID, 250)
	require.NoError(t, err)
	assert.Empty(t, second)

	achievements, err := s.Achievements(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, achievements, 2)
}

func TestAward_RollsBackWithCallerTransaction(t *testing.T) {
	s, db := setupLedger(t)
	ctx := context.Background()
	u := seedUser(t, db, "frank", 40)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.Award(ctx, tx, u.ID, 20, "x", "test:rollback"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, "id = ?", u.ID).Error)
	assert.Equal(t, 40, reloaded.EcoPoints)
	achievements, err := s.Achievements(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, achievements)
}
