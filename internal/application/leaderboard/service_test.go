package leaderboard

import (
	"context"
	"encoding/json"
	"testing"

	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/realtime"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupBoard(t *testing.T, withRedis bool) (*Service, *gorm.DB) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	s := &Service{DB: db}
	if withRedis {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			rdb.Close()
			mr.Close()
		})
		s.Rdb = rdb
	}
	return s, db
}

func seed(t *testing.T, db *gorm.DB, name string, points int, active bool) domain.User {
	u := domain.User{Username: name, Email: name + "@example.com", PasswordHash: "x", EcoPoints: points, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	if !active {
		require.NoError(t, db.Model(&u).Update("is_active", false).Error)
	}
	return u
}

func TestTop_DatabaseFallback(t *testing.T) {
	s, db := setupBoard(t, false)
	seed(t, db, "low", 10, true)
	seed(t, db, "high", 600, true)
	seed(t, db, "gone", 9000, false)
	seed(t, db, "mid", 220, true)

	top, err := s.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "high", top[0].Username)
	assert.Equal(t, ledger.RankGreenGuardian, top[0].Rank)
	assert.Equal(t, 1, top[0].Position)
	assert.Equal(t, "mid", top[1].Username)
	assert.Equal(t, "low", top[2].Username)
}

func TestTop_FromRedisMirror(t *testing.T) {
	s, db := setupBoard(t, true)
	ctx := context.Background()
	a := seed(t, db, "ana", 100, true)
	b := seed(t, db, "bo", 50, true)

	n, err := s.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.Model(&b).Update("eco_points", 300).Error)
	s.Sync(ctx, b.ID, 300)

	top, err := s.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b.ID, top[0].UserID)
	assert.Equal(t, a.ID, top[1].UserID)

	s.Remove(ctx, b.ID)
	top, err = s.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, a.ID, top[0].UserID)
}

func TestPosition(t *testing.T) {
	s, db := setupBoard(t, false)
	seed(t, db, "a", 500, true)
	b := seed(t, db, "b", 200, true)
	seed(t, db, "c", 200, true)
	seed(t, db, "d", 900, false)

	pos, err := s.Position(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func TestAnnounce_BroadcastsUpdatesAndAchievements(t *testing.T) {
	s, db := setupBoard(t, true)
	hub := realtime.NewHub(nil)
	watcher := realtime.NewClient(realtime.Identity{UserID: "w"}, 16)
	hub.Register(watcher)
	s.Broadcaster = realtime.NewBroadcaster(hub)
	u := seed(t, db, "ana", 0, true)

	s.Announce(context.Background(),
		&ledger.Award{UserID: u.ID, Username: "ana", Points: 60, Total: 60, Reason: "test",
			Unlocked: []domain.Achievement{{Name: "First Steps", Icon: "🌱"}}},
		&ledger.Award{UserID: u.ID, Duplicate: true},
		nil,
	)

	var got []string
	for len(watcher.Messages()) > 0 {
		var env realtime.Envelope
		require.NoError(t, json.Unmarshal(<-watcher.Messages(), &env))
		got = append(got, env.Event)
	}
	assert.Equal(t, []string{realtime.EventLeaderboardUpdate, realtime.EventAchievementUnlocked}, got)

	score, err := s.Rdb.ZScore(context.Background(), Key, u.ID.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, float64(60), score)
}
