package leaderboard

import (
	"context"
	"fmt"

	"ecotrack-backend/internal/application/ledger"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Key is the Redis sorted set mirroring eco points of active users.
const Key = "leaderboard:eco_points"

type Entry struct {
	Position  int       `json:"position"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	City      string    `json:"city"`
	EcoPoints int       `json:"eco_points"`
	Rank      string    `json:"rank"`
}

// Service serves rankings from the database, using the Redis mirror for the top
// of the board when it is available.
type Service struct {
	DB          *gorm.DB
	Rdb         *redis.Client
	Broadcaster *realtime.Broadcaster
}

// Top returns the highest scoring active users.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.Rdb != nil {
		entries, err := s.topFromCache(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("leaderboard cache read failed, falling back to database")
		}
	}
	var users []domain.User
	err := s.DB.WithContext(ctx).Where("is_active = ?", true).
		Order("eco_points DESC").Order("created_at ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(users))
	for i, u := range users {
		out = append(out, entryFor(i+1, u))
	}
	return out, nil
}

func (s *Service) topFromCache(ctx context.Context, limit int) ([]Entry, error) {
	ids, err := s.Rdb.ZRevRange(ctx, Key, 0, int64(limit-1)).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	var users []domain.User
	if err := s.DB.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID.String()] = u
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, entryFor(len(out)+1, u))
	}
	return out, nil
}

func entryFor(pos int, u domain.User) Entry {
	return Entry{
		Position:  pos,
		UserID:    u.ID,
		Username:  u.Username,
		City:      u.City,
		EcoPoints: u.EcoPoints,
		Rank:      ledger.RankFor(u.EcoPoints),
	}
}

// Position is 1 + the number of active users with strictly more points.
func (s *Service) Position(ctx context.Context, userID uuid.UUID) (int, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Select("id", "eco_points").First(&u, "id = ?", userID).Error; err != nil {
		return 0, domain.ErrNotFound
	}
	var ahead int64
	err := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("eco_points > ? AND is_active = ?", u.EcoPoints, true).Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// Sync mirrors one user's total into Redis.
func (s *Service) Sync(ctx context.Context, userID uuid.UUID, total int) {
	if s.Rdb == nil {
		return
	}
	if err := s.Rdb.ZAdd(ctx, Key, redis.Z{Score: float64(total), Member: userID.String()}).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("leaderboard sync failed")
	}
}

// Remove drops a user from the mirror.
func (s *Service) Remove(ctx context.Context, userID uuid.UUID) {
	if s.Rdb == nil {
		return
	}
	s.Rdb.ZRem(ctx, Key, userID.String())
}

// Rebuild replaces the mirror with the current active users.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	if s.Rdb == nil {
		return 0, nil
	}
	var users []domain.User
	if err := s.DB.WithContext(ctx).Select("id", "eco_points").Where("is_active = ?", true).Find(&users).Error; err != nil {
		return 0, err
	}
	pipe := s.Rdb.TxPipeline()
	pipe.Del(ctx, Key)
	if len(users) > 0 {
		members := make([]redis.Z, 0, len(users))
		for _, u := range users {
			members = append(members, redis.Z{Score: float64(u.EcoPoints), Member: u.ID.String()})
		}
		pipe.ZAdd(ctx, Key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rebuild leaderboard: %w", err)
	}
	return len(users), nil
}

// Announce publishes committed awards: the mirror is updated, then a
// leaderboardUpdate per award and an achievementUnlocked per new milestone are
// broadcast. Duplicate awards are skipped.
func (s *Service) Announce(ctx context.Context, awards ...*ledger.Award) {
	for _, a := range awards {
		if a == nil || a.Duplicate {
			continue
		}
		s.Sync(ctx, a.UserID, a.Total)
		s.Broadcaster.LeaderboardUpdate(ctx, realtime.PointsUpdate{
			UserID:   a.UserID.String(),
			Username: a.Username,
			Points:   a.Points,
			Total:    a.Total,
			Reason:   a.Reason,
		})
		for _, ach := range a.Unlocked {
			s.Broadcaster.AchievementUnlocked(ctx, realtime.AchievementNotice{
				UserID:      a.UserID.String(),
				Username:    a.Username,
				Name:        ach.Name,
				Description: ach.Description,
				Icon:        ach.Icon,
			})
		}
	}
}
