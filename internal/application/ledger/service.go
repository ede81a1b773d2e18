package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecotrack-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Award is the outcome of crediting points to a user.
type Award struct {
	UserID    uuid.UUID            `json:"userId"`
	Username  string               `json:"username"`
	Points    int                  `json:"points"`
	Total     int                  `json:"total"`
	Reason    string               `json:"reason"`
	Duplicate bool                 `json:"duplicate"`
	Unlocked  []domain.Achievement `json:"unlocked"`
}

// Service is the only writer of User.EcoPoints.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Award credits points to userID inside tx and runs the achievement check on the
// new total. actionKey identifies the logical action; a replayed key is a no-op
// reported with Duplicate set. A nil tx runs the award in its own transaction.
func (s *Service) Award(ctx context.Context, tx *gorm.DB, userID uuid.UUID, points int, reason, actionKey string) (*Award, error) {
	if points < 0 {
		return nil, domain.ErrNegativePoints
	}
	if actionKey == "" {
		return nil, domain.Invalid("action_key", "is required")
	}
	if tx == nil {
		var out *Award
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			out, err = s.Award(ctx, tx, userID, points, reason, actionKey)
			return err
		})
		return out, err
	}
	tx = tx.WithContext(ctx)

	var prior []domain.PointTransaction
	if err := tx.Where("action_key = ?", actionKey).Limit(1).Find(&prior).Error; err != nil {
		return nil, err
	}
	if len(prior) > 0 {
		var user domain.User
		if err := tx.Select("id", "username", "eco_points").First(&user, "id = ?", userID).Error; err != nil {
			return nil, notFound(err)
		}
		return &Award{UserID: userID, Username: user.Username, Points: 0, Total: user.EcoPoints, Reason: reason, Duplicate: true}, nil
	}

	res := tx.Model(&domain.User{}).Where("id = ?", userID).
		UpdateColumn("eco_points", gorm.Expr("eco_points + ?", points))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	var user domain.User
	if err := tx.Select("id", "username", "eco_points").First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}

	entry := domain.PointTransaction{
		UserID:       userID,
		Points:       points,
		Reason:       reason,
		ActionKey:    actionKey,
		BalanceAfter: user.EcoPoints,
		CreatedAt:    s.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("record point transaction: %w", err)
	}

	unlocked, err := s.Unlock(ctx, tx, userID, user.EcoPoints)
	if err != nil {
		return nil, err
	}
	return &Award{
		UserID:   userID,
		Username: user.Username,
		Points:   points,
		Total:    user.EcoPoints,
		Reason:   reason,
		Unlocked: unlocked,
	}, nil
}

// Unlock grants every milestone reached by total that the user does not hold yet.
// Calling it again with the same total grants nothing.
func (s *Service) Unlock(ctx context.Context, tx *gorm.DB, userID uuid.UUID, total int) ([]domain.Achievement, error) {
	if tx == nil {
		tx = s.DB
	}
	tx = tx.WithContext(ctx)

	var names []string
	if err := tx.Model(&domain.Achievement{}).Where("user_id = ?", userID).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(names))
	for _, n := range names {
		owned[n] = true
	}

	var granted []domain.Achievement
	now := s.now()
	for _, m := range Pending(total, owned) {
		a := domain.Achievement{
			UserID:      userID,
			Name:        m.Name,
			Description: m.Description,
			Icon:        m.Icon,
			EarnedAt:    now,
		}
		if err := tx.Create(&a).Error; err != nil {
			return nil, fmt.Errorf("grant achievement %q: %w", m.Name, err)
		}
		granted = append(granted, a)
	}
	return granted, nil
}

// Achievements lists a user's unlocked milestones in the order earned.
func (s *Service) Achievements(ctx context.Context, userID uuid.UUID) ([]domain.Achievement, error) {
	var out []domain.Achievement
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("earned_at ASC").Find(&out).Error
	return out, err
}

// History lists a user's point transactions, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []domain.PointTransaction
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
