package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered participant. Users are deactivated, never deleted.
type User struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Username     string        `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email        string        `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string        `gorm:"column:first_name" json:"first_name"`
	LastName     string        `gorm:"column:last_name" json:"last_name"`
	City         string        `gorm:"column:city" json:"city"`
	Country      string        `gorm:"column:country" json:"country"`
	Role         string        `gorm:"column:role;not null;default:user" json:"role"`
	EcoPoints    int           `gorm:"column:eco_points;not null;default:0;index" json:"eco_points"`
	IsActive     bool          `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Achievements []Achievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Achievement is a one-time milestone badge, unique by name per user.
type Achievement struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_achievement_user_name" json:"user_id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_achievement_user_name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	Icon        string    `gorm:"column:icon" json:"icon"`
	EarnedAt    time.Time `gorm:"column:earned_at;not null" json:"earned_at"`
}

func (Achievement) TableName() string {
	return "Achievements"
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// PointTransaction is one append-only ledger entry. ActionKey is unique so a
// replayed action never credits twice.
type PointTransaction struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Points       int       `gorm:"column:points;not null" json:"points"`
	Reason       string    `gorm:"column:reason;not null" json:"reason"`
	ActionKey    string    `gorm:"column:action_key;not null;uniqueIndex" json:"action_key"`
	BalanceAfter int       `gorm:"column:balance_after;not null" json:"balance_after"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (PointTransaction) TableName() string {
	return "PointTransactions"
}

func (p *PointTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
