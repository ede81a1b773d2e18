package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var FootprintCategories = []string{"transport", "energy", "food", "travel", "shopping"}

var FootprintUnits = []string{"km", "miles", "kwh", "therms", "kg", "liters", "hours"}

// FootprintLog is a single carbon-emitting activity logged by a user.
type FootprintLog struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Category     string    `gorm:"column:category;not null" json:"category"`
	Activity     string    `gorm:"column:activity;not null" json:"activity"`
	Amount       float64   `gorm:"column:amount;not null" json:"amount"`
	Unit         string    `gorm:"column:unit;not null" json:"unit"`
	EmissionKg   float64   `gorm:"column:emission_kg;not null" json:"emission_kg"`
	PointsEarned int       `gorm:"column:points_earned;not null;default:0" json:"points_earned"`
	Notes        string    `gorm:"column:notes" json:"notes"`
	LoggedAt     time.Time `gorm:"column:logged_at;not null;index" json:"logged_at"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (FootprintLog) TableName() string {
	return "FootprintLogs"
}

func (f *FootprintLog) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// EmissionLevel buckets the emission for display.
func (f *FootprintLog) EmissionLevel() string {
	switch {
	case f.EmissionKg <= 1:
		return "Low"
	case f.EmissionKg <= 5:
		return "Medium"
	case f.EmissionKg <= 10:
		return "High"
	}
	return "Very High"
}

var WaterCategories = []string{"shower", "dishes", "laundry", "garden", "drinking", "other"}

var WaterUnits = []string{"liters", "gallons"}

// WaterLog is a single water usage entry. Liters is the normalized amount.
type WaterLog struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Category        string    `gorm:"column:category;not null" json:"category"`
	Amount          float64   `gorm:"column:amount;not null" json:"amount"`
	Unit            string    `gorm:"column:unit;not null" json:"unit"`
	Liters          float64   `gorm:"column:liters;not null" json:"liters"`
	DurationMinutes float64   `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	Efficiency      string    `gorm:"column:efficiency;not null;default:average" json:"efficiency"`
	PointsEarned    int       `gorm:"column:points_earned;not null;default:0" json:"points_earned"`
	Notes           string    `gorm:"column:notes" json:"notes"`
	LoggedAt        time.Time `gorm:"column:logged_at;not null;index" json:"logged_at"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (WaterLog) TableName() string {
	return "WaterLogs"
}

func (w *WaterLog) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
