package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var AwarenessCategories = []string{"climate", "recycling", "energy", "water", "lifestyle", "news", "other"}

// AwarenessPost is educational content published by an admin.
type AwarenessPost struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AuthorID    uuid.UUID `gorm:"column:author_id;type:uuid;not null" json:"author_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Content     string    `gorm:"column:content;not null" json:"content"`
	Category    string    `gorm:"column:category;not null;default:other" json:"category"`
	Featured    bool      `gorm:"column:featured;not null;default:false" json:"featured"`
	IsPublished bool      `gorm:"column:is_published;not null;default:true" json:"is_published"`
	Views       int       `gorm:"column:views;not null;default:0" json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (AwarenessPost) TableName() string {
	return "AwarenessPosts"
}

func (p *AwarenessPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Comment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;not null;index" json:"post_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Username  string    `gorm:"column:username" json:"username"`
	Content   string    `gorm:"column:content;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "Comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Models lists every persisted model for migrations.
func Models() []interface{} {
	return []interface{}{
		&User{}, &Achievement{}, &PointTransaction{},
		&Listing{}, &ListingInterest{}, &ListingEvent{},
		&FootprintLog{}, &WaterLog{},
		&AwarenessPost{}, &Comment{},
	}
}
