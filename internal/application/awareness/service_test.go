package awareness

import (
	"context"
	"sync"
	"testing"
	"time"

	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
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

func setupAwareness(t *testing.T) (*Service, *gorm.DB, *recorder) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rec := &recorder{}
	s := &Service{DB: db, Broadcaster: realtime.NewBroadcaster(rec), Now: func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}}
	return s, db, rec
}

func TestCreate_FeaturedAnnouncedTwice(t *testing.T) {
	s, _, rec := setupAwareness(t)
	ctx := context.Background()
	author := uuid.New()

	_, err := s.Create(ctx, author, PostInput{Title: "Compost at home", Content: "Start small.", Category: "recycling"})
	require.NoError(t, err)
	post, err := s.Create(ctx, author, PostInput{Title: "Heatwave", Content: "Save water.", Category: "water", Featured: true})
	require.NoError(t, err)
	assert.True(t, post.IsPublished)

	assert.Equal(t, []string{
		realtime.EventNewAwarenessPost,
		realtime.EventNewAwarenessPost,
		realtime.EventFeaturedPost,
	}, rec.events())

	posts, total, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Heatwave", posts[0].Title)

	_, err = s.Create(ctx, author, PostInput{Title: "x", Content: "y", Category: "gossip"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate_AuthorOrAdmin(t *testing.T) {
	s, _, rec := setupAwareness(t)
	ctx := context.Background()
	author := uuid.New()
	post, err := s.Create(ctx, author, PostInput{Title: "Bike to work", Content: "Why it matters."})
	require.NoError(t, err)
	assert.Equal(t, "other", post.Category)

	yes := true
	_, err = s.Update(ctx, post.ID, uuid.New(), false, PostUpdate{Featured: &yes})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	updated, err := s.Update(ctx, post.ID, uuid.New(), true, PostUpdate{Featured: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Featured)
	assert.Equal(t, realtime.EventFeaturedPost, rec.events()[len(rec.events())-1])

	require.NoError(t, s.Unpublish(ctx, post.ID, author, false))
	_, err = s.Get(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComments(t *testing.T) {
	s, db, rec := setupAwareness(t)
	ctx := context.Background()
	u := domain.User{Username: "reader", Email: "reader@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	post, err := s.Create(ctx, uuid.New(), PostInput{Title: "Plastic-free July", Content: "Try it."})
	require.NoError(t, err)

	_, err = s.AddComment(ctx, post.ID, u.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.AddComment(ctx, post.ID, u.ID, "Doing it!")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, post.ID, u.ID, "Week two.")
	require.NoError(t, err)

	comments, err := s.Comments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Doing it!", comments[0].Content)
	assert.Equal(t, "reader", comments[0].Username)

	last := rec.msgs[len(rec.msgs)-1]
	assert.Equal(t, realtime.EventNewComment, last.Event)
	assert.Equal(t, "Plastic-free July", last.Data.(realtime.CommentNotice).PostTitle)

	_, err = s.AddComment(ctx, uuid.New(), u.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)
}
