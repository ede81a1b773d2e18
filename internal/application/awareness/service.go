package awareness

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/pkg/validation"
	"ecotrack-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxCommentLength = 1000

// Service publishes awareness posts and their comments.
type Service struct {
	DB          *gorm.DB
	Broadcaster *realtime.Broadcaster
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type PostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Featured bool   `json:"featured"`
}

type PostUpdate struct {
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	Category    *string `json:"category"`
	Featured    *bool   `json:"featured"`
	IsPublished *bool   `json:"is_published"`
}

type Filter struct {
	Category string
	Search   string
	Featured bool
	Page     int
	Limit    int
}

func summaryOf(p *domain.AwarenessPost) realtime.PostSummary {
	return realtime.PostSummary{ID: p.ID.String(), Title: p.Title, Category: p.Category, Featured: p.Featured}
}

// Create publishes a post. Featured posts are announced twice: once as new and
// once as featured.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in PostInput) (*domain.AwarenessPost, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Category == "" {
		in.Category = "other"
	}
	switch {
	case in.Title == "" || len(in.Title) > 200:
		return nil, domain.Invalid("title", "must be 1-200 characters")
	case in.Content == "":
		return nil, domain.Invalid("content", "is required")
	case !validation.OneOf(in.Category, domain.AwarenessCategories):
		return nil, domain.Invalid("category", "is not a valid category")
	}

	now := s.now()
	post := &domain.AwarenessPost{
		AuthorID:    authorID,
		Title:       in.Title,
		Content:     in.Content,
		Category:    in.Category,
		Featured:    in.Featured,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}

	log.Info().Str("post_id", post.ID.String()).Bool("featured", post.Featured).Msg("awareness post published")
	s.Broadcaster.NewAwarenessPost(ctx, summaryOf(post))
	if post.Featured {
		s.Broadcaster.FeaturedPost(ctx, summaryOf(post))
	}
	return post, nil
}

// List returns published posts, featured first, then newest.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.AwarenessPost, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	q := s.DB.WithContext(ctx).Model(&domain.AwarenessPost{}).Where("is_published = ?", true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Featured {
		q = q.Where("featured = ?", true)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []domain.AwarenessPost
	err := q.Order("featured DESC").Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&posts).Error
	return posts, total, err
}

// Get returns a published post and counts the view.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.AwarenessPost, error) {
	post, err := s.published(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.AwarenessPost{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err == nil {
		post.Views++
	}
	return post, nil
}

// Update edits a post. Only the author or an admin may do this. Turning a
// post featured announces it.
func (s *Service) Update(ctx context.Context, id, actorID uuid.UUID, admin bool, in PostUpdate) (*domain.AwarenessPost, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID && !admin {
		return nil, domain.ErrNotAuthorized
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len(t) > 200 {
			return nil, domain.Invalid("title", "must be 1-200 characters")
		}
		updates["title"] = t
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, domain.Invalid("content", "is required")
		}
		updates["content"] = *in.Content
	}
	if in.Category != nil {
		if !validation.OneOf(*in.Category, domain.AwarenessCategories) {
			return nil, domain.Invalid("category", "is not a valid category")
		}
		updates["category"] = *in.Category
	}
	if in.Featured != nil {
		updates["featured"] = *in.Featured
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}
	if len(updates) == 0 {
		return nil, domain.Invalid("", "No valid changes provided")
	}
	if err := s.DB.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}
	wasFeatured := post.Featured
	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated.Featured && !wasFeatured && updated.IsPublished {
		s.Broadcaster.FeaturedPost(ctx, summaryOf(updated))
	}
	return updated, nil
}

// Unpublish hides a post. Comments are kept.
func (s *Service) Unpublish(ctx context.Context, id, actorID uuid.UUID, admin bool) error {
	f := false
	_, err := s.Update(ctx, id, actorID, admin, PostUpdate{IsPublished: &f})
	return err
}

// AddComment appends a comment to a published post and announces it.
func (s *Service) AddComment(ctx context.Context, postID, userID uuid.UUID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxCommentLength {
		return nil, domain.Invalid("content", "must be 1-1000 characters")
	}
	post, err := s.published(ctx, postID)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := s.DB.WithContext(ctx).Select("id", "username", "is_active").First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.IsActive {
		return nil, domain.ErrNotFound
	}
	comment := &domain.Comment{PostID: postID, UserID: userID, Username: user.Username, Content: content, CreatedAt: s.now()}
	if err := s.DB.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	s.Broadcaster.NewComment(ctx, realtime.CommentNotice{
		PostID:    post.ID.String(),
		PostTitle: post.Title,
		Username:  user.Username,
		Comment:   content,
	})
	return comment, nil
}

// Comments lists a published post's comments, oldest first.
func (s *Service) Comments(ctx context.Context, postID uuid.UUID) ([]domain.Comment, error) {
	if _, err := s.published(ctx, postID); err != nil {
		return nil, err
	}
	var out []domain.Comment
	err := s.DB.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*domain.AwarenessPost, error) {
	var post domain.AwarenessPost
	if err := s.DB.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *Service) published(ctx context.Context, id uuid.UUID) (*domain.AwarenessPost, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
