package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
)

// BlogInput carries the editable fields of a blog post.
type BlogInput struct {
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Content   string `json:"content" validate:"required"`
	Published bool   `json:"published"`
}

// BlogServiceProvider defines the interface for blog services.
type BlogServiceProvider interface {
	CreateBlog(ctx context.Context, authorID string, in BlogInput) (models.Blog, error)
	GetBlogBySlug(ctx context.Context, viewer *Actor, slug string) (models.Blog, error)
	ListBlogs(ctx context.Context, authorID string, publishedOnly bool) ([]models.Blog, error)
	UpdateBlog(ctx context.Context, actor Actor, slug string, in BlogInput) (models.Blog, error)
	DeleteBlog(ctx context.Context, actor Actor, slug string) error
	SetCover(ctx context.Context, actor Actor, slug, url string) (models.Blog, error)
}

// BlogService provides business logic for blog posts.
type BlogService struct {
	db *sql.DB
}

// NewBlogService creates a new BlogService.
func NewBlogService(db *sql.DB) *BlogService {
	return &BlogService{db: db}
}

// Slugify lowercases title and collapses every run of non-alphanumerics into
// a single dash.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "post"
	}
	return slug
}

const blogColumns = "id, author_id, title, slug, content, cover_url, published, created_at, updated_at"

func scanBlog(scanner interface{ Scan(...interface{}) error }) (models.Blog, error) {
	var b models.Blog
	var cover sql.NullString
	if err := scanner.Scan(&b.ID, &b.AuthorID, &b.Title, &b.Slug, &b.Content, &cover, &b.Published, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return models.Blog{}, err
	}
	b.CoverURL = cover.String
	return b, nil
}

func (s *BlogService) getBySlug(ctx context.Context, slug string) (models.Blog, error) {
	b, err := scanBlog(s.db.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs WHERE slug = ?", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Blog{}, fmt.Errorf("blog %s: %w", slug, ErrNotFound)
	}
	return b, err
}

func uniqueSlug(ctx context.Context, ex Execer, title string) (string, error) {
	base := Slugify(title)
	slug := base
	for i := 2; ; i++ {
		var n int
		if err := ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM blogs WHERE slug = ?", slug).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateBlog stores a new post under a slug derived from its title. The slug
// lookup and the insert share a transaction.
func (s *BlogService) CreateBlog(ctx context.Context, authorID string, in BlogInput) (models.Blog, error) {
	now := time.Now().UTC()
	blog := models.Blog{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Published: in.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		blog.Slug, err = uniqueSlug(ctx, tx, in.Title)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO blogs ("+blogColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			blog.ID, blog.AuthorID, blog.Title, blog.Slug, blog.Content, nil, blog.Published, blog.CreatedAt, blog.UpdatedAt)
		return err
	})
	if err != nil {
		return models.Blog{}, err
	}
	return blog, nil
}

func canEditBlog(actor Actor, b models.Blog) bool {
	return actor.IsAdmin() || actor.UserID == b.AuthorID
}

// GetBlogBySlug returns a post. Drafts are only visible to their author and admins.
func (s *BlogService) GetBlogBySlug(ctx context.Context, viewer *Actor, slug string) (models.Blog, error) {
	b, err := s.getBySlug(ctx, slug)
	if err != nil {
		return models.Blog{}, err
	}
	if !b.Published && (viewer == nil || !canEditBlog(*viewer, b)) {
		return models.Blog{}, fmt.Errorf("blog %s: %w", slug, ErrNotFound)
	}
	return b, nil
}

// ListBlogs returns posts newest first, optionally restricted to one author.
func (s *BlogService) ListBlogs(ctx context.Context, authorID string, publishedOnly bool) ([]models.Blog, error) {
	query := "SELECT " + blogColumns + " FROM blogs WHERE 1 = 1"
	var args []interface{}
	if authorID != "" {
		query += " AND author_id = ?"
		args = append(args, authorID)
	}
	if publishedOnly {
		query += " AND published = TRUE"
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []models.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}
	return blogs, rows.Err()
}

// UpdateBlog edits a post. The slug stays stable.
func (s *BlogService) UpdateBlog(ctx context.Context, actor Actor, slug string, in BlogInput) (models.Blog, error) {
	b, err := s.getBySlug(ctx, slug)
	if err != nil {
		return models.Blog{}, err
	}
	if !canEditBlog(actor, b) {
		return models.Blog{}, ErrForbidden
	}
	b.Title = strings.TrimSpace(in.Title)
	b.Content = in.Content
	b.Published = in.Published
	b.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, "UPDATE blogs SET title = ?, content = ?, published = ?, updated_at = ? WHERE id = ?",
		b.Title, b.Content, b.Published, b.UpdatedAt, b.ID)
	if err != nil {
		return models.Blog{}, err
	}
	return b, nil
}

// DeleteBlog removes a post.
func (s *BlogService) DeleteBlog(ctx context.Context, actor Actor, slug string) error {
	b, err := s.getBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if !canEditBlog(actor, b) {
		return ErrForbidden
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM blogs WHERE id = ?", b.ID)
	return err
}

// SetCover stores the cover image URL of a post.
func (s *BlogService) SetCover(ctx context.Context, actor Actor, slug, url string) (models.Blog, error) {
	b, err := s.getBySlug(ctx, slug)
	if err != nil {
		return models.Blog{}, err
	}
	if !canEditBlog(actor, b) {
		return models.Blog{}, ErrForbidden
	}
	b.CoverURL = url
	b.UpdatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, "UPDATE blogs SET cover_url = ?, updated_at = ? WHERE id = ?", url, b.UpdatedAt, b.ID); err != nil {
		return models.Blog{}, err
	}
	return b, nil
}
