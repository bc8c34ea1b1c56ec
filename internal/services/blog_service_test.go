package services

import (
	"context"
	"testing"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":              "hello-world",
		"  Trees & Rivers!  2026 ": "trees-rivers-2026",
		"Ünïcode café":             "n-code-caf",
		"---":                      "post",
		"already-slugged":          "already-slugged",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestBlogLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewBlogService(db)

	author := createUser(t, db, "writer", models.RoleNGO)
	authorActor := Actor{UserID: author.ID, Role: author.Role}
	reader := createUser(t, db, "reader", models.RoleVolunteer)
	readerActor := Actor{UserID: reader.ID, Role: reader.Role}

	first, err := svc.CreateBlog(ctx, author.ID, BlogInput{Title: "Our Year", Content: "...", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "our-year", first.Slug)

	draft, err := svc.CreateBlog(ctx, author.ID, BlogInput{Title: "Our year", Content: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "our-year-2", draft.Slug)

	_, err = svc.GetBlogBySlug(ctx, nil, draft.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetBlogBySlug(ctx, &readerActor, draft.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := svc.GetBlogBySlug(ctx, &authorActor, draft.Slug)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Content)

	published, err := svc.ListBlogs(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, published, 1)
	all, err := svc.ListBlogs(ctx, author.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.UpdateBlog(ctx, readerActor, draft.Slug, BlogInput{Title: "hijack", Content: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := svc.UpdateBlog(ctx, authorActor, draft.Slug, BlogInput{Title: "Renamed", Content: "final", Published: true})
	require.NoError(t, err)
	assert.Equal(t, draft.Slug, updated.Slug)
	assert.True(t, updated.Published)

	withCover, err := svc.SetCover(ctx, authorActor, draft.Slug, "http://cdn/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/cover.png", withCover.CoverURL)

	assert.ErrorIs(t, svc.DeleteBlog(ctx, readerActor, first.Slug), ErrForbidden)
	require.NoError(t, svc.DeleteBlog(ctx, Actor{UserID: "x", Role: models.RoleAdmin}, first.Slug))
	_, err = svc.GetBlogBySlug(ctx, nil, first.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBlogConcurrentTitles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewBlogService(db)
	author := createUser(t, db, "writer", models.RoleNGO)

	const n = 8
	slugs := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			b, err := svc.CreateBlog(ctx, author.ID, BlogInput{Title: "Same title", Content: "body"})
			slugs[i] = b.Slug
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, slug := range slugs {
		assert.False(t, seen[slug], "duplicate slug %s", slug)
		seen[slug] = true
	}
	assert.True(t, seen["same-title"])
	assert.True(t, seen["same-title-8"])
}
