package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// BlogHandler handles HTTP requests for blog posts.
type BlogHandler struct {
	service services.BlogServiceProvider
	media   storage.MediaStore
}

// NewBlogHandler creates a new BlogHandler. media may be nil.
func NewBlogHandler(service services.BlogServiceProvider, media storage.MediaStore) *BlogHandler {
	return &BlogHandler{service: service, media: media}
}

// GetAll lists published posts, or every post of ?author= when the caller
// is that author or an admin.
func (h *BlogHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	author := r.URL.Query().Get("author")
	publishedOnly := true
	if actor, ok := actorFrom(r); ok && author != "" && (actor.UserID == author || actor.IsAdmin()) {
		publishedOnly = false
	}

	blogs, err := h.service.ListBlogs(r.Context(), author, publishedOnly)
	if err != nil {
		writeError(w, err, "Failed to retrieve blogs", nil)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

// Get returns one post by slug.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	var viewer *services.Actor
	if actor, ok := actorFrom(r); ok {
		viewer = &actor
	}
	blog, err := h.service.GetBlogBySlug(r.Context(), viewer, slug)
	if err != nil {
		writeError(w, err, "Failed to get blog", map[string]interface{}{"slug": slug})
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// Create stores a post written by the caller.
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var in services.BlogInput
	if !decodeJSON(w, r, &in) {
		return
	}
	blog, err := h.service.CreateBlog(r.Context(), actor.UserID, in)
	if err != nil {
		writeError(w, err, "Failed to create blog", map[string]interface{}{"author_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

// Update edits a post.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	var in services.BlogInput
	if !decodeJSON(w, r, &in) {
		return
	}
	blog, err := h.service.UpdateBlog(r.Context(), actor, slug, in)
	if err != nil {
		writeError(w, err, "Failed to update blog", map[string]interface{}{"slug": slug})
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// Delete removes a post.
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.service.DeleteBlog(r.Context(), actor, slug); err != nil {
		writeError(w, err, "Failed to delete blog", map[string]interface{}{"slug": slug})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadCover stores a cover image and attaches it to the post.
func (h *BlogHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if _, err := h.service.GetBlogBySlug(r.Context(), &actor, slug); err != nil {
		writeError(w, err, "Failed to get blog", map[string]interface{}{"slug": slug})
		return
	}

	url, ok := uploadImage(w, r, h.media, "blogs/"+slug)
	if !ok {
		return
	}
	blog, err := h.service.SetCover(r.Context(), actor, slug, url)
	if err != nil {
		if rmErr := h.media.Remove(r.Context(), url); rmErr != nil {
			log.Warn().Err(rmErr).Str("url", url).Msg("Failed to remove orphaned cover")
		}
		writeError(w, err, "Failed to set cover", map[string]interface{}{"slug": slug})
		return
	}
	writeJSON(w, http.StatusOK, blog)
}
