package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/rs/zerolog/log"
)

// BackupHandler handles HTTP requests related to database backups.
type BackupHandler struct {
	service services.BackupServiceProvider
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(service services.BackupServiceProvider) *BackupHandler {
	return &BackupHandler{service: service}
}

// CreateBackupPayload is the expected JSON body for creating a backup.
type CreateBackupPayload struct {
	Name string `json:"name" validate:"max=100"`
}

// GetAll handles the request to list backups.
func (h *BackupHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	backups, err := h.service.ListBackups(r.Context())
	if err != nil {
		writeError(w, err, "Failed to retrieve backups", nil)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

// Create handles the request to create a new backup.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CreateBackupPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	// Snapshots of a large database can outlive the request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.service.CreateBackup(ctx, payload.Name); err != nil {
			log.Error().Err(err).Str("backup_name", payload.Name).Msg("Failed to create backup in background")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Backup creation started."})
}

// Download streams the backup archive.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "backupId")
	backup, err := h.service.GetBackupByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get backup", map[string]interface{}{"backup_id": id})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(backup.Path)))
	http.ServeFile(w, r, backup.Path)
}

// Delete handles the request to delete a backup.
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "backupId")
	if err := h.service.DeleteBackup(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete backup", map[string]interface{}{"backup_id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
