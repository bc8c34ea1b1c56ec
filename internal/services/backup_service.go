package services

import (
	"archive/zip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/rs/zerolog/log"
)

// backupEntryName is the file name of the database inside a backup archive.
const backupEntryName = "impact.db"

// BackupServiceProvider defines the interface for backup services.
type BackupServiceProvider interface {
	CreateBackup(ctx context.Context, name string) (models.Backup, error)
	ListBackups(ctx context.Context) ([]models.Backup, error)
	GetBackupByID(ctx context.Context, id string) (models.Backup, error)
	DeleteBackup(ctx context.Context, id string) error
	Prune(ctx context.Context, keep int) (int, error)
}

// BackupService snapshots the database into zip archives under backupPath.
type BackupService struct {
	db         *sql.DB
	activity   ActivityServiceProvider
	backupPath string
	now        func() time.Time
}

// NewBackupService creates a new BackupService, creating backupPath if needed.
func NewBackupService(db *sql.DB, activity ActivityServiceProvider, backupPath string) (*BackupService, error) {
	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &BackupService{
		db:         db,
		activity:   activity,
		backupPath: backupPath,
		now:        time.Now,
	}, nil
}

// CreateBackup writes a consistent copy of the database with VACUUM INTO and
// stores it zipped.
func (s *BackupService) CreateBackup(ctx context.Context, name string) (models.Backup, error) {
	now := s.now().UTC()
	backup := models.Backup{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	if backup.Name == "" {
		backup.Name = "snapshot " + now.Format(time.RFC3339)
	}

	base := fmt.Sprintf("impact_%s_%s", now.Format("20060102150405"), backup.ID[:8])
	snapshot := filepath.Join(s.backupPath, base+".db")
	backup.Path = filepath.Join(s.backupPath, base+".zip")

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return models.Backup{}, fmt.Errorf("snapshot database: %w", err)
	}
	defer os.Remove(snapshot)

	size, err := zipFile(snapshot, backup.Path, backupEntryName)
	if err != nil {
		os.Remove(backup.Path) // Clean up partial file
		return models.Backup{}, fmt.Errorf("compress snapshot: %w", err)
	}
	backup.Size = size

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO backups (id, name, path, size, created_at) VALUES (?, ?, ?, ?, ?)",
		backup.ID, backup.Name, backup.Path, backup.Size, backup.CreatedAt)
	if err != nil {
		os.Remove(backup.Path)
		return models.Backup{}, err
	}

	s.record(ctx, "backup.create", "info", fmt.Sprintf("Backup '%s' created.", backup.Name))
	return backup, nil
}

func zipFile(src, dst, entry string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	w, err := zw.Create(entry)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(w, in); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	fi, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ListBackups returns every backup, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]models.Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, path, size, created_at FROM backups ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backups := []models.Backup{}
	for rows.Next() {
		var backup models.Backup
		if err := rows.Scan(&backup.ID, &backup.Name, &backup.Path, &backup.Size, &backup.CreatedAt); err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}
	return backups, rows.Err()
}

// GetBackupByID retrieves a single backup by its ID.
func (s *BackupService) GetBackupByID(ctx context.Context, id string) (models.Backup, error) {
	var backup models.Backup
	err := s.db.QueryRowContext(ctx, "SELECT id, name, path, size, created_at FROM backups WHERE id = ?", id).
		Scan(&backup.ID, &backup.Name, &backup.Path, &backup.Size, &backup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Backup{}, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	return backup, err
}

// DeleteBackup deletes a backup from the filesystem and database.
func (s *BackupService) DeleteBackup(ctx context.Context, id string) error {
	backup, err := s.GetBackupByID(ctx, id)
	if err != nil {
		return err
	}

	if err := os.Remove(backup.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", backup.Path).Msg("Could not delete backup file")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM backups WHERE id = ?", id); err != nil {
		return err
	}
	s.record(ctx, "backup.delete", "warn", fmt.Sprintf("Backup '%s' was deleted.", backup.Name))
	return nil
}

// Prune deletes all but the keep newest backups and returns how many were removed.
func (s *BackupService) Prune(ctx context.Context, keep int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for i := keep; i < len(backups); i++ {
		if err := s.DeleteBackup(ctx, backups[i].ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *BackupService) record(ctx context.Context, activityType, level, msg string) {
	recordActivity(ctx, s.activity, activityType, level, msg, "")
}
