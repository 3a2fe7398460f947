// Package settings is the key/value settings table. Deleted keys are soft
// deleted and come back when set again.
package settings

import (
	"errors"
	"fmt"

	"github.com/OCAP2/ibt/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTelemetryPathKey holds the directory captures are listed from.
const DefaultTelemetryPathKey = "iracing_path"

var (
	// ErrSettingNotFound is returned for keys that do not exist or were deleted.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingLocked is returned when deleting a setting marked CanDelete=false.
	ErrSettingLocked = errors.New("setting cannot be deleted")
)

// Store reads and writes settings rows.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewStore wraps a migrated database handle.
func NewStore(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	var row model.Setting
	err := s.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return row.Value, nil
}

// Set creates or updates key. A soft-deleted row is restored.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return errors.New("setting key is empty")
	}

	var row model.Setting
	err := s.db.Unscoped().Where("key = ?", key).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = model.Setting{Key: key, Value: value, CanDelete: true}
		if err := s.db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create setting %s: %w", key, err)
		}
	case err != nil:
		return fmt.Errorf("failed to get setting %s: %w", key, err)
	default:
		err := s.db.Unscoped().Model(&row).Updates(map[string]any{
			"value":      value,
			"deleted_at": nil,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
	}

	s.log.Debug().Str("key", key).Msg("Setting saved")
	return nil
}

// EnsureDefault creates key with value unless a live row already exists.
func (s *Store) EnsureDefault(key, value string, canDelete bool) error {
	row := model.Setting{Key: key, Value: value, CanDelete: canDelete}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to seed setting %s: %w", key, err)
	}
	return nil
}

// Delete soft deletes key.
func (s *Store) Delete(key string) error {
	var row model.Setting
	err := s.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	if !row.CanDelete {
		return fmt.Errorf("%w: %s", ErrSettingLocked, key)
	}
	if err := s.db.Delete(&row).Error; err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}

	s.log.Debug().Str("key", key).Msg("Setting deleted")
	return nil
}

// List returns all live settings ordered by key.
func (s *Store) List() ([]model.Setting, error) {
	var rows []model.Setting
	if err := s.db.Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return rows, nil
}

// SeedDefaults writes the settings the application expects to exist.
func (s *Store) SeedDefaults(telemetryDir string) error {
	return s.EnsureDefault(DefaultTelemetryPathKey, telemetryDir, false)
}
