// Package catalog keeps a database summary of every capture that was opened.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OCAP2/ibt/internal/model"
	"github.com/OCAP2/ibt/internal/sessioninfo"
	"github.com/OCAP2/ibt/pkg/ibt"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotCataloged is returned by Get for unknown paths.
var ErrNotCataloged = errors.New("capture not cataloged")

// Catalog persists CaptureRecord rows.
type Catalog struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// New wraps a migrated database handle.
func New(db *gorm.DB, log zerolog.Logger) *Catalog {
	return &Catalog{db: db, log: log, now: time.Now}
}

// Summarize builds the catalog row for c without touching the database.
func Summarize(c *ibt.Capture) (model.CaptureRecord, error) {
	channels := make([]model.ChannelInfo, 0, len(c.Vars))
	for _, v := range c.Vars {
		channels = append(channels, model.ChannelInfo{
			Name:  v.Name,
			Unit:  v.Unit,
			Type:  v.Tag,
			Count: v.Count,
		})
	}
	raw, err := json.Marshal(channels)
	if err != nil {
		return model.CaptureRecord{}, fmt.Errorf("failed to marshal channels: %w", err)
	}

	var count int64 = -1
	if c.Sampler != nil {
		count = c.Sampler.Count()
	}

	return model.CaptureRecord{
		Path:        c.Path,
		FileName:    filepath.Base(c.Path),
		Version:     c.Header.Version,
		TickRate:    c.Header.TickRate,
		NumVars:     c.Header.NumVars,
		RecordLen:   c.Header.BufLen,
		RecordCount: count,
		StartTime:   c.Metadata.StartTime,
		EndTime:     c.Metadata.EndTime,
		LapCount:    c.Metadata.LapCount,
		TrackName:   sessioninfo.TrackName(c.Session),
		Channels:    datatypes.JSON(raw),
	}, nil
}

// Upsert records c, replacing any earlier row for the same path.
func (k *Catalog) Upsert(c *ibt.Capture) (model.CaptureRecord, error) {
	rec, err := Summarize(c)
	if err != nil {
		return rec, err
	}
	rec.OpenedAt = k.now()

	err = k.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_name", "version", "tick_rate", "num_vars", "record_len",
			"record_count", "start_time", "end_time", "lap_count",
			"track_name", "channels", "opened_at", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return rec, fmt.Errorf("failed to catalog %s: %w", rec.Path, err)
	}

	k.log.Debug().Str("path", rec.Path).Str("track", rec.TrackName).Msg("Capture cataloged")
	return rec, nil
}

// List returns every cataloged capture, most recently opened first.
func (k *Catalog) List() ([]model.CaptureRecord, error) {
	var rows []model.CaptureRecord
	if err := k.db.Order("opened_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return rows, nil
}

// Get returns the row for path.
func (k *Catalog) Get(path string) (model.CaptureRecord, error) {
	var row model.CaptureRecord
	err := k.db.Where("path = ?", path).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s", ErrNotCataloged, path)
	}
	if err != nil {
		return row, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return row, nil
}

// Channels decodes the channel list of a catalog row.
func Channels(rec model.CaptureRecord) ([]model.ChannelInfo, error) {
	var out []model.ChannelInfo
	if len(rec.Channels) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(rec.Channels, &out); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}
	return out, nil
}
