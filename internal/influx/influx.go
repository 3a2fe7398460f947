// Package influx exports decoded telemetry samples as InfluxDB points.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/ibt/internal/config"
	"github.com/OCAP2/ibt/pkg/ibt"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement is the measurement name of every exported point.
const Measurement = "telemetry"

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
		cfg:     cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server cannot be
// reached, points go to the gzip backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.cfg.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with 90 day retention
	_, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket)
	if err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		if m.Writer == nil {
			return errors.New("influxDB writer not initialized")
		}
		m.Writer.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(lineProtocol, "\n") {
		lineProtocol += "\n"
	}
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// ExportCapture writes one point per record of c and returns how many were written.
func (m *Manager) ExportCapture(ctx context.Context, c *ibt.Capture) (int, error) {
	if c.Sampler == nil {
		return 0, errors.New("capture has no sampler")
	}

	name := filepath.Base(c.Path)
	start := StartTime(c.Metadata)
	written := 0

	var cur ibt.Cursor
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		sample, next, err := c.Sampler.Next(cur)
		if err != nil {
			return written, fmt.Errorf("failed to read record %d: %w", cur, err)
		}
		if sample.Empty() {
			break
		}

		point := BuildPoint(name, c.Header.TickRate, start, uint32(cur), sample)
		if err := m.WritePoint(point); err != nil {
			return written, err
		}
		written++
		cur = next
	}

	m.Logger.Info().Str("capture", name).Int("points", written).Msg("Capture exported to InfluxDB")
	return written, nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var err error
	if m.BackupWriter != nil {
		err = m.BackupWriter.Close()
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
		m.backupFile = nil
	}
	return err
}

// StartTime converts the capture start date (Unix seconds) to a time.
func StartTime(md ibt.Metadata) time.Time {
	secs := float64(md.StartDate)
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second))).UTC()
}

// BuildPoint turns one decoded record into a point. The timestamp is the
// capture start plus index ticks.
func BuildPoint(capture string, tickRate uint32, start time.Time, index uint32, sample ibt.Sample) *influxdb2_write.Point {
	if tickRate == 0 {
		tickRate = 1
	}
	ts := start.Add(time.Duration(index) * time.Second / time.Duration(tickRate))

	point := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("capture", capture).
		SetTime(ts)

	for name, v := range sample {
		if field, ok := fieldValue(v); ok {
			point.AddField(name, field)
		}
	}
	return point
}

// fieldValue converts a decoded value to the field type of its channel.
func fieldValue(v ibt.Value) (any, bool) {
	if v.Data == "" {
		return nil, false
	}

	switch ibt.TypeFromTag(v.DataType) {
	case ibt.TypeChar:
		return v.Data, true
	case ibt.TypeBool:
		return v.Data != "0", true
	case ibt.TypeInt:
		n, err := strconv.ParseInt(v.Data, 10, 64)
		return n, err == nil
	case ibt.TypeBitField:
		n, err := strconv.ParseUint(v.Data, 10, 64)
		return n, err == nil
	case ibt.TypeFloat, ibt.TypeDouble:
		f, err := strconv.ParseFloat(v.Data, 64)
		return f, err == nil
	case ibt.TypeUnknown:
		return nil, false
	}
	return nil, false
}
