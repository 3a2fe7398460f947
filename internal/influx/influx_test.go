package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/ibt/internal/config"
	"github.com/OCAP2/ibt/internal/testutil"
	"github.com/OCAP2/ibt/pkg/ibt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTime(t *testing.T) {
	got := StartTime(ibt.Metadata{StartDate: 1024})
	assert.Equal(t, time.Unix(1024, 0).UTC(), got)
}

func TestBuildPoint(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	sample := ibt.Sample{
		"Speed":     {Data: "12.5", Unit: "m/s", DataType: testutil.TagFloat},
		"Gear":      {Data: "-1", DataType: testutil.TagInt},
		"Flags":     {Data: "4294967295", DataType: testutil.TagBitField},
		"IsOnTrack": {Data: "1", DataType: testutil.TagBool},
		"Letter":    {Data: "x", DataType: testutil.TagChar},
		"Empty":     {Data: "", DataType: testutil.TagFloat},
		"Odd":       {Data: "3", DataType: 99},
	}

	p := BuildPoint("race.ibt", 60, start, 30, sample)

	assert.Equal(t, Measurement, p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "capture", p.TagList()[0].Key)
	assert.Equal(t, "race.ibt", p.TagList()[0].Value)
	assert.Equal(t, start.Add(500*time.Millisecond), p.Time())

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 12.5, fields["Speed"])
	assert.Equal(t, int64(-1), fields["Gear"])
	assert.Equal(t, uint64(4294967295), fields["Flags"])
	assert.Equal(t, true, fields["IsOnTrack"])
	assert.Equal(t, "x", fields["Letter"])
	assert.NotContains(t, fields, "Empty")
	assert.NotContains(t, fields, "Odd")
}

func TestBuildPoint_ZeroTickRate(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	p := BuildPoint("c", 0, start, 3, ibt.Sample{})
	assert.Equal(t, start.Add(3*time.Second), p.Time())
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.Error(t, m.Connect(context.Background()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	p := BuildPoint("c", 60, time.Now(), 0, ibt.Sample{})
	assert.Error(t, m.WritePoint(p))
}

func TestExportCapture_Backup(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "backup.lp.gz")

	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "ibt",
		Bucket:     "telemetry",
		BackupPath: backup,
	})
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)

	c, err := ibt.Open(testutil.StandardCapture(3).Write(t, dir, "fuji.ibt"))
	require.NoError(t, err)
	defer c.Close()

	n, err := m.ExportCapture(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "telemetry,capture=fuji.ibt "), line)
		assert.Contains(t, line, "Speed=")
	}
}

func TestExportCapture_Cancelled(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})

	c, err := ibt.Open(testutil.StandardCapture(2).Write(t, dir, "a.ibt"))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.ExportCapture(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}
