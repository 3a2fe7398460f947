// Package testutil builds synthetic telemetry captures for tests.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Wire type tags, mirrored here so the builder does not depend on the decoder.
const (
	TagChar     uint32 = 0
	TagBool     uint32 = 1
	TagInt      uint32 = 2
	TagBitField uint32 = 3
	TagFloat    uint32 = 4
	TagDouble   uint32 = 5
)

const (
	headerSize   = 112
	metadataSize = 32
	varSize      = 144
)

// Channel is a variable descriptor to be written into the table.
type Channel struct {
	Name        string
	Description string
	Unit        string
	Tag         uint32
	Count       uint32
	CountAsTime bool

	offset uint32
}

// Metadata mirrors the session summary block.
type Metadata struct {
	StartDate   float32
	StartTime   float64
	EndTime     float64
	LapCount    uint32
	RecordCount uint32
}

// Layout reports where the builder placed each region.
type Layout struct {
	VarOffset     uint32
	SessionOffset uint32
	BufOffset     uint32
	RecordLen     uint32
}

// Builder assembles a capture file in memory.
type Builder struct {
	Version  uint32
	Status   uint32
	TickRate uint32
	Metadata Metadata
	Session  string

	channels  []Channel
	recordLen uint32
	records   [][]byte
	trailing  int
}

// NewBuilder returns a builder with a 60Hz tick rate and no channels.
func NewBuilder() *Builder {
	return &Builder{Version: 2, Status: 1, TickRate: 60}
}

func widthOf(tag uint32) uint32 {
	switch tag {
	case TagChar, TagBool:
		return 1
	case TagDouble:
		return 8
	default:
		return 4
	}
}

// Channel appends a scalar channel laid out after the previous one.
func (b *Builder) Channel(name, unit string, tag uint32) *Builder {
	return b.ArrayChannel(name, unit, tag, 1)
}

// ArrayChannel appends a channel holding count consecutive elements.
func (b *Builder) ArrayChannel(name, unit string, tag, count uint32) *Builder {
	c := Channel{Name: name, Unit: unit, Tag: tag, Count: count, Description: name + " channel"}
	return b.AddChannel(c)
}

// AddChannel appends a fully specified channel.
func (b *Builder) AddChannel(c Channel) *Builder {
	if c.Count == 0 {
		c.Count = 1
	}
	c.offset = b.recordLen
	b.recordLen += widthOf(c.Tag) * c.Count
	b.channels = append(b.channels, c)
	return b
}

// Record appends one record. values are given in channel order; array channels take a slice.
func (b *Builder) Record(values ...any) *Builder {
	if len(values) != len(b.channels) {
		panic(fmt.Sprintf("testutil: %d values for %d channels", len(values), len(b.channels)))
	}
	rec := make([]byte, b.recordLen)
	for i, c := range b.channels {
		w := widthOf(c.Tag)
		switch v := values[i].(type) {
		case []any:
			for j, e := range v {
				putValue(rec[c.offset+uint32(j)*w:], c.Tag, e)
			}
		default:
			putValue(rec[c.offset:], c.Tag, v)
		}
	}
	b.records = append(b.records, rec)
	return b
}

// Trailing appends n bytes after the last record, forming an incomplete record.
func (b *Builder) Trailing(n int) *Builder {
	b.trailing = n
	return b
}

func putValue(dst []byte, tag uint32, v any) {
	switch tag {
	case TagChar, TagBool:
		switch x := v.(type) {
		case bool:
			if x {
				dst[0] = 1
			}
		case byte:
			dst[0] = x
		case rune:
			dst[0] = byte(x)
		case int:
			dst[0] = byte(x)
		}
	case TagInt, TagBitField:
		switch x := v.(type) {
		case int:
			binary.LittleEndian.PutUint32(dst, uint32(int32(x)))
		case int32:
			binary.LittleEndian.PutUint32(dst, uint32(x))
		case uint32:
			binary.LittleEndian.PutUint32(dst, x)
		}
	case TagFloat:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(toFloat32(v)))
	case TagDouble:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(toFloat64(v)))
	default:
		if x, ok := v.(uint32); ok {
			binary.LittleEndian.PutUint32(dst, x)
		}
	}
}

func toFloat32(v any) float32 {
	switch x := v.(type) {
	case float32:
		return x
	case float64:
		return float32(x)
	case int:
		return float32(x)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case int:
		return float64(x)
	}
	return 0
}

// Layout computes region offsets. The variable table holds a padding slot ahead of the
// channels, and one separator byte precedes the session text.
func (b *Builder) Layout() Layout {
	varOffset := uint32(headerSize + metadataSize)
	numVars := uint32(len(b.channels) + 1)
	sessionOffset := varOffset + numVars*varSize + 1
	return Layout{
		VarOffset:     varOffset,
		SessionOffset: sessionOffset,
		BufOffset:     sessionOffset + uint32(len(b.Session)),
		RecordLen:     b.recordLen,
	}
}

// Bytes renders the capture file.
func (b *Builder) Bytes() []byte {
	l := b.Layout()
	numVars := uint32(len(b.channels) + 1)

	out := make([]byte, l.BufOffset, int(l.BufOffset)+len(b.records)*int(b.recordLen)+b.trailing)

	slots := map[int]uint32{
		0:  b.Version,
		1:  b.Status,
		2:  b.TickRate,
		3:  1,
		4:  l.SessionOffset,
		5:  uint32(len(b.Session)),
		6:  numVars,
		7:  l.VarOffset,
		8:  1,
		9:  b.recordLen,
		12: uint32(len(b.records)),
		13: l.BufOffset,
	}
	for i, v := range slots {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}

	md := out[headerSize : headerSize+metadataSize]
	binary.LittleEndian.PutUint32(md[0:], math.Float32bits(b.Metadata.StartDate))
	binary.LittleEndian.PutUint64(md[8:], math.Float64bits(b.Metadata.StartTime))
	binary.LittleEndian.PutUint64(md[16:], math.Float64bits(b.Metadata.EndTime))
	binary.LittleEndian.PutUint32(md[24:], b.Metadata.LapCount)
	binary.LittleEndian.PutUint32(md[28:], b.Metadata.RecordCount)

	for i, c := range b.channels {
		d := out[l.VarOffset+uint32(i+1)*varSize:]
		binary.LittleEndian.PutUint32(d[0:], c.Tag)
		binary.LittleEndian.PutUint32(d[4:], c.offset)
		binary.LittleEndian.PutUint32(d[8:], c.Count)
		if c.CountAsTime {
			d[12] = 1
		}
		copy(d[16:48], c.Name)
		copy(d[48:112], c.Description)
		copy(d[112:144], c.Unit)
	}

	out[l.SessionOffset-1] = '\n'
	copy(out[l.SessionOffset:], b.Session)

	for _, r := range b.records {
		out = append(out, r...)
	}
	out = append(out, make([]byte, b.trailing)...)
	return out
}

// Write stores the capture under dir and returns its path.
func (b *Builder) Write(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("writing capture %s: %v", path, err)
	}
	return path
}

// StandardCapture returns a builder with a tick counter, speed, rpm, gear, on-track flag
// and session time, plus n records whose tick values run 0..n-1.
func StandardCapture(n int) *Builder {
	b := NewBuilder().
		Channel("SessionTick", "", TagInt).
		Channel("SessionTime", "s", TagDouble).
		Channel("Speed", "m/s", TagFloat).
		Channel("RPM", "revs/min", TagFloat).
		Channel("Gear", "", TagInt).
		Channel("IsOnTrack", "", TagBool)
	b.Session = "---\nWeekendInfo:\n TrackName: fuji gp\n TrackID: 166\n"
	b.Metadata = Metadata{StartDate: 1731774251, StartTime: 12.5, EndTime: 812.25, LapCount: 4, RecordCount: uint32(n)}
	for i := 0; i < n; i++ {
		b.Record(i, float64(i)/60, float32(10+i), float32(3000+100*i), i%6, true)
	}
	return b
}
