package ibt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/ibt/pkg/ibt"

// DefaultIdentityChannel is the per-tick counter used to key bulk reads.
const DefaultIdentityChannel = "SessionTick"

// Cursor is the index of the next record a sequential reader will fetch.
// It is owned by the caller, so one Sampler can serve any number of readers.
type Cursor uint32

// Sampler decodes fixed-length records from the sample region of a capture.
// Reads are positional (ReadAt), so Record may be called from several goroutines.
type Sampler struct {
	r         io.ReaderAt
	size      int64
	offset    uint32
	recordLen uint32
	vars      []VarDef

	identity string
	log      zerolog.Logger

	read    metric.Int64Counter
	dropped metric.Int64Counter
}

type sizer interface {
	Size() int64
}

// NewSampler binds a Sampler to r. offset is the start of the sample region and
// recordLen the length of one record, both from the same Header as vars.
func NewSampler(r io.ReaderAt, offset, recordLen uint32, vars []VarDef, opts ...Option) (*Sampler, error) {
	o := newOptions(opts)

	s := &Sampler{
		r:         r,
		size:      -1,
		offset:    offset,
		recordLen: recordLen,
		vars:      vars,
		identity:  o.identity,
		log:       o.logger,
	}
	if sz, ok := r.(sizer); ok {
		s.size = sz.Size()
	}

	m := otel.Meter(instrumentationName)

	var err error
	s.read, err = m.Int64Counter(
		"ibt.sampler.records.read",
		metric.WithDescription("Total complete records decoded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating records read counter: %w", err)
	}

	s.dropped, err = m.Int64Counter(
		"ibt.sampler.records.dropped",
		metric.WithDescription("Records skipped by bulk reads for lacking the identity channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating records dropped counter: %w", err)
	}

	return s, nil
}

// Vars returns the channel definitions the sampler decodes.
func (s *Sampler) Vars() []VarDef {
	return s.vars
}

// RecordLen returns the byte length of one record.
func (s *Sampler) RecordLen() uint32 {
	return s.recordLen
}

// Count returns the number of complete records in the sample region, or -1 if the
// underlying reader does not report its size.
func (s *Sampler) Count() int64 {
	if s.size < 0 {
		return -1
	}
	if s.recordLen == 0 || s.size <= int64(s.offset) {
		return 0
	}
	return (s.size - int64(s.offset)) / int64(s.recordLen)
}

// Record decodes the record at index. A short read, including reading past the end of
// the file, returns an empty Sample and a nil error.
func (s *Sampler) Record(index uint32) (Sample, error) {
	raw, err := s.RawRecord(index)
	if err != nil || raw == nil {
		return Sample{}, err
	}

	out := make(Sample, len(s.vars))
	for _, v := range s.vars {
		out[v.Name] = Value{
			Data:     v.Decode(raw),
			Unit:     v.Unit,
			DataType: v.Tag,
		}
	}
	s.read.Add(context.Background(), 1)
	return out, nil
}

// RawRecord returns the undecoded bytes of the record at index, or nil when there is
// no complete record there.
func (s *Sampler) RawRecord(index uint32) ([]byte, error) {
	if s.recordLen == 0 {
		return nil, nil
	}

	at := int64(s.offset) + int64(index)*int64(s.recordLen)
	buf := make([]byte, s.recordLen)

	n, err := s.r.ReadAt(buf, at)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		s.log.Trace().Uint32("index", index).Int("read", n).Msg("End of sample data")
		return nil, nil
	}
	return nil, fmt.Errorf("reading record %d at %d: %w", index, at, err)
}

// Next decodes the record at cur and returns the cursor for the following record.
// Once an empty Sample comes back the reader is exhausted; the returned cursor still
// advances, and earlier indices stay readable through Record.
func (s *Sampler) Next(cur Cursor) (Sample, Cursor, error) {
	sample, err := s.Record(uint32(cur))
	if err != nil {
		return nil, cur, err
	}
	return sample, cur + 1, nil
}

// All reads every record from the start of the region and keys each one by the
// identity channel's value. Records without the identity channel are dropped.
func (s *Sampler) All() (map[string]Sample, error) {
	out := make(map[string]Sample)

	var cur Cursor
	for {
		sample, next, err := s.Next(cur)
		if err != nil {
			return nil, err
		}
		if sample.Empty() {
			return out, nil
		}

		id, ok := sample[s.identity]
		if !ok {
			s.log.Warn().Uint32("index", uint32(cur)).Str("channel", s.identity).
				Msg("Could not find identity channel, dropping record")
			s.dropped.Add(context.Background(), 1)
		} else {
			out[id.Data] = sample
		}
		cur = next
	}
}

// Close releases the underlying reader when it is closable.
func (s *Sampler) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
