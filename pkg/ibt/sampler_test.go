package ibt

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/OCAP2/ibt/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSampler(t *testing.T, b *testutil.Builder, opts ...Option) *Sampler {
	t.Helper()
	raw := b.Bytes()
	h, err := ParseHeader(raw)
	require.NoError(t, err)
	vars, err := ParseVarTable(raw, h.VarHeaderOffset, h.NumVars)
	require.NoError(t, err)

	s, err := NewSampler(bytes.NewReader(raw), h.BufOffset, h.BufLen, vars, opts...)
	require.NoError(t, err)
	return s
}

func TestSampler_Record(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(3))

	sample, err := s.Record(2)
	require.NoError(t, err)
	require.Len(t, sample, 6)

	assert.Equal(t, Value{Data: "2", Unit: "", DataType: 2}, sample["SessionTick"])
	assert.Equal(t, Value{Data: "12", Unit: "m/s", DataType: 4}, sample["Speed"])
	assert.Equal(t, Value{Data: "3200", Unit: "revs/min", DataType: 4}, sample["RPM"])
	assert.Equal(t, "0.03333333333333333", sample["SessionTime"].Data)
	assert.Equal(t, "1", sample["IsOnTrack"].Data)
}

func TestSampler_RecordPastEnd(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(3))

	for _, idx := range []uint32{3, 4, 1000} {
		sample, err := s.Record(idx)
		require.NoError(t, err)
		assert.True(t, sample.Empty(), "index %d", idx)
	}
}

func TestSampler_PartialTrailingRecord(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(2).Trailing(5))

	sample, err := s.Record(1)
	require.NoError(t, err)
	assert.False(t, sample.Empty())

	sample, err = s.Record(2)
	require.NoError(t, err)
	assert.True(t, sample.Empty())
	assert.Equal(t, int64(2), s.Count())
}

func TestSampler_RecordIsRepeatable(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(4))

	first, err := s.Record(1)
	require.NoError(t, err)
	second, err := s.Record(1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSampler_Next(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(2))

	var cur Cursor
	sample, cur, err := s.Next(cur)
	require.NoError(t, err)
	assert.Equal(t, "0", sample["SessionTick"].Data)
	assert.Equal(t, Cursor(1), cur)

	sample, cur, err = s.Next(cur)
	require.NoError(t, err)
	assert.Equal(t, "1", sample["SessionTick"].Data)

	sample, cur, err = s.Next(cur)
	require.NoError(t, err)
	assert.True(t, sample.Empty())
	assert.Equal(t, Cursor(3), cur)

	// exhaustion is not terminal for random access
	sample, err = s.Record(0)
	require.NoError(t, err)
	assert.Equal(t, "0", sample["SessionTick"].Data)
}

func TestSampler_IndependentCursors(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(3))

	a, _, err := s.Next(Cursor(2))
	require.NoError(t, err)
	b, _, err := s.Next(Cursor(0))
	require.NoError(t, err)

	assert.Equal(t, "2", a["SessionTick"].Data)
	assert.Equal(t, "0", b["SessionTick"].Data)
}

func TestSampler_All(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(3))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 3)

	for _, key := range []string{"0", "1", "2"} {
		sample, ok := all[key]
		require.True(t, ok, "missing key %s", key)
		assert.Len(t, sample, 6)
		assert.Equal(t, key, sample["SessionTick"].Data)
	}
}

func TestSampler_AllDropsRecordsWithoutIdentity(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	s := newTestSampler(t, testutil.StandardCapture(2), WithLogger(logger), WithIdentityChannel("Lap"))

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Contains(t, logs.String(), "Could not find identity channel")
}

func TestSampler_CustomIdentity(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(3), WithIdentityChannel("RPM"))

	all, err := s.All()
	require.NoError(t, err)
	assert.Contains(t, all, "3000")
	assert.Contains(t, all, "3200")
}

func TestSampler_NoRecords(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(0))

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, int64(0), s.Count())
}

func TestSampler_ZeroRecordLength(t *testing.T) {
	s, err := NewSampler(bytes.NewReader(make([]byte, 64)), 0, 0, nil)
	require.NoError(t, err)

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

type failingReader struct{}

func (failingReader) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestSampler_ReadError(t *testing.T) {
	s, err := NewSampler(failingReader{}, 0, 8, []VarDef{{Name: "X", Type: TypeDouble}})
	require.NoError(t, err)

	_, err = s.Record(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")

	_, err = s.All()
	require.Error(t, err)
	assert.Equal(t, int64(-1), s.Count())
}

func TestSampler_ConcurrentRecord(t *testing.T) {
	s := newTestSampler(t, testutil.StandardCapture(50))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx uint32) {
			defer wg.Done()
			sample, err := s.Record(idx)
			if err != nil {
				errs <- err
				return
			}
			if got := sample["SessionTick"].Data; got != strconv.Itoa(int(idx)) {
				errs <- fmt.Errorf("record %d: got tick %q", idx, got)
			}
		}(uint32(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
