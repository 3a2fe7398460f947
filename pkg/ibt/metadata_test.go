package ibt

import (
	"testing"

	"github.com/OCAP2/ibt/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	raw := testutil.StandardCapture(5).Bytes()

	md, err := ParseMetadata(raw[MetadataOffset : MetadataOffset+MetadataSize])
	require.NoError(t, err)

	assert.Equal(t, float32(1731774251), md.StartDate)
	assert.Equal(t, 12.5, md.StartTime)
	assert.Equal(t, 812.25, md.EndTime)
	assert.Equal(t, uint32(4), md.LapCount)
	assert.Equal(t, uint32(5), md.RecordCount)
}

func TestParseMetadata_Truncated(t *testing.T) {
	_, err := ParseMetadata(make([]byte, MetadataSize-1))
	require.ErrorIs(t, err, ErrTruncated)
}
