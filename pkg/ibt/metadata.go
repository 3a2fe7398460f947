package ibt

import "fmt"

const (
	// MetadataOffset is where the session summary block starts; it directly follows the header.
	MetadataOffset = HeaderSize
	// MetadataSize is the size of the session summary block.
	MetadataSize = 32
)

// Metadata is the session timing summary stored after the header.
type Metadata struct {
	StartDate   float32 `json:"startDate"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	LapCount    uint32  `json:"lapCount"`
	RecordCount uint32  `json:"recordCount"`
}

// ParseMetadata decodes a MetadataSize block. buf must start at MetadataOffset.
func ParseMetadata(buf []byte) (Metadata, error) {
	if len(buf) < MetadataSize {
		return Metadata{}, fmt.Errorf("metadata needs %d bytes, have %d: %w", MetadataSize, len(buf), ErrTruncated)
	}
	return Metadata{
		StartDate:   Float32At(buf, 0),
		StartTime:   Float64At(buf, 8),
		EndTime:     Float64At(buf, 16),
		LapCount:    Uint32At(buf, 24),
		RecordCount: Uint32At(buf, 28),
	}, nil
}
