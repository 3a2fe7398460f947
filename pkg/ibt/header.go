package ibt

import "fmt"

const (
	// HeaderSize is the size of the fixed leading header region.
	HeaderSize = 112

	headerSlots = HeaderSize / 4
)

// slot indices of the known header fields
const (
	slotVersion = iota
	slotStatus
	slotTickRate
	slotSessionInfoUpdate
	slotSessionInfoOffset
	slotSessionInfoLength
	slotNumVars
	slotVarHeaderOffset
	slotNumBuf
	slotBufLen
	slotBufOffset = 13
)

// Header describes the layout of a capture file.
type Header struct {
	Version           uint32 `json:"version"`
	Status            uint32 `json:"status"`
	TickRate          uint32 `json:"tickRate"`
	SessionInfoUpdate uint32 `json:"sessionInfoUpdate"`
	SessionInfoOffset uint32 `json:"sessionInfoOffset"`
	SessionInfoLength uint32 `json:"sessionInfoLength"`
	NumVars           uint32 `json:"numVars"`
	VarHeaderOffset   uint32 `json:"varHeaderOffset"`
	NumBuf            uint32 `json:"numBuf"`
	BufLen            uint32 `json:"bufLen"`
	BufOffset         uint32 `json:"bufOffset"`

	// Slots holds every 4-byte word of the region, known or not.
	Slots [headerSlots]uint32 `json:"-"`
}

// ParseHeader decodes the first HeaderSize bytes of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("header needs %d bytes, have %d: %w", HeaderSize, len(buf), ErrTruncated)
	}

	var h Header
	for i := range h.Slots {
		h.Slots[i] = Uint32At(buf, i*4)
	}

	h.Version = h.Slots[slotVersion]
	h.Status = h.Slots[slotStatus]
	h.TickRate = h.Slots[slotTickRate]
	h.SessionInfoUpdate = h.Slots[slotSessionInfoUpdate]
	h.SessionInfoOffset = h.Slots[slotSessionInfoOffset]
	h.SessionInfoLength = h.Slots[slotSessionInfoLength]
	h.NumVars = h.Slots[slotNumVars]
	h.VarHeaderOffset = h.Slots[slotVarHeaderOffset]
	h.NumBuf = h.Slots[slotNumBuf]
	h.BufLen = h.Slots[slotBufLen]
	h.BufOffset = h.Slots[slotBufOffset]

	return h, nil
}
