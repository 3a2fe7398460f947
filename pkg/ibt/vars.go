package ibt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// VarDefSize is the size of one descriptor in the variable table.
const VarDefSize = 144

// descriptor text fields
const (
	nameStart = 16
	descStart = 48
	unitStart = 112
)

// VarType is the wire type of a channel.
type VarType uint8

const (
	TypeChar VarType = iota
	TypeBool
	TypeInt
	TypeBitField
	TypeFloat
	TypeDouble
	TypeUnknown
)

// TypeFromTag maps a raw descriptor tag to its VarType. Unrecognized tags map to TypeUnknown.
func TypeFromTag(tag uint32) VarType {
	if tag >= uint32(TypeUnknown) {
		return TypeUnknown
	}
	return VarType(tag)
}

// Width is the number of bytes one element of the type occupies in a record.
func (t VarType) Width() int {
	switch t {
	case TypeChar, TypeBool:
		return 1
	case TypeInt, TypeBitField, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	case TypeUnknown:
		return 0
	}
	return 0
}

func (t VarType) String() string {
	switch t {
	case TypeChar:
		return "char"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeBitField:
		return "bitfield"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeUnknown:
		return "unknown"
	}
	return "unknown"
}

// decode renders the element at buf[at:] as text. The caller checks bounds.
func (t VarType) decode(buf []byte, at int) string {
	switch t {
	case TypeChar:
		if buf[at] >= utf8.RuneSelf {
			return string(Placeholder)
		}
		return string(rune(buf[at]))
	case TypeBool:
		return strconv.FormatUint(uint64(buf[at]), 10)
	case TypeInt:
		return strconv.FormatInt(int64(int32(Uint32At(buf, at))), 10)
	case TypeBitField:
		return strconv.FormatUint(uint64(Uint32At(buf, at)), 10)
	case TypeFloat:
		return strconv.FormatFloat(float64(Float32At(buf, at)), 'g', -1, 32)
	case TypeDouble:
		return strconv.FormatFloat(Float64At(buf, at), 'g', -1, 64)
	case TypeUnknown:
		return ""
	}
	return ""
}

// VarDef describes one telemetry channel.
type VarDef struct {
	Tag         uint32  `json:"var_type"`
	Type        VarType `json:"-"`
	Offset      uint32  `json:"offset"`
	Count       uint32  `json:"count"`
	CountAsTime uint8   `json:"count_as_time"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
}

// ParseVarTable decodes count descriptors starting at offset. The first descriptor slot
// is padding and is not returned, so count-1 definitions come back.
// Duplicate names are returned as-is.
func ParseVarTable(buf []byte, offset, count uint32) ([]VarDef, error) {
	end := uint64(offset) + uint64(count)*VarDefSize
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("variable table [%d,%d) exceeds %d bytes: %w", offset, end, len(buf), ErrOutOfBounds)
	}
	if count == 0 {
		return nil, nil
	}

	table := buf[offset:end]
	defs := make([]VarDef, 0, count-1)
	for i := 1; i < int(count); i++ {
		defs = append(defs, parseVarDef(table[i*VarDefSize:(i+1)*VarDefSize]))
	}
	return defs, nil
}

func parseVarDef(d []byte) VarDef {
	tag := Uint32At(d, 0)
	return VarDef{
		Tag:         tag,
		Type:        TypeFromTag(tag),
		Offset:      Uint32At(d, 4),
		Count:       Uint32At(d, 8),
		CountAsTime: d[12],
		Name:        fixedString(d[nameStart:descStart]),
		Description: fixedString(d[descStart:unitStart]),
		Unit:        fixedString(d[unitStart:VarDefSize]),
	}
}

// fixedString decodes a null-padded text field. Invalid UTF-8 yields "".
func fixedString(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	return strings.ReplaceAll(string(b), "\x00", "")
}

// Decode renders the channel's scalar value from one record.
// A definition that does not fit inside the record decodes to "".
func (d VarDef) Decode(record []byte) string {
	return d.element(record, 0)
}

// Elements renders every element of an array channel. Elements past the end
// of the record are returned as "".
func (d VarDef) Elements(record []byte) []string {
	n := d.Count
	if n == 0 {
		n = 1
	}
	out := make([]string, n)
	for i := range out {
		out[i] = d.element(record, i)
	}
	return out
}

func (d VarDef) element(record []byte, i int) string {
	w := d.Type.Width()
	if w == 0 {
		return ""
	}
	at := uint64(d.Offset) + uint64(i)*uint64(w)
	if at+uint64(w) > uint64(len(record)) {
		return ""
	}
	return d.Type.decode(record, int(at))
}
