// Package sessioninfo parses the YAML session text stored in a capture.
package sessioninfo

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Info is the parsed session document.
type Info map[string]any

// Clean trims the bytes surrounding the YAML document: the leading separator
// byte the reader keeps, and trailing NUL padding already replaced by '?'.
func Clean(text string) string {
	if i := strings.Index(text, "---"); i >= 0 {
		text = text[i:]
	} else {
		text = strings.TrimLeftFunc(text, func(r rune) bool {
			return !isLetter(r)
		})
	}
	return strings.TrimRight(text, "?\x00 \t\r\n")
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// Parse decodes the session text into a generic document.
func Parse(text string) (Info, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(Clean(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse session info: %w", err)
	}
	if raw == nil {
		return Info{}, nil
	}
	return Info(raw), nil
}

// Lookup walks nested maps along path.
func (i Info) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(i)
	for _, key := range path {
		var m map[string]any
		switch v := cur.(type) {
		case map[string]any:
			m = v
		case Info:
			m = v
		default:
			return nil, false
		}
		next, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// TrackName returns WeekendInfo.TrackName, or "" when absent.
func (i Info) TrackName() string {
	v, ok := i.Lookup("WeekendInfo", "TrackName")
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// TrackName parses text and returns its track name, or "" when the text
// does not parse.
func TrackName(text string) string {
	info, err := Parse(text)
	if err != nil {
		return ""
	}
	return info.TrackName()
}
