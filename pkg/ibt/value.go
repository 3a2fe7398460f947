package ibt

// Value is one decoded channel value. Data is rendered as text so every type
// crosses process boundaries the same way.
type Value struct {
	Data     string `json:"data"`
	Unit     string `json:"unit"`
	DataType uint32 `json:"data_type"`
}

// Sample maps channel name to its value for one record. An empty Sample means
// there was no complete record at the requested index.
type Sample map[string]Value

// Empty reports whether s holds no channels.
func (s Sample) Empty() bool {
	return len(s) == 0
}
