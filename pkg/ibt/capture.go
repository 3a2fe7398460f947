package ibt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Capture is a decoded telemetry file with a sampler bound to its record region.
type Capture struct {
	Path     string   `json:"path"`
	Header   Header   `json:"header"`
	Metadata Metadata `json:"metadata"`
	Session  string   `json:"session"`
	Vars     []VarDef `json:"variable_defs"`

	Sampler *Sampler `json:"-"`
}

// Decode parses the fixed regions of prefix and binds a Sampler to records.
// prefix must hold at least everything up to the end of the variable table and the
// session block; records is read positionally for the sample region.
func Decode(prefix []byte, records io.ReaderAt, opts ...Option) (*Capture, error) {
	return decode("", prefix, records, opts)
}

func decode(path string, prefix []byte, records io.ReaderAt, opts []Option) (*Capture, error) {
	o := newOptions(opts)
	fail := func(stage Stage, err error) (*Capture, error) {
		return nil, &DecodeError{Stage: stage, Path: path, Err: err}
	}

	header, err := ParseHeader(prefix)
	if err != nil {
		return fail(StageHeader, err)
	}

	if len(prefix) < MetadataOffset+MetadataSize {
		return fail(StageMetadata, fmt.Errorf("metadata needs %d bytes, have %d: %w",
			MetadataOffset+MetadataSize, len(prefix), ErrTruncated))
	}
	metadata, err := ParseMetadata(prefix[MetadataOffset : MetadataOffset+MetadataSize])
	if err != nil {
		return fail(StageMetadata, err)
	}

	session, err := ParseSessionInfo(prefix, header.SessionInfoOffset, header.SessionInfoLength)
	if err != nil {
		return fail(StageSession, err)
	}

	vars, err := ParseVarTable(prefix, header.VarHeaderOffset, header.NumVars)
	if err != nil {
		return fail(StageVars, err)
	}

	sampler, err := NewSampler(records, header.BufOffset, header.BufLen, vars, opts...)
	if err != nil {
		return fail(StageSampler, err)
	}

	o.logger.Debug().
		Str("path", path).
		Uint32("version", header.Version).
		Uint32("tickRate", header.TickRate).
		Int("vars", len(vars)).
		Uint32("recordLen", header.BufLen).
		Msg("Telemetry file parsed")

	return &Capture{
		Path:     path,
		Header:   header,
		Metadata: metadata,
		Session:  session,
		Vars:     vars,
		Sampler:  sampler,
	}, nil
}

// Open reads and decodes the capture at path. The whole file is read once for the
// fixed regions, and a second handle is kept open for positional sample reads.
// Close the returned Capture to release it.
func Open(path string, opts ...Option) (*Capture, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &DecodeError{Stage: StageRead, Path: path, Err: err}
	}

	contents, err := os.ReadFile(abs)
	if err != nil {
		return nil, &DecodeError{Stage: StageRead, Path: abs, Err: err}
	}

	f, err := openRecordFile(abs)
	if err != nil {
		return nil, &DecodeError{Stage: StageRead, Path: abs, Err: err}
	}

	c, err := decode(abs, contents, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the sampler's file handle.
func (c *Capture) Close() error {
	if c.Sampler == nil {
		return nil
	}
	return c.Sampler.Close()
}

// recordFile is an *os.File that reports its size to the sampler.
type recordFile struct {
	*os.File
	size int64
}

func (f *recordFile) Size() int64 {
	return f.size
}

func openRecordFile(path string) (*recordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &recordFile{File: f, size: info.Size()}, nil
}

// ListCaptures returns the names of the entries in dir, sorted by name.
func ListCaptures(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
