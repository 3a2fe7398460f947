// Package export writes decoded captures to JSON files.
package export

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/ibt/pkg/ibt"
)

// CaptureJSON is the root JSON structure
type CaptureJSON struct {
	File      string       `json:"file"`
	Header    ibt.Header   `json:"header"`
	Metadata  ibt.Metadata `json:"metadata"`
	Session   string       `json:"session"`
	Variables []ibt.VarDef `json:"variables"`
	Records   []ibt.Sample `json:"records"`
}

// Build reads every record of c in order.
func Build(c *ibt.Capture) (CaptureJSON, error) {
	out := CaptureJSON{
		File:      filepath.Base(c.Path),
		Header:    c.Header,
		Metadata:  c.Metadata,
		Session:   c.Session,
		Variables: c.Vars,
		Records:   make([]ibt.Sample, 0),
	}
	if c.Sampler == nil {
		return out, nil
	}

	var cur ibt.Cursor
	for {
		sample, next, err := c.Sampler.Next(cur)
		if err != nil {
			return out, fmt.Errorf("failed to read record %d: %w", cur, err)
		}
		if sample.Empty() {
			return out, nil
		}
		out.Records = append(out.Records, sample)
		cur = next
	}
}

// FileName returns the export file name for a capture path.
func FileName(capturePath string, compress bool) string {
	name := filepath.Base(capturePath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" || name == "." {
		name = "capture"
	}
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// WriteCapture exports c into dir and returns the written path.
func WriteCapture(c *ibt.Capture, dir string, compress bool) (string, error) {
	data, err := Build(c)
	if err != nil {
		return "", err
	}

	// Ensure output directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, FileName(c.Path, compress))
	if err := writeFile(outputPath, data, compress); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return outputPath, nil
}

// writeFile creates path and encodes data into it. A partially written file is
// removed.
func writeFile(path string, data CaptureJSON, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if compress {
		err = writeGzipJSON(f, data)
	} else {
		err = writeJSON(f, data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}

func writeJSON(w io.Writer, data CaptureJSON) error {
	return json.NewEncoder(w).Encode(data)
}

func writeGzipJSON(w io.Writer, data CaptureJSON) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
