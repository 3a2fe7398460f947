package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/OCAP2/ibt/internal/catalog"
	"github.com/OCAP2/ibt/internal/export"
	"github.com/OCAP2/ibt/internal/influx"
	"github.com/OCAP2/ibt/internal/settings"
	"github.com/OCAP2/ibt/pkg/ibt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCaptureNotFound is returned for handles that are not open.
var ErrCaptureNotFound = errors.New("capture not open")

// Dependencies holds everything the handlers need. Optional parts may be nil.
type Dependencies struct {
	Settings        *settings.Store
	Catalog         *catalog.Catalog
	Influx          *influx.Manager
	TelemetryDir    string
	ExportDir       string
	Compress        bool
	IdentityChannel string
	Logger          zerolog.Logger
}

// Opened is the result of opening a capture.
type Opened struct {
	Handle    string       `json:"handle"`
	Path      string       `json:"path"`
	Header    ibt.Header   `json:"header"`
	Metadata  ibt.Metadata `json:"metadata"`
	Session   string       `json:"session"`
	Variables []ibt.VarDef `json:"variables"`
}

// openCapture is one entry of the open captures table. Reads hold mu for
// reading; cursor moves and Close hold it for writing. closed is set once the
// file is released.
type openCapture struct {
	mu      sync.RWMutex
	capture *ibt.Capture
	cursor  ibt.Cursor
	closed  bool
}

// Service provides handler methods for the caller-facing commands
type Service struct {
	deps Dependencies
	log  zerolog.Logger

	mu   sync.RWMutex
	open map[string]*openCapture
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.IdentityChannel == "" {
		deps.IdentityChannel = "SessionTick"
	}
	return &Service{
		deps: deps,
		log:  deps.Logger,
		open: make(map[string]*openCapture),
	}
}

// TelemetryDir returns the directory listed when no directory is given: the
// stored setting when one exists, else the configured directory.
func (s *Service) TelemetryDir() string {
	if s.deps.Settings != nil {
		if dir, err := s.deps.Settings.Get(settings.DefaultTelemetryPathKey); err == nil && dir != "" {
			return dir
		}
	}
	return s.deps.TelemetryDir
}

// ListDir returns the entry names of dir, or of TelemetryDir when dir is empty.
func (s *Service) ListDir(dir string) ([]string, error) {
	if dir == "" {
		dir = s.TelemetryDir()
	}
	return ibt.ListCaptures(dir)
}

// Open decodes the capture at path and registers it under a new handle.
func (s *Service) Open(path string) (Opened, error) {
	if path == "" {
		return Opened{}, errors.New("path is required")
	}
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(s.TelemetryDir(), path)
		}
	}

	c, err := ibt.Open(path,
		ibt.WithLogger(s.log),
		ibt.WithIdentityChannel(s.deps.IdentityChannel),
	)
	if err != nil {
		return Opened{}, err
	}

	if s.deps.Catalog != nil {
		if _, err := s.deps.Catalog.Upsert(c); err != nil {
			s.log.Warn().Err(err).Str("path", c.Path).Msg("Failed to catalog capture")
		}
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.open[handle] = &openCapture{capture: c}
	s.mu.Unlock()

	s.log.Info().Str("handle", handle).Str("path", c.Path).Int("vars", len(c.Vars)).Msg("Capture opened")

	return Opened{
		Handle:    handle,
		Path:      c.Path,
		Header:    c.Header,
		Metadata:  c.Metadata,
		Session:   c.Session,
		Variables: c.Vars,
	}, nil
}

func (s *Service) get(handle string) (*openCapture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	oc, ok := s.open[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, handle)
	}
	return oc, nil
}

// acquire locks the capture behind handle, for writing when exclusive is set,
// and returns the matching unlock.
func (s *Service) acquire(handle string, exclusive bool) (*openCapture, func(), error) {
	oc, err := s.get(handle)
	if err != nil {
		return nil, nil, err
	}

	lock, unlock := oc.mu.RLock, oc.mu.RUnlock
	if exclusive {
		lock, unlock = oc.mu.Lock, oc.mu.Unlock
	}
	lock()
	if oc.closed {
		unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, handle)
	}
	return oc, unlock, nil
}

// Record decodes the record at index without moving the handle's cursor.
func (s *Service) Record(handle string, index uint32) (ibt.Sample, error) {
	oc, unlock, err := s.acquire(handle, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return oc.capture.Sampler.Record(index)
}

// Next decodes the record at the handle's cursor and advances it.
func (s *Service) Next(handle string) (ibt.Sample, error) {
	oc, unlock, err := s.acquire(handle, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sample, next, err := oc.capture.Sampler.Next(oc.cursor)
	if err != nil {
		return nil, err
	}
	oc.cursor = next
	return sample, nil
}

// Rewind moves the handle's cursor back to the first record.
func (s *Service) Rewind(handle string) error {
	oc, unlock, err := s.acquire(handle, true)
	if err != nil {
		return err
	}
	oc.cursor = 0
	unlock()
	return nil
}

// All decodes every record keyed by the identity channel.
func (s *Service) All(handle string) (map[string]ibt.Sample, error) {
	oc, unlock, err := s.acquire(handle, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return oc.capture.Sampler.All()
}

// Close releases the capture behind handle.
func (s *Service) Close(handle string) error {
	s.mu.Lock()
	oc, ok := s.open[handle]
	delete(s.open, handle)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaptureNotFound, handle)
	}

	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.closed = true
	s.log.Debug().Str("handle", handle).Msg("Capture closed")
	return oc.capture.Close()
}

// CloseAll releases every open capture.
func (s *Service) CloseAll() {
	for _, h := range s.Handles() {
		if err := s.Close(h); err != nil {
			s.log.Warn().Err(err).Str("handle", h).Msg("Failed to close capture")
		}
	}
}

// Handles lists the open handles in order.
func (s *Service) Handles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.open))
	for h := range s.open {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// ExportJSON writes the capture behind handle to the export directory.
func (s *Service) ExportJSON(handle string) (string, error) {
	oc, unlock, err := s.acquire(handle, false)
	if err != nil {
		return "", err
	}
	defer unlock()

	path, err := export.WriteCapture(oc.capture, s.deps.ExportDir, s.deps.Compress)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("handle", handle).Str("output", path).Msg("Capture exported")
	return path, nil
}

// ExportInflux writes every record of the capture behind handle to InfluxDB.
func (s *Service) ExportInflux(ctx context.Context, handle string) (int, error) {
	if s.deps.Influx == nil {
		return 0, errors.New("influx export is not configured")
	}
	oc, unlock, err := s.acquire(handle, false)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return s.deps.Influx.ExportCapture(ctx, oc.capture)
}

func (s *Service) settingsStore() (*settings.Store, error) {
	if s.deps.Settings == nil {
		return nil, errors.New("settings store is not configured")
	}
	return s.deps.Settings, nil
}

func parseIndex(arg string) (uint32, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid record index %q: %w", arg, err)
	}
	return uint32(n), nil
}
