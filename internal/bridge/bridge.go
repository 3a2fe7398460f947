// Package bridge serves dispatcher commands over newline-delimited JSON.
//
// Each request line is {"command": "...", "args": [...]}; each response line is
// {"status": "ok"|"error", "command": "...", "result"|"error": ...}.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OCAP2/ibt/internal/dispatcher"
	"github.com/rs/zerolog"
)

const maxLine = 1 << 20

// Request is one decoded request line.
type Request struct {
	Command string            `json:"command"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

// Response is one encoded response line.
type Response struct {
	Status  string `json:"status"`
	Command string `json:"command,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server reads requests from r and writes responses to w.
type Server struct {
	d   *dispatcher.Dispatcher
	log zerolog.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// NewServer returns a server dispatching to d.
func NewServer(d *dispatcher.Dispatcher, log zerolog.Logger) *Server {
	return &Server{d: d, log: log}
}

// Serve handles requests until r is exhausted or ctx is done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.enc = json.NewEncoder(w)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.write(s.handle(line)); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	s.log.Debug().Msg("Bridge input closed")
	return nil
}

func (s *Server) handle(line string) Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return Response{Status: "error", Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if req.Command == "" {
		return Response{Status: "error", Error: "missing command"}
	}

	args := make([]string, len(req.Args))
	for i, raw := range req.Args {
		args[i] = argString(raw)
	}

	result, err := s.d.Dispatch(dispatcher.Event{Command: req.Command, Args: args})
	if err != nil {
		return Response{Status: "error", Command: req.Command, Error: err.Error()}
	}
	return Response{Status: "ok", Command: req.Command, Result: result}
}

// argString renders a JSON string argument unquoted and any other value as
// its literal JSON text.
func argString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (s *Server) write(resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(resp)
}
