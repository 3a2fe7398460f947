package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/OCAP2/ibt/internal/dispatcher"
	"github.com/OCAP2/ibt/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	d.Register("echo", func(e dispatcher.Event) (any, error) {
		return e.Args, nil
	})
	d.Register("fail", func(e dispatcher.Event) (any, error) {
		return nil, errors.New("boom")
	})
	return NewServer(d, zerolog.Nop())
}

func serve(t *testing.T, input string) []map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, newTestServer(t).Serve(context.Background(), strings.NewReader(input), &out))

	var lines []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestServe_OK(t *testing.T) {
	lines := serve(t, `{"command":"echo","args":["a",2,true]}`+"\n")

	require.Len(t, lines, 1)
	assert.Equal(t, "ok", lines[0]["status"])
	assert.Equal(t, "echo", lines[0]["command"])
	assert.Equal(t, []any{"a", "2", "true"}, lines[0]["result"])
	assert.NotContains(t, lines[0], "error")
}

func TestServe_Errors(t *testing.T) {
	input := strings.Join([]string{
		`{"command":"fail"}`,
		`{"command":"nope"}`,
		`not json`,
		`{"args":[]}`,
	}, "\n")

	lines := serve(t, input)
	require.Len(t, lines, 4)

	assert.Equal(t, "error", lines[0]["status"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "fail", lines[0]["command"])

	assert.Contains(t, lines[1]["error"], "unknown command")
	assert.Contains(t, lines[2]["error"], "invalid request")
	assert.Equal(t, "missing command", lines[3]["error"])
}

func TestServe_SkipsBlankLines(t *testing.T) {
	lines := serve(t, "\n\n"+`{"command":"echo"}`+"\n\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "ok", lines[0]["status"])
}

func TestServe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := newTestServer(t).Serve(ctx, strings.NewReader(`{"command":"echo"}`+"\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
}

func TestArgString(t *testing.T) {
	assert.Equal(t, "x", argString(json.RawMessage(`"x"`)))
	assert.Equal(t, "12", argString(json.RawMessage(`12`)))
	assert.Equal(t, "", argString(json.RawMessage(`null`)))
}
