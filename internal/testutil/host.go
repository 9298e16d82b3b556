package testutil

import (
	"bytes"
	"log/slog"
	"sync"
)

// RecordingHost is an engine.Host that records every outcome it receives.
// A correct trampoline produces exactly one per call.
type RecordingHost struct {
	mu      sync.Mutex
	args    []byte
	replies [][]byte
	traps   []string
}

// NewRecordingHost creates a host serving args.
func NewRecordingHost(args []byte) *RecordingHost {
	return &RecordingHost{args: args}
}

// ArgData returns the argument bytes.
func (h *RecordingHost) ArgData() []byte {
	return h.args
}

// Reply records a success response.
func (h *RecordingHost) Reply(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies = append(h.replies, append([]byte(nil), data...))
}

// Trap records an abort message.
func (h *RecordingHost) Trap(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.traps = append(h.traps, message)
}

// Replies returns every recorded reply.
func (h *RecordingHost) Replies() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.replies...)
}

// Traps returns every recorded trap message.
func (h *RecordingHost) Traps() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.traps...)
}

// Outcomes returns how many outcomes were delivered.
func (h *RecordingHost) Outcomes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.replies) + len(h.traps)
}

// CaptureLogger returns a JSON logger at debug level writing into a buffer.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
