package bridge

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageDump appends a running transcript of every message that crosses the
// bridge to a file, for debugging a specific client/backend pairing. It is
// enabled by setting MCP_PROXY_DUMP_MESSAGES (spec §6); each forwarded line
// gets its own correlation ID so interleaved client/backend/reply records for
// the same exchange can be picked out of the file.
type MessageDump struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewMessageDump opens (creating if absent, appending if present) the dump
// file at path.
func NewMessageDump(path string) (*MessageDump, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open message dump file: %w", err)
	}
	return &MessageDump{w: f}, nil
}

func (d *MessageDump) Close() error {
	if d == nil || d.w == nil {
		return nil
	}
	return d.w.Close()
}

// NewCorrelationID generates an identifier used to tag the three records
// (client, backend, reply) that belong to a single forwarded message.
func (d *MessageDump) NewCorrelationID() string {
	return uuid.New().String()
}

func (d *MessageDump) record(correlationID, label, line string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	fmt.Fprintf(d.w, "[%d.%03d] (%s) %s: %s\n", now.Unix(), now.Nanosecond()/1_000_000, correlationID, label, line)
	if f, ok := d.w.(interface{ Sync() error }); ok {
		_ = f.Sync()
	}
}

// ClientToProxy records a line received from the MCP client on stdin.
func (d *MessageDump) ClientToProxy(correlationID, line string) {
	d.record(correlationID, "CLIENT → PROXY", line)
}

// BackendToProxy records the backend's reply (or error JSON) for a line.
func (d *MessageDump) BackendToProxy(correlationID, line string) {
	d.record(correlationID, "BACKEND → PROXY", line)
}

// ProxyToClient records exactly what was written back to the client.
func (d *MessageDump) ProxyToClient(correlationID, line string) {
	d.record(correlationID, "PROXY → CLIENT", line)
}
