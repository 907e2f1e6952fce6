// internal/collect/jsonl.go
package collect

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"syscall"

	"trts-core/engine"
)

// JSONL streams snapshots as one api.SnapshotV1 JSON line each. One JSONL may
// be shared by a whole sweep: Bind hands out per-run views that tag lines
// with the run ID, and a mutex keeps concurrent lines whole. Broken pipes are
// tolerated so a downstream `head` ends the stream, not the sweep.
type JSONL struct {
	mu  sync.Mutex
	bw  *bufio.Writer
	enc *json.Encoder
}

// NewJSONL wraps out with a 64 KiB buffer.
func NewJSONL(out io.Writer) *JSONL {
	bw := bufio.NewWriterSize(out, 64<<10)
	return &JSONL{bw: bw, enc: json.NewEncoder(bw)}
}

// Bind returns a Collector that writes this stream's lines under runID.
// Closing a bound view is a no-op; close the JSONL itself once.
func (j *JSONL) Bind(runID string) Collector {
	return &boundJSONL{stream: j, runID: runID}
}

func (j *JSONL) encode(runID string, s engine.Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(ToAPISnapshot(runID, s)); err != nil {
		if isBrokenPipe(err) {
			return nil
		}
		return err
	}
	return nil
}

// Close flushes the buffer.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.bw.Flush(); err != nil && !isBrokenPipe(err) {
		return err
	}
	return nil
}

type boundJSONL struct {
	stream *JSONL
	runID  string
}

func (b *boundJSONL) Collect(s engine.Snapshot) error { return b.stream.encode(b.runID, s) }
func (b *boundJSONL) Close() error                    { return nil }

// isBrokenPipe reports whether an error is a broken/closed pipe, as seen when
// downstream consumers close early.
func isBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
