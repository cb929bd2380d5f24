// Package trace records a run's event stream to an append-only NDJSON
// file and replays it back, independent of the engine that produced it.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/relaykit/chainforge/pkg/event"
)

// Writer appends Events to an NDJSON stream, one JSON object per line.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *json.Encoder
	secrets []string // env var names whose values are redacted from Message/Cause
}

// NewWriter wraps an io.Writer as a trace sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: json.NewEncoder(w)}
}

// NewFileWriter opens (creating if needed) path for append and wraps it.
func NewFileWriter(path string) (*Writer, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewWriter(f), f, nil
}

// SetSecrets configures env var names whose values get replaced with
// "<REDACTED>" in recorded Message and Cause fields.
func (w *Writer) SetSecrets(envVars []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.secrets = envVars
}

// Record appends a single event.
func (w *Writer) Record(ev event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev.Message = w.redact(ev.Message)
	ev.Cause = w.redact(ev.Cause)
	return w.enc.Encode(ev)
}

// RecordAll drains ch, recording every event as it arrives, and returns
// once the channel closes. A write error does not stop the drain: later
// events are still recorded, and the first write error is returned.
func (w *Writer) RecordAll(ch <-chan event.Event) error {
	var firstErr error
	for ev := range ch {
		if err := w.Record(ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *Writer) redact(s string) string {
	for _, envVar := range w.secrets {
		val := os.Getenv(envVar)
		if val != "" {
			s = strings.ReplaceAll(s, val, "<REDACTED>")
		}
	}
	return s
}

// ReadFile loads every recorded event from an NDJSON trace file in order.
func ReadFile(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes every recorded event from an NDJSON stream in order.
func Read(r io.Reader) ([]event.Event, error) {
	var events []event.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return events, nil
}
