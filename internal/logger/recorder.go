package logger

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Entry is a single structured log line captured by a Recorder.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Recorder is a Logger that keeps entries in memory so tests can assert on
// structured outcomes instead of formatted text.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(level Level, msg string, args []any) {
	fields := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i++ {
		if a, ok := args[i].(slog.Attr); ok {
			if a.Key != "" {
				fields[a.Key] = a.Value.Any()
			}
			continue
		}
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		fields[fmt.Sprint(args[i])] = args[i+1]
		i++
	}

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Fields: fields})
	r.mu.Unlock()
}

func (r *Recorder) Debug(msg string, args ...any) { r.record(LevelDebug, msg, args) }
func (r *Recorder) Info(msg string, args ...any)  { r.record(LevelInfo, msg, args) }
func (r *Recorder) Warn(msg string, args ...any)  { r.record(LevelWarn, msg, args) }
func (r *Recorder) Error(msg string, args ...any) { r.record(LevelError, msg, args) }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Filter returns the entries at the given level whose message contains substr.
func (r *Recorder) Filter(level Level, substr string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether any entry matches level and substr.
func (r *Recorder) Has(level Level, substr string) bool {
	return len(r.Filter(level, substr)) > 0
}

// Reset discards all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
