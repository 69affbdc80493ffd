// Package audit records every outbound language-model invocation for the
// downstream compliance logger. Persistence and hash-chaining live in that
// collaborator; this package only guarantees complete, correctly attributed
// records.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record captures one LLM invocation
type Record struct {
	CorrelationID    string    `json:"correlation_id"`
	Sequence         int       `json:"sequence"` // Monotonic per recorder
	Operation        string    `json:"operation"`
	Model            string    `json:"model"`
	Prompt           string    `json:"prompt"`
	Response         string    `json:"response"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Err              string    `json:"error,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Recorder receives one record per LLM call, synchronously
type Recorder interface {
	Record(rec Record)
}

// NewCorrelationID returns a fresh correlation id for one outbound call.
// Each concurrent worker must obtain its own; sharing one across workers
// corrupts attribution.
func NewCorrelationID() string {
	return uuid.NewString()
}

// MemoryRecorder is an append-only in-process recorder. The call counter and
// the record list are guarded by one mutex around the full read-modify-write
// cycle so concurrent workers cannot lose updates.
type MemoryRecorder struct {
	mu      sync.Mutex
	seq     int
	records []Record
}

// NewMemoryRecorder creates an empty recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends a record, assigning the next sequence number
func (m *MemoryRecorder) Record(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.Sequence = m.seq
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
}

// Records returns a copy of all records in append order
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// CallCount returns the number of recorded invocations
func (m *MemoryRecorder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// NopRecorder discards all records
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(Record) {}
