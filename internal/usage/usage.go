// Package usage records per-call token accounting. Recording is response-side
// only; no conversation state is kept.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"modelgate/internal/core"
)

// Entry is one recorded exchange.
type Entry struct {
	ID               string    `json:"id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	ResponseID       string    `json:"response_id,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Timestamp        time.Time `json:"timestamp"`
}

// Recorder persists usage entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// NewEntry builds an entry from a canonical response. Returns nil when the
// provider reported no usage.
func NewEntry(provider string, resp *core.ChatResponse) *Entry {
	if resp == nil || resp.Usage == nil {
		return nil
	}
	return &Entry{
		ID:               uuid.New().String(),
		Provider:         provider,
		Model:            resp.Model,
		ResponseID:       resp.ID,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Timestamp:        time.Now().UTC(),
	}
}

// memoryCapacity bounds the in-memory recorder so a long-running process
// without a persistent store does not grow without limit.
const memoryCapacity = 1000

// MemoryRecorder keeps the most recent entries in a fixed-size ring. Used
// when no store is configured and in tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry // ring buffer, len == memoryCapacity once full
	next    int
	count   int
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{entries: make([]Entry, memoryCapacity)}
}

// Record appends the entry, evicting the oldest one once the ring is full.
func (m *MemoryRecorder) Record(_ context.Context, entry *Entry) error {
	if entry == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = *entry
	m.next = (m.next + 1) % len(m.entries)
	if m.count < len(m.entries) {
		m.count++
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > m.count {
		limit = m.count
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

// Close is a no-op for the in-memory recorder.
func (m *MemoryRecorder) Close() error { return nil }
