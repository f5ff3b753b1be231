package payments

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRecorderCapacity bounds the in-memory audit log.
const DefaultRecorderCapacity = 50

// EventRecord is one accepted webhook as kept for support lookups. It is
// diagnostic only and never decides order status.
type EventRecord struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Payload    map[string]any `json:"payload"`
}

// EventRecorder is a fixed-capacity ring of recent events.
type EventRecorder struct {
	mu    sync.Mutex
	buf   []EventRecord
	next  int
	full  bool
	now   func() time.Time
	newID func() string
}

func NewEventRecorder(capacity int) *EventRecorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &EventRecorder{
		buf:   make([]EventRecord, capacity),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record appends ev, overwriting the oldest entry once full, and returns
// the stored copy with ID and ReceivedAt filled in.
func (r *EventRecorder) Record(ev BoldEvent) EventRecord {
	rec := EventRecord{
		ID:         r.newID(),
		Type:       ev.Type,
		Reference:  ev.Reference,
		ReceivedAt: r.now(),
		Payload:    ev.Payload,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return rec
}

// List returns the stored events newest first.
func (r *EventRecorder) List() []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]EventRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// ByReference filters List to one order reference.
func (r *EventRecorder) ByReference(ref string) []EventRecord {
	out := []EventRecord{}
	for _, e := range r.List() {
		if e.Reference == ref {
			out = append(out, e)
		}
	}
	return out
}

func (r *EventRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
