package orders

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRejected Status = "rejected"
	StatusVoided   Status = "voided"
)

// MaxHistory caps Record.History; older entries are dropped first.
const MaxHistory = 20

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusRejected, StatusVoided:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Record is the reconciled state of one order. History is newest first.
type Record struct {
	Reference        string         `json:"reference"`
	Status           Status         `json:"status"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	History          []HistoryEntry `json:"history"`
	VerificationCode string         `json:"verificationCode"`
	Items            []string       `json:"items"`
}

func newRecord(ref, code string, now time.Time) Record {
	return Record{
		Reference:        ref,
		Status:           StatusPending,
		UpdatedAt:        now,
		History:          []HistoryEntry{{Status: StatusPending, UpdatedAt: now}},
		VerificationCode: code,
		Items:            []string{},
	}
}

// apply sets the status and unshifts a history entry, trimming to MaxHistory.
func (r *Record) apply(st Status, now time.Time) {
	r.Status = st
	r.UpdatedAt = now

	h := make([]HistoryEntry, 0, min(len(r.History)+1, MaxHistory))
	h = append(h, HistoryEntry{Status: st, UpdatedAt: now})
	for _, e := range r.History {
		if len(h) == MaxHistory {
			break
		}
		h = append(h, e)
	}
	r.History = h
}

// Clone returns a deep copy so callers never share slices with a store.
func (r Record) Clone() Record {
	out := r
	out.History = append([]HistoryEntry(nil), r.History...)
	out.Items = append([]string(nil), r.Items...)
	if out.Items == nil {
		out.Items = []string{}
	}
	if out.History == nil {
		out.History = []HistoryEntry{}
	}
	return out
}

// NormalizeReference trims surrounding whitespace; every lookup and
// mutation goes through it.
func NormalizeReference(ref string) string {
	return strings.TrimSpace(ref)
}
