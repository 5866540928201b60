package loan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"assetloan-backend/internal/domain/ledger"
)

const (
	ExtendRequested = "ExtendRequested"
	ExtendApproved  = "ExtendApproved"
	ExtendRejected  = "ExtendRejected"
)

// ApproveStatus is the decision on an extend entry. Empty means undecided.
type ApproveStatus string

const (
	ApproveNone     ApproveStatus = ""
	ApproveApproved ApproveStatus = "approved"
	ApproveRejected ApproveStatus = "rejected"
)

// ParseApproveStatus folds the legacy spellings into the closed set. Anything
// unrecognized but non-empty is kept as-is so it still counts as decided.
func ParseApproveStatus(s string) ApproveStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ApproveNone
	case "approved", "approve", "disetujui":
		return ApproveApproved
	case "rejected", "reject", "ditolak":
		return ApproveRejected
	}
	return ApproveStatus(strings.TrimSpace(s))
}

func (s *ApproveStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseApproveStatus(raw)
	return nil
}

type HistoryRecord struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processedAt"`
	ProcessedBy string    `json:"processedBy"`
	Note        string    `json:"note,omitempty"`
}

type ExtendEntry struct {
	ID                    string          `json:"id"`
	Note                  string          `json:"note"`
	RequestedReturnDate   *time.Time      `json:"requestedReturnDate"`
	RequestAt             time.Time       `json:"requestAt"`
	RequestBy             string          `json:"requestBy"`
	Status                string          `json:"status"`
	ApproveAt             *time.Time      `json:"approveAt,omitempty"`
	ApproveBy             string          `json:"approveBy,omitempty"`
	ApproveNote           string          `json:"approveNote,omitempty"`
	ApproveStatus         ApproveStatus   `json:"approveStatus"`
	PreviousStatus        string          `json:"previousStatus,omitempty"`
	History               []HistoryRecord `json:"history"`
	RequestNotifications  ledger.Ledger   `json:"requestNotifications"`
	DecisionNotifications ledger.Ledger   `json:"decisionNotifications"`
}

func (e ExtendEntry) Decided() bool { return e.ApproveStatus != ApproveNone }

func (e ExtendEntry) clone() ExtendEntry {
	out := e
	out.RequestedReturnDate = cloneTime(e.RequestedReturnDate)
	out.ApproveAt = cloneTime(e.ApproveAt)
	out.History = append([]HistoryRecord(nil), e.History...)
	out.RequestNotifications = e.RequestNotifications.Clone()
	out.DecisionNotifications = e.DecisionNotifications.Clone()
	return out
}

// ExtendHistory is append-only. Legacy rows stored a single object instead of
// an array; both decode into a history.
type ExtendHistory []ExtendEntry

func (h *ExtendHistory) UnmarshalJSON(b []byte) error {
	entries, err := asHistory[ExtendEntry](b)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = legacyID("extend", i)
		}
	}
	*h = entries
	return nil
}

func (h ExtendHistory) Clone() ExtendHistory {
	if h == nil {
		return nil
	}
	out := make(ExtendHistory, len(h))
	for i, e := range h {
		out[i] = e.clone()
	}
	return out
}

// Append returns a new history with e at the end; h is left untouched.
func (h ExtendHistory) Append(e ExtendEntry) ExtendHistory {
	out := h.Clone()
	return append(out, e)
}

func (h ExtendHistory) Latest() *ExtendEntry {
	if len(h) == 0 {
		return nil
	}
	e := h[len(h)-1]
	return &e
}

// PickActive returns the most recent undecided entry.
func (h ExtendHistory) PickActive() *ExtendEntry {
	for i := len(h) - 1; i >= 0; i-- {
		if !h[i].Decided() {
			e := h[i]
			return &e
		}
	}
	return nil
}

// LastApproved returns the most recent approved entry.
func (h ExtendHistory) LastApproved() *ExtendEntry {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].ApproveStatus == ApproveApproved {
			e := h[i]
			return &e
		}
	}
	return nil
}

func (h ExtendHistory) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range h {
		if h[i].ID == id {
			return i
		}
	}
	return -1
}

// legacyID names an entry stored without an id by its position, which stays
// stable because histories only grow at the end.
func legacyID(kind string, i int) string { return fmt.Sprintf("%s-legacy-%d", kind, i) }

// asHistory decodes either a JSON array, a single JSON object or null.
func asHistory[T any](b []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	}
	var many []T
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, err
	}
	return many, nil
}
