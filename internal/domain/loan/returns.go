package loan

import (
	"strings"
	"time"

	"assetloan-backend/internal/domain/ledger"
)

const (
	ReturnRequested = "returnRequested"
	ReturnReturned  = "returned"
	ReturnRejected  = "returnRejected"
)

// activeReturnStatuses are the entry states that still await a decision.
// "submitted", "pending" and "approved" come from legacy rows.
var activeReturnStatuses = map[string]bool{
	strings.ToLower(ReturnRequested): true,
	"submitted":                      true,
	"pending":                        true,
	"approved":                       true,
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

type ReturnEntry struct {
	ID                    string          `json:"id"`
	RequestedAt           time.Time       `json:"requestedAt"`
	RequestedBy           string          `json:"requestedBy"`
	Note                  string          `json:"note"`
	PhotoResults          []Attachment    `json:"photoResults"`
	Status                string          `json:"status"`
	PreviousStatus        string          `json:"previousStatus,omitempty"`
	ProcessedAt           *time.Time      `json:"processedAt,omitempty"`
	ProcessedBy           string          `json:"processedBy,omitempty"`
	DecisionNote          string          `json:"decisionNote,omitempty"`
	Condition             string          `json:"condition,omitempty"`
	History               []HistoryRecord `json:"history"`
	RequestNotifications  ledger.Ledger   `json:"requestNotifications"`
	DecisionNotifications ledger.Ledger   `json:"decisionNotifications"`
}

func (e ReturnEntry) Active() bool { return activeReturnStatuses[strings.ToLower(e.Status)] }

func (e ReturnEntry) clone() ReturnEntry {
	out := e
	out.ProcessedAt = cloneTime(e.ProcessedAt)
	out.PhotoResults = append([]Attachment(nil), e.PhotoResults...)
	out.History = append([]HistoryRecord(nil), e.History...)
	out.RequestNotifications = e.RequestNotifications.Clone()
	out.DecisionNotifications = e.DecisionNotifications.Clone()
	return out
}

// ReturnHistory is append-only and accepts the legacy single-object shape.
type ReturnHistory []ReturnEntry

func (h *ReturnHistory) UnmarshalJSON(b []byte) error {
	entries, err := asHistory[ReturnEntry](b)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = legacyID("return", i)
		}
	}
	*h = entries
	return nil
}

func (h ReturnHistory) Clone() ReturnHistory {
	if h == nil {
		return nil
	}
	out := make(ReturnHistory, len(h))
	for i, e := range h {
		out[i] = e.clone()
	}
	return out
}

func (h ReturnHistory) Append(e ReturnEntry) ReturnHistory {
	out := h.Clone()
	return append(out, e)
}

func (h ReturnHistory) Latest() *ReturnEntry {
	if len(h) == 0 {
		return nil
	}
	e := h[len(h)-1]
	return &e
}

// PickActive scans from the most recent entry backwards for one that still
// awaits a decision.
func (h ReturnHistory) PickActive() *ReturnEntry {
	i := h.activeIndex()
	if i < 0 {
		return nil
	}
	e := h[i]
	return &e
}

func (h ReturnHistory) activeIndex() int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Active() {
			return i
		}
	}
	return -1
}

func (h ReturnHistory) indexOf(id string) int {
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
