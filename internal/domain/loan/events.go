package loan

import (
	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"

	"gorm.io/datatypes"
)

// Event names a notification-producing transition.
type Event string

const (
	EventSubmit         Event = "submit"
	EventApproval       Event = "approval"
	EventWarehouse      Event = "warehouse"
	EventExtendRequest  Event = "extend_request"
	EventExtendDecision Event = "extend_decision"
	EventReturnRequest  Event = "return_request"
	EventReturnDecision Event = "return_decision"
	EventReminder       Event = "reminder"
)

var events = []Event{
	EventSubmit, EventApproval, EventWarehouse,
	EventExtendRequest, EventExtendDecision,
	EventReturnRequest, EventReturnDecision, EventReminder,
}

// ParseEvent accepts the event names as stored in logs and metrics.
func ParseEvent(s string) (Event, error) {
	for _, e := range events {
		if string(e) == s {
			return e, nil
		}
	}
	return "", failure.Invalid("event", "unknown notification event "+s)
}

// NeedsRef reports whether the event's ledger lives on a sub-record.
func (e Event) NeedsRef() bool {
	switch e {
	case EventSubmit, EventApproval, EventWarehouse:
		return false
	}
	return true
}

// LedgerSlot addresses one ledger on a loan. Ref is the extend/return entry
// id or the reminder key for events that live on a sub-record.
type LedgerSlot struct {
	Event Event
	Ref   string
}

// UpdateLedger applies fn to the ledger addressed by slot and reports the
// column that now needs writing.
func (l *Loan) UpdateLedger(slot LedgerSlot, fn func(*ledger.Ledger)) (string, error) {
	switch slot.Event {
	case EventSubmit:
		led := l.SubmitNotifications.Data()
		fn(&led)
		l.SubmitNotifications = datatypes.NewJSONType(led)
		return "submit_notifications", nil
	case EventApproval:
		led := l.ApprovalNotifications.Data()
		fn(&led)
		l.ApprovalNotifications = datatypes.NewJSONType(led)
		return "approval_notifications", nil
	case EventWarehouse:
		led := l.WarehouseNotifications.Data()
		fn(&led)
		l.WarehouseNotifications = datatypes.NewJSONType(led)
		return "warehouse_notifications", nil
	case EventExtendRequest, EventExtendDecision:
		h := l.Extends().Clone()
		i := h.indexOf(slot.Ref)
		if i < 0 {
			return "", failure.NotFound("extension request", slot.Ref)
		}
		if slot.Event == EventExtendRequest {
			fn(&h[i].RequestNotifications)
		} else {
			fn(&h[i].DecisionNotifications)
		}
		l.SetExtends(h)
		return "extend_status", nil
	case EventReturnRequest, EventReturnDecision:
		h := l.Returns().Clone()
		i := h.indexOf(slot.Ref)
		if i < 0 {
			return "", failure.NotFound("return request", slot.Ref)
		}
		if slot.Event == EventReturnRequest {
			fn(&h[i].RequestNotifications)
		} else {
			fn(&h[i].DecisionNotifications)
		}
		l.SetReturns(h)
		return "return_request", nil
	case EventReminder:
		r := l.Reminders().Clone()
		e, ok := r[slot.Ref]
		if !ok {
			return "", failure.NotFound("reminder", slot.Ref)
		}
		fn(&e.Notifications)
		r[slot.Ref] = e
		l.SetReminders(r)
		return "reminder_status", nil
	}
	return "", failure.Invalid("event", "unknown notification event "+string(slot.Event))
}

// LedgerAt returns a copy of the ledger addressed by slot.
func (l *Loan) LedgerAt(slot LedgerSlot) (ledger.Ledger, error) {
	var out ledger.Ledger
	cp := l.Clone()
	_, err := cp.UpdateLedger(slot, func(led *ledger.Ledger) { out = led.Clone() })
	return out, err
}
