package loan

import (
	"encoding/json"
	"testing"

	"assetloan-backend/internal/domain/ledger"
)

func TestExtendHistory_DecodesLegacyShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"null", `null`, 0},
		{"array", `[{"id":"a","status":"ExtendApproved","approveStatus":"approved"},{"id":"b","status":"ExtendRequested"}]`, 2},
		{"single object", `{"id":"a","status":"ExtendRequested","approveStatus":""}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h ExtendHistory
			if err := json.Unmarshal([]byte(tt.raw), &h); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(h) != tt.want {
				t.Fatalf("len = %d, want %d", len(h), tt.want)
			}
		})
	}
}

func TestApproveStatus_FoldsLegacySpellings(t *testing.T) {
	var e ExtendEntry
	if err := json.Unmarshal([]byte(`{"approveStatus":"Disetujui"}`), &e); err != nil {
		t.Fatal(err)
	}
	if e.ApproveStatus != ApproveApproved || !e.Decided() {
		t.Fatalf("approveStatus = %q", e.ApproveStatus)
	}
	if ParseApproveStatus("ditolak") != ApproveRejected || ParseApproveStatus("  ") != ApproveNone {
		t.Fatal("unexpected fold")
	}
	if got := ParseApproveStatus("escalated"); got == ApproveNone {
		t.Fatal("unknown non-empty decision must still count as decided")
	}
}

func TestPickActive(t *testing.T) {
	h := ExtendHistory{
		{ID: "a", ApproveStatus: ApproveApproved},
		{ID: "b"},
		{ID: "c", ApproveStatus: ApproveRejected},
	}
	if got := h.PickActive(); got == nil || got.ID != "b" {
		t.Fatalf("PickActive = %+v", got)
	}
	if got := h.LastApproved(); got == nil || got.ID != "a" {
		t.Fatalf("LastApproved = %+v", got)
	}

	var r ReturnHistory
	if err := json.Unmarshal([]byte(`{"id":"r1","status":"submitted"}`), &r); err != nil {
		t.Fatal(err)
	}
	if got := r.PickActive(); got == nil || got.ID != "r1" {
		t.Fatalf("legacy return entry should be active: %+v", got)
	}
}

func TestReturnHistory_LegacyEntriesWithoutIDs(t *testing.T) {
	var h ReturnHistory
	raw := `[{"status":"returnRejected","note":"first"},{"status":"pending","note":"second"}]`
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		t.Fatal(err)
	}
	if h[0].ID == "" || h[1].ID == "" || h[0].ID == h[1].ID {
		t.Fatalf("ids not backfilled: %q %q", h[0].ID, h[1].ID)
	}
	var again ReturnHistory
	_ = json.Unmarshal([]byte(raw), &again)
	if again[1].ID != h[1].ID {
		t.Fatal("backfilled ids must be stable across reads")
	}

	l := borrowed(t, testMachine())
	l.SetReturns(h)
	next, e, err := testMachine().DecideReturn(l, Decision{Action: ActionApprove}, admin)
	if err != nil {
		t.Fatalf("DecideReturn: %v", err)
	}
	got := next.Returns()
	if e.Note != "second" || got[1].Status != ReturnReturned {
		t.Fatalf("decided %q, history[1] = %s", e.Note, got[1].Status)
	}
	if got[0].Status != ReturnRejected || got[0].ProcessedAt != nil {
		t.Fatalf("earlier entry changed: %+v", got[0])
	}

	if _, err := next.UpdateLedger(LedgerSlot{Event: EventReturnDecision, Ref: e.ID}, func(led *ledger.Ledger) {
		led.MergePending(ledger.Entry{Audience: ledger.AudienceBorrower, Email: "a@x.com"})
	}); err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}
	got = next.Returns()
	if got[0].DecisionNotifications.Borrower != nil || got[1].DecisionNotifications.Borrower == nil {
		t.Fatal("decision ledger written to the wrong entry")
	}
}

func TestDecideReturn_EntryWithoutIDGetsOne(t *testing.T) {
	l := borrowed(t, testMachine())
	l.SetReturns(ReturnHistory{{Status: "submitted", Note: "legacy"}})
	_, e, err := testMachine().DecideReturn(l, Decision{Action: ActionReject, Note: "dented"}, admin)
	if err != nil {
		t.Fatalf("DecideReturn: %v", err)
	}
	if e.ID == "" || e.Status != ReturnRejected {
		t.Fatalf("entry = %+v", e)
	}
}

func TestUpdateLedger_EmptyRefIsNotFound(t *testing.T) {
	l := borrowed(t, testMachine())
	l.SetReturns(ReturnHistory{{Status: "submitted"}})
	if _, err := l.UpdateLedger(LedgerSlot{Event: EventReturnRequest}, func(*ledger.Ledger) {}); err == nil {
		t.Fatal("empty ref must not match an id-less entry")
	}
}
