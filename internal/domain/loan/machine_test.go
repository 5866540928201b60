package loan

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"assetloan-backend/internal/domain/failure"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testMachine() Machine {
	n := 0
	return Machine{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
	}
}

var (
	admin   = Actor{ID: "u-admin", Name: "Ada", Role: RoleAdmin}
	ownerC1 = Actor{ID: "u-mkt", Name: "Mika", Role: RoleMarketing, Companies: []string{"C1"}}
	outside = Actor{ID: "u-x", Name: "Xen", Role: RoleMarketing, Companies: []string{"C9"}}
)

func submitted(t *testing.T, m Machine) *Loan {
	t.Helper()
	l, err := m.Submit(nil, SubmitInput{
		LoanID:        "LN-1",
		BorrowerName:  "Budi",
		BorrowerEmail: "a@x.com",
		EntitasID:     "E1",
		Company:       []string{"C1", " c1 ", "C2"},
		UseDate:       day(2025, 6, 2),
		ReturnDate:    day(2025, 6, 9),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return l
}

func borrowed(t *testing.T, m Machine) *Loan {
	t.Helper()
	l := submitted(t, m)
	l, _, err := m.DecideApproval(l, "", Decision{Action: ActionApprove}, admin)
	if err != nil {
		t.Fatalf("DecideApproval: %v", err)
	}
	l, err = m.ProcessWarehouse(l, Decision{Action: ActionApprove}, admin)
	if err != nil {
		t.Fatalf("ProcessWarehouse: %v", err)
	}
	return l
}

func TestSubmit(t *testing.T) {
	m := testMachine()
	l := submitted(t, m)

	if got := DeriveStatus(l).Status; got != StatusPendingApproval {
		t.Fatalf("status = %s, want PendingApproval", got)
	}
	if !reflect.DeepEqual(l.Companies(), []string{"C1", "C2"}) {
		t.Fatalf("companies not deduplicated: %v", l.Companies())
	}
	if len(l.ApprovalState().Companies) != 2 {
		t.Fatalf("approvals = %+v", l.ApprovalState())
	}
	if l.SubmittedAt == nil || !l.SubmittedAt.Equal(fixedNow) {
		t.Fatalf("submittedAt = %v", l.SubmittedAt)
	}

	if _, err := m.Submit(l, SubmitInput{EntitasID: "E1"}); !errors.Is(err, failure.ErrAlreadyProcessed) {
		t.Fatalf("resubmit err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	m := testMachine()
	tests := []struct {
		name  string
		in    SubmitInput
		field string
	}{
		{"no entitas", SubmitInput{BorrowerEmail: "a@x.com", Company: []string{"C1"}, ReturnDate: day(2025, 1, 2)}, "entitasId"},
		{"no email", SubmitInput{EntitasID: "E1", Company: []string{"C1"}, ReturnDate: day(2025, 1, 2)}, "borrowerEmail"},
		{"no company", SubmitInput{EntitasID: "E1", BorrowerEmail: "a@x.com", Company: []string{" "}, ReturnDate: day(2025, 1, 2)}, "company"},
		{"return before use", SubmitInput{EntitasID: "E1", BorrowerEmail: "a@x.com", Company: []string{"C1"}, UseDate: day(2025, 1, 5), ReturnDate: day(2025, 1, 2)}, "returnDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Submit(nil, tt.in)
			var ve *failure.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want validation on %s", err, tt.field)
			}
		})
	}
}

func TestSubmit_WithoutDatesFallsBackToSubmittedAt(t *testing.T) {
	m := testMachine()
	l, err := m.Submit(nil, SubmitInput{LoanID: "LN-6", BorrowerEmail: "a@x.com", EntitasID: "E1", Company: []string{"C1"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if DeriveStatus(l).Status != StatusPendingApproval {
		t.Fatalf("status = %s", DeriveStatus(l).Status)
	}
	if due := EffectiveReturnDate(l); due == nil || !due.Equal(fixedNow) {
		t.Fatalf("effective return date = %v, want submittedAt", due)
	}
}

func TestSubmit_DraftThenPromote(t *testing.T) {
	m := testMachine()
	draft, err := m.Submit(nil, SubmitInput{LoanID: "LN-D", EntitasID: "E1", IsDraft: true})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if DeriveStatus(draft).Status != StatusDraft || draft.SubmittedAt != nil {
		t.Fatalf("draft = %+v", draft)
	}
	promoted, err := m.Submit(draft, SubmitInput{
		EntitasID: "E1", BorrowerEmail: "a@x.com", Company: []string{"C1"}, ReturnDate: day(2025, 7, 1),
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.LoanID != "LN-D" || DeriveStatus(promoted).Status != StatusPendingApproval {
		t.Fatalf("promoted = %+v", promoted)
	}
	if !draft.IsDraft {
		t.Fatal("promotion mutated the draft snapshot")
	}
}

func TestDecideApproval(t *testing.T) {
	m := testMachine()
	l := submitted(t, m)

	if _, _, err := m.DecideApproval(l, "C1", Decision{Action: ActionApprove}, outside); !errors.Is(err, failure.ErrForbidden) {
		t.Fatalf("outside actor err = %v, want ErrForbidden", err)
	}
	if _, _, err := m.DecideApproval(l, "C1", Decision{Action: ActionReject}, ownerC1); !failure.IsValidation(err) {
		t.Fatalf("reject without reason err = %v", err)
	}

	l1, approved, err := m.DecideApproval(l, "", Decision{Action: ActionApprove}, ownerC1)
	if err != nil || approved {
		t.Fatalf("owner approve: approved=%v err=%v", approved, err)
	}
	if !l1.ApprovalState().Companies["C1"].Approved || l1.ApprovalState().Companies["C2"].Approved {
		t.Fatalf("owner should only decide C1: %+v", l1.ApprovalState())
	}
	if _, _, err := m.DecideApproval(l1, "C1", Decision{Action: ActionApprove}, ownerC1); !errors.Is(err, failure.ErrAlreadyProcessed) {
		t.Fatalf("second decision err = %v", err)
	}

	l2, approved, err := m.DecideApproval(l1, "C2", Decision{Action: ActionApprove}, admin)
	if err != nil || !approved {
		t.Fatalf("admin approve: approved=%v err=%v", approved, err)
	}
	if l2.Warehouse().Status != WarehousePending {
		t.Fatalf("warehouse = %+v", l2.Warehouse())
	}

	rejected, _, err := m.DecideApproval(l, "C2", Decision{Action: ActionReject, Note: "no budget"}, admin)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if DeriveStatus(rejected).Status != StatusRejected {
		t.Fatalf("status = %s", DeriveStatus(rejected).Status)
	}
}

func TestProcessWarehouse(t *testing.T) {
	m := testMachine()
	l := submitted(t, m)
	if _, err := m.ProcessWarehouse(l, Decision{Action: ActionApprove}, admin); !failure.IsValidation(err) {
		t.Fatalf("not yet approved err = %v", err)
	}

	out := borrowed(t, m)
	if !out.IsBorrowed() || out.OutDate == nil {
		t.Fatalf("not borrowed: %+v", out.Warehouse())
	}
	if _, err := m.ProcessWarehouse(out, Decision{Action: ActionApprove}, admin); !errors.Is(err, failure.ErrAlreadyProcessed) {
		t.Fatalf("second warehouse decision err = %v", err)
	}
}

func TestRequestExtension(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)

	if _, _, err := m.RequestExtension(l, ExtendRequestInput{RequestedReturnDate: day(2025, 6, 20)}); !failure.IsValidation(err) {
		t.Fatalf("blank note err = %v", err)
	}
	if _, _, err := m.RequestExtension(l, ExtendRequestInput{Note: "need more"}); !failure.IsValidation(err) {
		t.Fatalf("blank date err = %v", err)
	}

	next, entry, err := m.RequestExtension(l, ExtendRequestInput{Note: "need more", RequestedReturnDate: day(2025, 6, 20), RequestedBy: "Budi"})
	if err != nil {
		t.Fatalf("RequestExtension: %v", err)
	}
	if entry.Status != ExtendRequested || entry.PreviousStatus != string(StatusBorrowed) || len(entry.History) != 1 {
		t.Fatalf("entry = %+v", entry)
	}
	if len(l.Extends()) != 0 || len(next.Extends()) != 1 {
		t.Fatal("input loan was mutated or entry not appended")
	}
	if _, _, err := m.RequestExtension(next, ExtendRequestInput{Note: "again", RequestedReturnDate: day(2025, 6, 25)}); !failure.IsValidation(err) {
		t.Fatalf("pending duplicate err = %v", err)
	}
}

func TestExtension_SecondRequestAfterApprovalAppends(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)
	l, _, _ = m.RequestExtension(l, ExtendRequestInput{Note: "first", RequestedReturnDate: day(2025, 6, 20)})
	l, decided, err := m.DecideExtension(l, Decision{Action: ActionApprove, Note: "ok"}, ownerC1)
	if err != nil {
		t.Fatalf("DecideExtension: %v", err)
	}
	if decided.Status != ExtendApproved || len(decided.History) != 2 {
		t.Fatalf("decided = %+v", decided)
	}
	first := l.Extends()[0].clone()

	l2, _, err := m.RequestExtension(l, ExtendRequestInput{Note: "second", RequestedReturnDate: day(2025, 6, 30)})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	h := l2.Extends()
	if len(h) != 2 {
		t.Fatalf("len = %d, want 2", len(h))
	}
	if !reflect.DeepEqual(h[0], first) {
		t.Fatalf("first entry changed:\n got %+v\nwant %+v", h[0], first)
	}
	if h[1].Status != ExtendRequested {
		t.Fatalf("second entry status = %s", h[1].Status)
	}
	if got := EffectiveReturnDate(l2); !got.Equal(*day(2025, 6, 20)) {
		t.Fatalf("effective date = %v, want first approved extension", got)
	}
}

func TestDecideExtension_Guards(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)
	if _, _, err := m.DecideExtension(l, Decision{Action: ActionApprove}, admin); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("no entry err = %v", err)
	}
	l, _, _ = m.RequestExtension(l, ExtendRequestInput{Note: "n", RequestedReturnDate: day(2025, 6, 20)})
	if _, _, err := m.DecideExtension(l, Decision{Action: ActionApprove}, outside); !errors.Is(err, failure.ErrForbidden) {
		t.Fatalf("outside err = %v", err)
	}
	done, _, err := m.DecideExtension(l, Decision{Action: ActionReject}, admin)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, _, err := m.DecideExtension(done, Decision{Action: ActionApprove}, admin); !errors.Is(err, failure.ErrAlreadyProcessed) {
		t.Fatalf("re-decision err = %v", err)
	}
	if _, _, err := m.DecideExtension(l, Decision{Action: "maybe"}, admin); !failure.IsValidation(err) {
		t.Fatalf("bad action err = %v", err)
	}
}

func TestRequestReturn(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)
	limits := AttachmentLimits{MaxCount: 2, MaxBytes: 100}

	if _, _, err := m.RequestReturn(l, ReturnRequestInput{}, limits); !failure.IsValidation(err) {
		t.Fatalf("blank note err = %v", err)
	}
	tooMany := []Attachment{{Name: "a", Size: 1}, {Name: "b", Size: 1}, {Name: "c", Size: 1}}
	if _, _, err := m.RequestReturn(l, ReturnRequestInput{Note: "done", Photos: tooMany}, limits); !failure.IsValidation(err) {
		t.Fatalf("too many err = %v", err)
	}
	tooBig := []Attachment{{Name: "a", Size: 1}, {Name: "big", Size: 101}}
	if _, _, err := m.RequestReturn(l, ReturnRequestInput{Note: "done", Photos: tooBig}, limits); !failure.IsValidation(err) {
		t.Fatalf("too big err = %v", err)
	}

	next, entry, err := m.RequestReturn(l, ReturnRequestInput{Note: "done", Photos: tooBig[:1], RequestedBy: "Budi"}, limits)
	if err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	if entry.Status != ReturnRequested || len(next.Returns()) != 1 {
		t.Fatalf("entry = %+v", entry)
	}
	if snap := next.ReturnState(); snap.Status != ReturnRequested || snap.PreviousStatus != "" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, _, err := m.RequestReturn(next, ReturnRequestInput{Note: "again"}, limits); !failure.IsValidation(err) {
		t.Fatalf("duplicate pending err = %v", err)
	}
}

func TestDecideReturn_RejectRestoresPreviousStatus(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)
	before := l.ReturnState().Status

	l, req, _ := m.RequestReturn(l, ReturnRequestInput{Note: "done"}, AttachmentLimits{})
	next, decided, err := m.DecideReturn(l, Decision{Action: ActionReject, Note: "scratched"}, Actor{ID: "w", Role: RoleWarehouse})
	if err != nil {
		t.Fatalf("DecideReturn: %v", err)
	}
	if decided.Status != ReturnRejected || next.Returns().Latest().Status != ReturnRejected {
		t.Fatalf("entry status = %s", decided.Status)
	}
	if got := next.ReturnState().Status; got != req.PreviousStatus || got != before {
		t.Fatalf("returnStatus = %q, want restored %q", got, req.PreviousStatus)
	}
	if !next.IsBorrowed() {
		t.Fatal("rejected return should leave the loan borrowed")
	}
	if _, _, err := m.DecideReturn(next, Decision{Action: ActionApprove}, admin); !errors.Is(err, failure.ErrAlreadyProcessed) {
		t.Fatalf("re-decision err = %v", err)
	}
}

func TestDecideReturn_ApproveCompletes(t *testing.T) {
	m := testMachine()
	l := borrowed(t, m)
	l, _, _ = m.RequestReturn(l, ReturnRequestInput{Note: "done"}, AttachmentLimits{})

	if _, _, err := m.DecideReturn(l, Decision{Action: ActionApprove}, outside); !errors.Is(err, failure.ErrForbidden) {
		t.Fatalf("outside err = %v", err)
	}
	next, _, err := m.DecideReturn(l, Decision{Action: ActionApprove, Condition: "good"}, admin)
	if err != nil {
		t.Fatalf("DecideReturn: %v", err)
	}
	if !next.IsReturned() || next.ReminderEligible() {
		t.Fatal("approved return should complete the loan")
	}
	if DeriveStatus(next).Status != StatusCompleted || next.ReturnState().Condition != "good" {
		t.Fatalf("status=%s snapshot=%+v", DeriveStatus(next).Status, next.ReturnState())
	}
}
