package loan

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		loan *Loan
		want StatusView
	}{
		{"explicit token canonicalised", &Loan{LoanStatus: "BORROWED"}, StatusView{Status: StatusBorrowed}},
		{"legacy indonesian token", &Loan{LoanStatus: "Dipinjam"}, StatusView{Status: StatusBorrowed}},
		{"unknown token passes through", &Loan{LoanStatus: "OnHoldByOps"}, StatusView{Status: StatusUnknown, Raw: "OnHoldByOps"}},
		{"draft", &Loan{IsDraft: true}, StatusView{Status: StatusDraft}},
		{"no approvals yet", &Loan{}, StatusView{Status: StatusPendingApproval}},
		{"one rejected", withApprovals(map[string]CompanyApproval{
			"C1": {Approved: true},
			"C2": {RejectionReason: "no stock"},
		}), StatusView{Status: StatusRejected}},
		{"all approved", withApprovals(map[string]CompanyApproval{
			"C1": {Approved: true},
			"C2": {Approved: true},
		}), StatusView{Status: StatusApproved}},
		{"partially approved", withApprovals(map[string]CompanyApproval{
			"C1": {Approved: true},
			"C2": {},
		}), StatusView{Status: StatusPendingApproval}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.loan); got != tt.want {
				t.Fatalf("DeriveStatus = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStatusView_StringKeepsUnknownToken(t *testing.T) {
	v := CanonicalStatus("  weird_value ")
	if v.String() != "weird_value" {
		t.Fatalf("String() = %q", v.String())
	}
	if CanonicalStatus("pending approval").String() != string(StatusPendingApproval) {
		t.Fatal("pending approval not canonicalised")
	}
}

func TestIsReturnedAndBorrowed(t *testing.T) {
	borrowed := &Loan{}
	borrowed.SetWarehouse(WarehouseSnapshot{Status: WarehouseBorrowed})
	if !borrowed.IsBorrowed() || borrowed.IsReturned() {
		t.Fatal("warehouse Borrowed should be borrowed and not returned")
	}

	viaReturn := borrowed.Clone()
	viaReturn.SetReturnState(ReturnSnapshot{Status: ReturnReturned})
	if !viaReturn.IsReturned() || viaReturn.IsBorrowed() {
		t.Fatal("return snapshot returned should win")
	}

	legacy := &Loan{LoanStatus: "Sudah Dikembalikan"}
	if !legacy.IsReturned() {
		t.Fatal("legacy status substring not detected")
	}

	requested := &Loan{LoanStatus: "ReturnRequested"}
	if requested.IsReturned() || !requested.IsBorrowed() {
		t.Fatal("return requested loan is still out")
	}
}

func withApprovals(m map[string]CompanyApproval) *Loan {
	l := &Loan{}
	l.SetApprovalState(Approvals{Companies: m})
	return l
}
