package loan

import "strings"

type Status string

const (
	StatusDraft           Status = "Draft"
	StatusPendingApproval Status = "PendingApproval"
	StatusApproved        Status = "Approved"
	StatusRejected        Status = "Rejected"
	StatusBorrowed        Status = "Borrowed"
	StatusExtendRequested Status = "ExtendRequested"
	StatusReturnRequested Status = "ReturnRequested"
	StatusReturned        Status = "Returned"
	StatusCompleted       Status = "Completed"
	// StatusUnknown marks a stored token outside the table; the raw value is kept.
	StatusUnknown Status = "Unknown"
)

// statusTokens maps lower-cased stored tokens to their canonical status.
var statusTokens = map[string]Status{
	"draft":            StatusDraft,
	"pendingapproval":  StatusPendingApproval,
	"pending_approval": StatusPendingApproval,
	"pending approval": StatusPendingApproval,
	"pending":          StatusPendingApproval,
	"submitted":        StatusPendingApproval,
	"approved":         StatusApproved,
	"disetujui":        StatusApproved,
	"rejected":         StatusRejected,
	"ditolak":          StatusRejected,
	"borrowed":         StatusBorrowed,
	"dipinjam":         StatusBorrowed,
	"extendrequested":  StatusExtendRequested,
	"extend_requested": StatusExtendRequested,
	"returnrequested":  StatusReturnRequested,
	"return_requested": StatusReturnRequested,
	"returned":         StatusReturned,
	"dikembalikan":     StatusReturned,
	"completed":        StatusCompleted,
	"selesai":          StatusCompleted,
}

// StatusView is the derived lifecycle status. Raw holds the stored token when
// it was not recognized.
type StatusView struct {
	Status Status `json:"status"`
	Raw    string `json:"raw,omitempty"`
}

// String returns the canonical token, or the stored token unchanged when it
// is unknown.
func (v StatusView) String() string {
	if v.Status == StatusUnknown {
		return v.Raw
	}
	return string(v.Status)
}

func CanonicalStatus(token string) StatusView {
	t := strings.TrimSpace(token)
	if s, ok := statusTokens[strings.ToLower(t)]; ok {
		return StatusView{Status: s}
	}
	return StatusView{Status: StatusUnknown, Raw: t}
}

// DeriveStatus computes the lifecycle status dashboards display. An explicit
// stored token wins; otherwise the status is derived from the draft flag and
// the per-company approvals.
func DeriveStatus(l *Loan) StatusView {
	if strings.TrimSpace(l.LoanStatus) != "" {
		return CanonicalStatus(l.LoanStatus)
	}
	if l.IsDraft {
		return StatusView{Status: StatusDraft}
	}
	companies := l.ApprovalState().Companies
	if len(companies) == 0 {
		return StatusView{Status: StatusPendingApproval}
	}
	allApproved := true
	for _, a := range companies {
		if !a.Approved && a.RejectionReason != "" {
			return StatusView{Status: StatusRejected}
		}
		if !a.Approved {
			allApproved = false
		}
	}
	if allApproved {
		return StatusView{Status: StatusApproved}
	}
	return StatusView{Status: StatusPendingApproval}
}

// IsReturned checks the return snapshot, the warehouse axis and, for legacy
// rows, a substring of the stored status token.
func (l *Loan) IsReturned() bool {
	if strings.EqualFold(l.ReturnState().Status, ReturnReturned) {
		return true
	}
	if strings.EqualFold(l.Warehouse().Status, WarehouseReturned) {
		return true
	}
	s := strings.ToLower(l.LoanStatus)
	return strings.Contains(s, "returned") || strings.Contains(s, "completed") || strings.Contains(s, "dikembalikan")
}

// IsBorrowed reports whether the asset is out with the borrower.
func (l *Loan) IsBorrowed() bool {
	if l.IsReturned() {
		return false
	}
	if strings.EqualFold(l.Warehouse().Status, WarehouseBorrowed) {
		return true
	}
	switch DeriveStatus(l).Status {
	case StatusBorrowed, StatusExtendRequested, StatusReturnRequested:
		return true
	}
	s := strings.ToLower(l.LoanStatus)
	return strings.Contains(s, "borrow") || strings.Contains(s, "dipinjam")
}
