package loan

import (
	"strings"
	"time"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/pkg/id"

	"gorm.io/datatypes"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Machine validates lifecycle transitions and produces the next loan
// snapshot. The input loan is never modified.
type Machine struct {
	Now   func() time.Time
	NewID func() string
}

func NewMachine() Machine {
	return Machine{Now: func() time.Time { return time.Now().UTC() }, NewID: id.NewUUID}
}

// AttachmentLimits bounds the photos attached to a return request.
type AttachmentLimits struct {
	MaxCount int
	MaxBytes int64
}

type SubmitInput struct {
	LoanID        string
	BorrowerName  string
	BorrowerPhone string
	BorrowerEmail string
	EntitasID     string
	Company       []string
	UseDate       *time.Time
	ReturnDate    *time.Time
	IsDraft       bool
	SubmittedBy   string
}

type ExtendRequestInput struct {
	Note                string
	RequestedReturnDate *time.Time
	RequestedBy         string
}

type ReturnRequestInput struct {
	Note        string
	Photos      []Attachment
	RequestedBy string
}

type Decision struct {
	Action    string
	Note      string
	Condition string
}

func parseAction(a string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case ActionApprove, "approved":
		return ActionApprove, nil
	case ActionReject, "rejected":
		return ActionReject, nil
	}
	return "", failure.Invalid("action", "action must be approve or reject")
}

func (m Machine) history(status, by, note string) HistoryRecord {
	return HistoryRecord{ID: m.NewID(), Status: status, ProcessedAt: m.Now(), ProcessedBy: by, Note: note}
}

// Submit creates a new loan, or promotes the given draft when prev is non-nil.
func (m Machine) Submit(prev *Loan, in SubmitInput) (*Loan, error) {
	if prev != nil && !prev.IsDraft {
		return nil, failure.ErrAlreadyProcessed
	}
	companies := dedupeValues(in.Company)
	if strings.TrimSpace(in.EntitasID) == "" {
		return nil, failure.Invalid("entitasId", "entitas is required")
	}
	if !in.IsDraft {
		if strings.TrimSpace(in.BorrowerEmail) == "" {
			return nil, failure.Invalid("borrowerEmail", "borrower email is required")
		}
		if len(companies) == 0 {
			return nil, failure.Invalid("company", "at least one company is required")
		}
	}
	if in.UseDate != nil && in.ReturnDate != nil && in.ReturnDate.Before(*in.UseDate) {
		return nil, failure.Invalid("returnDate", "return date must not be before use date")
	}

	var next *Loan
	if prev != nil {
		next = prev.Clone()
	} else {
		next = &Loan{LoanID: in.LoanID}
	}
	next.IsDraft = in.IsDraft
	next.BorrowerName = strings.TrimSpace(in.BorrowerName)
	next.BorrowerPhone = strings.TrimSpace(in.BorrowerPhone)
	next.BorrowerEmail = strings.TrimSpace(in.BorrowerEmail)
	next.EntitasID = strings.TrimSpace(in.EntitasID)
	next.Company = datatypes.NewJSONType(companies)
	next.UseDate = cloneTime(in.UseDate)
	next.ReturnDate = cloneTime(in.ReturnDate)
	next.SubmittedBy = in.SubmittedBy

	if !in.IsDraft {
		now := m.Now()
		next.SubmittedAt = &now
		next.LoanStatus = ""
		appr := Approvals{Companies: make(map[string]CompanyApproval, len(companies))}
		for _, c := range companies {
			appr.Companies[c] = CompanyApproval{}
		}
		next.SetApprovalState(appr)
	}
	return next, nil
}

// DecideApproval records a company decision. An empty company decides every
// pending company the actor is allowed to decide. The second result reports
// whether the loan just became fully approved.
func (m Machine) DecideApproval(l *Loan, company string, d Decision, actor Actor) (*Loan, bool, error) {
	action, err := parseAction(d.Action)
	if err != nil {
		return nil, false, err
	}
	if action == ActionReject && strings.TrimSpace(d.Note) == "" {
		return nil, false, failure.Invalid("reason", "rejection reason is required")
	}
	if DeriveStatus(l).Status != StatusPendingApproval {
		return nil, false, failure.ErrAlreadyProcessed
	}

	appr := l.ApprovalState()
	if appr.Companies == nil {
		appr.Companies = map[string]CompanyApproval{}
		for _, c := range l.Companies() {
			appr.Companies[c] = CompanyApproval{}
		}
	}

	var targets []string
	if c := strings.TrimSpace(company); c != "" {
		cur, ok := appr.Companies[c]
		if !ok {
			return nil, false, failure.Invalid("company", "company is not part of this loan")
		}
		if !actor.IsAdmin() && !actor.Owns(c) {
			return nil, false, failure.ErrForbidden
		}
		if cur.Decided() {
			return nil, false, failure.ErrAlreadyProcessed
		}
		targets = []string{c}
	} else {
		pending, allowed := 0, 0
		for _, c := range l.Companies() {
			if appr.Companies[c].Decided() {
				continue
			}
			pending++
			if actor.IsAdmin() || actor.Owns(c) {
				allowed++
				targets = append(targets, c)
			}
		}
		if pending == 0 {
			return nil, false, failure.ErrAlreadyProcessed
		}
		if allowed == 0 {
			return nil, false, failure.ErrForbidden
		}
	}

	next := l.Clone()
	appr = next.ApprovalState()
	if appr.Companies == nil {
		appr.Companies = map[string]CompanyApproval{}
	}
	now := m.Now()
	for _, c := range targets {
		ca := CompanyApproval{ApprovedBy: actor.Display(), ApprovedAt: &now}
		if action == ActionApprove {
			ca.Approved = true
		} else {
			ca.RejectionReason = strings.TrimSpace(d.Note)
		}
		appr.Companies[c] = ca
	}
	next.SetApprovalState(appr)

	approved := DeriveStatus(next).Status == StatusApproved
	if approved {
		w := next.Warehouse()
		w.Status = WarehousePending
		next.SetWarehouse(w)
	}
	return next, approved, nil
}

// ProcessWarehouse hands the asset out (approve) or refuses it (reject).
func (m Machine) ProcessWarehouse(l *Loan, d Decision, actor Actor) (*Loan, error) {
	action, err := parseAction(d.Action)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.IsWarehouse() && !actor.OwnsAny(l.Companies()) {
		return nil, failure.ErrForbidden
	}
	switch l.Warehouse().Status {
	case WarehouseBorrowed, WarehouseRejected, WarehouseReturned:
		return nil, failure.ErrAlreadyProcessed
	}
	if DeriveStatus(l).Status != StatusApproved {
		return nil, failure.Invalid("loanStatus", "loan is not approved")
	}
	if action == ActionReject && strings.TrimSpace(d.Note) == "" {
		return nil, failure.Invalid("reason", "rejection reason is required")
	}

	next := l.Clone()
	now := m.Now()
	w := WarehouseSnapshot{ProcessedBy: actor.Display(), ProcessedAt: &now}
	if action == ActionApprove {
		w.Status = WarehouseBorrowed
		next.OutDate = &now
		next.LoanStatus = string(StatusBorrowed)
	} else {
		w.Status = WarehouseRejected
		w.RejectionReason = strings.TrimSpace(d.Note)
		next.LoanStatus = string(StatusRejected)
	}
	next.SetWarehouse(w)
	return next, nil
}

// RequestExtension appends a new extend entry in ExtendRequested.
func (m Machine) RequestExtension(l *Loan, in ExtendRequestInput) (*Loan, *ExtendEntry, error) {
	if strings.TrimSpace(in.Note) == "" {
		return nil, nil, failure.Invalid("note", "note is required")
	}
	if in.RequestedReturnDate == nil || in.RequestedReturnDate.IsZero() {
		return nil, nil, failure.Invalid("requestedReturnDate", "requested return date is required")
	}
	if l.IsDraft || l.IsReturned() {
		return nil, nil, failure.Invalid("loanStatus", "loan is not active")
	}
	if l.Extends().PickActive() != nil {
		return nil, nil, failure.Invalid("extendStatus", "an extension request is already pending")
	}
	if l.UseDate != nil && in.RequestedReturnDate.Before(*l.UseDate) {
		return nil, nil, failure.Invalid("requestedReturnDate", "requested return date must not be before use date")
	}

	entry := ExtendEntry{
		ID:                  m.NewID(),
		Note:                strings.TrimSpace(in.Note),
		RequestedReturnDate: cloneTime(in.RequestedReturnDate),
		RequestAt:           m.Now(),
		RequestBy:           in.RequestedBy,
		Status:              ExtendRequested,
		PreviousStatus:      DeriveStatus(l).String(),
	}
	entry.History = []HistoryRecord{m.history(ExtendRequested, in.RequestedBy, entry.Note)}

	next := l.Clone()
	next.SetExtends(next.Extends().Append(entry))
	return next, &entry, nil
}

// DecideExtension approves or rejects the latest extend entry in place.
func (m Machine) DecideExtension(l *Loan, d Decision, actor Actor) (*Loan, *ExtendEntry, error) {
	action, err := parseAction(d.Action)
	if err != nil {
		return nil, nil, err
	}
	latest := l.Extends().Latest()
	if latest == nil {
		return nil, nil, failure.NotFound("extension request for loan", l.LoanID)
	}
	if !actor.IsAdmin() && !actor.OwnsAny(l.Companies()) {
		return nil, nil, failure.ErrForbidden
	}
	if latest.Decided() {
		return nil, nil, failure.ErrAlreadyProcessed
	}

	next := l.Clone()
	h := next.Extends()
	e := &h[len(h)-1]
	if e.ID == "" {
		e.ID = legacyID("extend", len(h)-1)
	}
	now := m.Now()
	e.ApproveAt = &now
	e.ApproveBy = actor.Display()
	e.ApproveNote = strings.TrimSpace(d.Note)
	if action == ActionApprove {
		e.Status, e.ApproveStatus = ExtendApproved, ApproveApproved
	} else {
		e.Status, e.ApproveStatus = ExtendRejected, ApproveRejected
	}
	e.History = append(e.History, m.history(e.Status, e.ApproveBy, e.ApproveNote))
	next.SetExtends(h)
	out := *e
	return next, &out, nil
}

// RequestReturn appends a return entry and updates the denormalized return
// snapshot. Attachments violating the limits reject the whole request.
func (m Machine) RequestReturn(l *Loan, in ReturnRequestInput, limits AttachmentLimits) (*Loan, *ReturnEntry, error) {
	if strings.TrimSpace(in.Note) == "" {
		return nil, nil, failure.Invalid("note", "note is required")
	}
	if limits.MaxCount > 0 && len(in.Photos) > limits.MaxCount {
		return nil, nil, failure.Invalid("photos", "too many attachments")
	}
	for _, p := range in.Photos {
		if limits.MaxBytes > 0 && p.Size > limits.MaxBytes {
			return nil, nil, failure.Invalid("photos", "attachment "+p.Name+" exceeds the size limit")
		}
	}
	if !l.IsBorrowed() {
		return nil, nil, failure.Invalid("loanStatus", "loan is not currently borrowed")
	}
	if l.Returns().PickActive() != nil {
		return nil, nil, failure.Invalid("returnRequest", "a return request is already pending")
	}

	prev := l.ReturnState().Status
	entry := ReturnEntry{
		ID:             m.NewID(),
		RequestedAt:    m.Now(),
		RequestedBy:    in.RequestedBy,
		Note:           strings.TrimSpace(in.Note),
		PhotoResults:   append([]Attachment(nil), in.Photos...),
		Status:         ReturnRequested,
		PreviousStatus: prev,
	}
	entry.History = []HistoryRecord{m.history(ReturnRequested, in.RequestedBy, entry.Note)}

	next := l.Clone()
	next.SetReturns(next.Returns().Append(entry))
	next.SetReturnState(ReturnSnapshot{Status: ReturnRequested, PreviousStatus: prev})
	return next, &entry, nil
}

// DecideReturn resolves the active return entry. Approval completes the loan;
// rejection restores the return snapshot captured at request time.
func (m Machine) DecideReturn(l *Loan, d Decision, actor Actor) (*Loan, *ReturnEntry, error) {
	action, err := parseAction(d.Action)
	if err != nil {
		return nil, nil, err
	}
	h := l.Returns()
	if len(h) == 0 {
		return nil, nil, failure.NotFound("return request for loan", l.LoanID)
	}
	if !actor.IsAdmin() && !actor.IsWarehouse() && !actor.OwnsAny(l.Companies()) {
		return nil, nil, failure.ErrForbidden
	}
	i := h.activeIndex()
	if i < 0 {
		return nil, nil, failure.ErrAlreadyProcessed
	}

	next := l.Clone()
	nh := next.Returns()
	e := &nh[i]
	if e.ID == "" {
		e.ID = legacyID("return", i)
	}
	now := m.Now()
	e.ProcessedAt = &now
	e.ProcessedBy = actor.Display()
	e.DecisionNote = strings.TrimSpace(d.Note)
	e.Condition = strings.TrimSpace(d.Condition)

	snap := ReturnSnapshot{
		ProcessedBy:    e.ProcessedBy,
		ProcessedAt:    &now,
		Note:           e.DecisionNote,
		Condition:      e.Condition,
		PreviousStatus: ReturnRequested,
	}
	if action == ActionApprove {
		e.Status = ReturnReturned
		snap.Status = ReturnReturned
		w := next.Warehouse()
		w.Status = WarehouseReturned
		next.SetWarehouse(w)
		next.LoanStatus = string(StatusCompleted)
	} else {
		e.Status = ReturnRejected
		snap.Status = e.PreviousStatus
	}
	e.History = append(e.History, m.history(e.Status, e.ProcessedBy, e.DecisionNote))
	next.SetReturns(nh)
	next.SetReturnState(snap)
	out := *e
	return next, &out, nil
}

func dedupeValues(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
