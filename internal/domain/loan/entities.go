package loan

import (
	"time"

	"assetloan-backend/internal/domain/ledger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Loan is the root aggregate. Every sub-record (approvals, extend and return
// histories, reminder runs, notification ledgers) lives in a JSON column of
// this row and is only ever persisted through it.
type Loan struct {
	ID            uint64     `gorm:"primaryKey;column:id" json:"-"`
	LoanID        string     `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"id"`
	IsDraft       bool       `gorm:"column:is_draft;index" json:"isDraft"`
	LoanStatus    string     `gorm:"size:64;column:loan_status" json:"loanStatus,omitempty"`
	BorrowerName  string     `gorm:"size:160" json:"borrowerName"`
	BorrowerPhone string     `gorm:"size:32" json:"borrowerPhone"`
	BorrowerEmail string     `gorm:"size:254" json:"borrowerEmail"`
	EntitasID     string     `gorm:"size:64;index" json:"entitasId"`
	UseDate       *time.Time `json:"useDate,omitempty"`
	OutDate       *time.Time `json:"outDate,omitempty"`
	ReturnDate    *time.Time `json:"returnDate,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	SubmittedBy   string     `gorm:"size:64" json:"submittedBy,omitempty"`

	Company         datatypes.JSONType[[]string]          `gorm:"column:company" json:"company"`
	Approvals       datatypes.JSONType[Approvals]         `gorm:"column:approvals" json:"approvals"`
	WarehouseStatus datatypes.JSONType[WarehouseSnapshot] `gorm:"column:warehouse_status" json:"warehouseStatus"`
	ReturnStatus    datatypes.JSONType[ReturnSnapshot]    `gorm:"column:return_status" json:"returnStatus"`
	ExtendStatus    datatypes.JSONType[ExtendHistory]     `gorm:"column:extend_status" json:"extendStatus"`
	ReturnRequest   datatypes.JSONType[ReturnHistory]     `gorm:"column:return_request" json:"returnRequest"`
	ReminderStatus  datatypes.JSONType[Reminders]         `gorm:"column:reminder_status" json:"reminderStatus"`

	SubmitNotifications    datatypes.JSONType[ledger.Ledger] `gorm:"column:submit_notifications" json:"submitNotifications"`
	ApprovalNotifications  datatypes.JSONType[ledger.Ledger] `gorm:"column:approval_notifications" json:"approvalNotifications"`
	WarehouseNotifications datatypes.JSONType[ledger.Ledger] `gorm:"column:warehouse_notifications" json:"warehouseNotifications"`

	// Version backs the optimistic write guard.
	Version   uint64         `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// CompanyApproval is one marketing company's decision on a submitted loan.
type CompanyApproval struct {
	Approved        bool       `json:"approved"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

func (a CompanyApproval) Decided() bool { return a.Approved || a.RejectionReason != "" }

type Approvals struct {
	Companies map[string]CompanyApproval `json:"companies"`
}

const (
	WarehousePending  = "Pending"
	WarehouseBorrowed = "Borrowed"
	WarehouseRejected = "Rejected"
	WarehouseReturned = "Returned"
)

type WarehouseSnapshot struct {
	Status          string     `json:"status,omitempty"`
	ProcessedBy     string     `json:"processedBy,omitempty"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// ReturnSnapshot is the denormalized view of the latest return cycle.
type ReturnSnapshot struct {
	Status         string     `json:"status,omitempty"`
	ProcessedBy    string     `json:"processedBy,omitempty"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
	Note           string     `json:"note,omitempty"`
	Condition      string     `json:"condition,omitempty"`
	PreviousStatus string     `json:"previousStatus,omitempty"`
}

func (l *Loan) Companies() []string { return l.Company.Data() }

func (l *Loan) ApprovalState() Approvals { return l.Approvals.Data() }

func (l *Loan) SetApprovalState(a Approvals) { l.Approvals = datatypes.NewJSONType(a) }

func (l *Loan) Warehouse() WarehouseSnapshot { return l.WarehouseStatus.Data() }

func (l *Loan) SetWarehouse(w WarehouseSnapshot) { l.WarehouseStatus = datatypes.NewJSONType(w) }

func (l *Loan) ReturnState() ReturnSnapshot { return l.ReturnStatus.Data() }

func (l *Loan) SetReturnState(r ReturnSnapshot) { l.ReturnStatus = datatypes.NewJSONType(r) }

func (l *Loan) Extends() ExtendHistory { return l.ExtendStatus.Data() }

func (l *Loan) SetExtends(h ExtendHistory) { l.ExtendStatus = datatypes.NewJSONType(h) }

func (l *Loan) Returns() ReturnHistory { return l.ReturnRequest.Data() }

func (l *Loan) SetReturns(h ReturnHistory) { l.ReturnRequest = datatypes.NewJSONType(h) }

func (l *Loan) Reminders() Reminders { return l.ReminderStatus.Data() }

func (l *Loan) SetReminders(r Reminders) { l.ReminderStatus = datatypes.NewJSONType(r) }

// Clone deep-copies the loan so a mutation never leaks into a snapshot that
// is still held elsewhere (dispatch batches, request-time reads).
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	out := *l
	out.UseDate = cloneTime(l.UseDate)
	out.OutDate = cloneTime(l.OutDate)
	out.ReturnDate = cloneTime(l.ReturnDate)
	out.SubmittedAt = cloneTime(l.SubmittedAt)
	out.Company = datatypes.NewJSONType(append([]string(nil), l.Companies()...))

	appr := Approvals{}
	if src := l.ApprovalState().Companies; src != nil {
		appr.Companies = make(map[string]CompanyApproval, len(src))
		for k, v := range src {
			v.ApprovedAt = cloneTime(v.ApprovedAt)
			appr.Companies[k] = v
		}
	}
	out.SetApprovalState(appr)

	w := l.Warehouse()
	w.ProcessedAt = cloneTime(w.ProcessedAt)
	out.SetWarehouse(w)
	r := l.ReturnState()
	r.ProcessedAt = cloneTime(r.ProcessedAt)
	out.SetReturnState(r)

	out.SetExtends(l.Extends().Clone())
	out.SetReturns(l.Returns().Clone())
	out.SetReminders(l.Reminders().Clone())
	out.SubmitNotifications = datatypes.NewJSONType(l.SubmitNotifications.Data().Clone())
	out.ApprovalNotifications = datatypes.NewJSONType(l.ApprovalNotifications.Data().Clone())
	out.WarehouseNotifications = datatypes.NewJSONType(l.WarehouseNotifications.Data().Clone())
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
