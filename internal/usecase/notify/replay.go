package notify

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
)

type LoanReader interface {
	GetByLoanID(ctx context.Context, loanID string) (*loan.Loan, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, b Batch) (int, error)
}

type ReplayResult struct {
	LoanID  string `json:"loanId"`
	Event   string `json:"event"`
	Ref     string `json:"ref,omitempty"`
	Pending int    `json:"pending"`
	Sent    int    `json:"sent"`
}

// Replayer re-sends the ledger entries of one slot that are still
// sent:false. Recipients come from the ledger itself, so a directory change
// after the transition does not redirect the mail.
type Replayer struct {
	loans     LoanReader
	deliverer Deliverer
	loc       *time.Location
	logger    *slog.Logger
}

func NewReplayer(loans LoanReader, d Deliverer, loc *time.Location, logger *slog.Logger) *Replayer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{loans: loans, deliverer: d, loc: loc, logger: logger.With("component", "replay")}
}

func (r *Replayer) Replay(ctx context.Context, loanID string, slot loan.LedgerSlot) (*ReplayResult, error) {
	if slot.Event.NeedsRef() && slot.Ref == "" {
		return nil, failure.Invalid("ref", "event "+string(slot.Event)+" needs an entry id or reminder key")
	}
	l, err := r.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if slot.Event == loan.EventReminder {
		if e, ok := l.Reminders()[slot.Ref]; ok && !e.Sent {
			return nil, failure.Invalid("ref", "reminder "+slot.Ref+" was never sent; the sweep owns it")
		}
	}
	led, err := l.LedgerAt(slot)
	if err != nil {
		return nil, err
	}

	jobs := unsentJobs(slot, led, replayVars(l, slot, r.loc))
	res := &ReplayResult{LoanID: loanID, Event: string(slot.Event), Ref: slot.Ref}
	for _, j := range jobs {
		res.Pending += len(j.Recipients)
	}
	if len(jobs) == 0 {
		return res, nil
	}
	n, err := r.deliverer.Deliver(ctx, Batch{LoanID: loanID, Slot: slot, Jobs: jobs, Loan: l})
	res.Sent = n
	if err != nil {
		return res, failure.Persistence("record replayed receipts", err)
	}
	r.logger.Info("notifications replayed", "loan_id", loanID, "event", slot.Event, "ref", slot.Ref, "pending", res.Pending, "sent", n)
	return res, nil
}

// unsentJobs groups the unsent ledger entries into one job per audience, in
// the routing order of the event.
func unsentJobs(slot loan.LedgerSlot, led ledger.Ledger, vars map[string]string) []Job {
	byAudience := map[ledger.Audience][]Recipient{}
	for _, e := range led.Entries() {
		if led.IsSent(e.Audience, e.Key, e.Role) || e.Email == "" {
			continue
		}
		byAudience[e.Audience] = append(byAudience[e.Audience], Recipient{Key: e.Key, Role: e.Role, Email: e.Email})
	}
	var jobs []Job
	for _, a := range []ledger.Audience{ledger.AudienceBorrower, ledger.AudienceEntitas, ledger.AudienceCompanies, ledger.AudienceWarehouse} {
		rs := byAudience[a]
		if len(rs) == 0 {
			continue
		}
		sort.Slice(rs, func(i, k int) bool {
			if rs[i].Key != rs[k].Key {
				return rs[i].Key < rs[k].Key
			}
			return rs[i].Role < rs[k].Role
		})
		jobs = append(jobs, Job{Slot: slot, Audience: a, Recipients: rs, Vars: vars})
	}
	return jobs
}

// replayVars rebuilds the renderer details of slot from the stored loan.
func replayVars(l *loan.Loan, slot loan.LedgerSlot, loc *time.Location) map[string]string {
	const day = "2006-01-02"
	vars := map[string]string{}
	switch slot.Event {
	case loan.EventApproval:
		vars["action"] = loan.ActionApprove
		companies := l.ApprovalState().Companies
		names := make([]string, 0, len(companies))
		for c := range companies {
			names = append(names, c)
		}
		sort.Strings(names)
		for _, c := range names {
			if a := companies[c]; !a.Approved && a.RejectionReason != "" {
				vars["action"], vars["company"], vars["reason"] = loan.ActionReject, c, a.RejectionReason
				break
			}
		}
	case loan.EventWarehouse:
		w := l.Warehouse()
		vars["action"] = loan.ActionApprove
		if w.Status == loan.WarehouseRejected {
			vars["action"], vars["reason"] = loan.ActionReject, w.RejectionReason
		}
	case loan.EventExtendRequest, loan.EventExtendDecision:
		for _, e := range l.Extends() {
			if e.ID != slot.Ref {
				continue
			}
			if e.RequestedReturnDate != nil {
				vars["requestedReturnDate"] = e.RequestedReturnDate.Format(day)
			}
			if slot.Event == loan.EventExtendRequest {
				vars["note"], vars["requestedBy"] = e.Note, e.RequestBy
			} else {
				vars["action"], vars["note"], vars["decidedBy"] = string(e.ApproveStatus), e.ApproveNote, e.ApproveBy
			}
		}
	case loan.EventReturnRequest, loan.EventReturnDecision:
		for _, e := range l.Returns() {
			if e.ID != slot.Ref {
				continue
			}
			if slot.Event == loan.EventReturnRequest {
				vars["note"], vars["requestedBy"], vars["photos"] = e.Note, e.RequestedBy, strconv.Itoa(len(e.PhotoResults))
			} else {
				vars["action"], vars["note"], vars["decidedBy"] = e.Status, e.DecisionNote, e.ProcessedBy
				vars["condition"] = e.Condition
			}
		}
	case loan.EventReminder:
		if e, ok := l.Reminders()[slot.Ref]; ok {
			vars["offset"], vars["type"] = strconv.Itoa(e.Offset), e.Type
		}
		if due := loan.EffectiveReturnDate(l); due != nil {
			vars["dueDate"] = due.In(loc).Format(day)
		}
	}
	return vars
}
