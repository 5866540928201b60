package notify

import (
	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
)

// Job is a single send: one message to every recipient of one audience.
type Job struct {
	Slot       loan.LedgerSlot
	Audience   ledger.Audience
	Recipients []Recipient
	// Vars carries event details for the renderer (note, offset, decision).
	Vars map[string]string
}

// Batch is the set of jobs produced by one transition of one loan.
type Batch struct {
	LoanID string
	Slot   loan.LedgerSlot
	Jobs   []Job
	// Loan is the committed snapshot the renderer reads.
	Loan *loan.Loan
}

type route struct {
	audience ledger.Audience
	roles    []string
}

// actionable company roles for requests that need a decision
var deciderRoles = []string{"marketing", "admin"}

var routes = map[loan.Event][]route{
	loan.EventSubmit:         {{audience: ledger.AudienceCompanies}, {audience: ledger.AudienceEntitas}, {audience: ledger.AudienceBorrower}},
	loan.EventApproval:       {{audience: ledger.AudienceBorrower}, {audience: ledger.AudienceEntitas}, {audience: ledger.AudienceWarehouse}},
	loan.EventWarehouse:      {{audience: ledger.AudienceBorrower}, {audience: ledger.AudienceCompanies}},
	loan.EventExtendRequest:  {{audience: ledger.AudienceCompanies, roles: deciderRoles}},
	loan.EventExtendDecision: {{audience: ledger.AudienceBorrower}, {audience: ledger.AudienceEntitas}, {audience: ledger.AudienceCompanies}, {audience: ledger.AudienceWarehouse}},
	loan.EventReturnRequest:  {{audience: ledger.AudienceWarehouse}, {audience: ledger.AudienceCompanies, roles: deciderRoles}, {audience: ledger.AudienceBorrower}},
	loan.EventReturnDecision: {{audience: ledger.AudienceBorrower}, {audience: ledger.AudienceEntitas}, {audience: ledger.AudienceCompanies}},
	loan.EventReminder:       {{audience: ledger.AudienceBorrower}, {audience: ledger.AudienceEntitas}, {audience: ledger.AudienceCompanies}},
}

// Plan builds one job per audience routed for the event. Audiences with no
// recipient produce no job.
func Plan(slot loan.LedgerSlot, r Recipients, vars map[string]string) []Job {
	var jobs []Job
	for _, rt := range routes[slot.Event] {
		rs := r.Of(rt.audience)
		if len(rt.roles) > 0 {
			rs = WithRoles(rs, rt.roles...)
		}
		if len(rs) == 0 {
			continue
		}
		jobs = append(jobs, Job{Slot: slot, Audience: rt.audience, Recipients: rs, Vars: vars})
	}
	return jobs
}

// Provisional records every planned recipient as not yet sent. It is written
// together with the transition so the ledger shows what is owed.
func Provisional(led *ledger.Ledger, jobs []Job) {
	for _, j := range jobs {
		for _, rc := range j.Recipients {
			led.MergePending(ledger.Entry{Audience: j.Audience, Key: rc.Key, Role: rc.Role, Email: rc.Email})
		}
	}
}
