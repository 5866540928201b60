package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/usecase/notify"
)

//go:embed templates/*.html
var files embed.FS

const subjectPrefix = "[Asset Loan] "

var subjects = map[loan.Event]func(v view) string{
	loan.EventSubmit:        func(v view) string { return "New loan request " + v.LoanID },
	loan.EventApproval:      func(v view) string { return "Approval update for loan " + v.LoanID },
	loan.EventWarehouse:     func(v view) string { return "Warehouse update for loan " + v.LoanID },
	loan.EventExtendRequest: func(v view) string { return "Extension requested for loan " + v.LoanID },
	loan.EventExtendDecision: func(v view) string {
		return fmt.Sprintf("Extension %s for loan %s", decisionWord(v.Vars["action"]), v.LoanID)
	},
	loan.EventReturnRequest: func(v view) string { return "Return submitted for loan " + v.LoanID },
	loan.EventReturnDecision: func(v view) string {
		return fmt.Sprintf("Return %s for loan %s", decisionWord(v.Vars["action"]), v.LoanID)
	},
	loan.EventReminder: func(v view) string {
		switch v.Vars["type"] {
		case loan.ReminderDueToday:
			return "Loan " + v.LoanID + " is due today"
		case loan.ReminderOverdue:
			return "Loan " + v.LoanID + " is overdue"
		}
		return fmt.Sprintf("Loan %s is due in %s day(s)", v.LoanID, v.Vars["offset"])
	},
}

var funcs = template.FuncMap{
	"join":     strings.Join,
	"rejected": isRejected,
}

// view is what the templates see.
type view struct {
	Loan       *loan.Loan
	LoanID     string
	Borrower   string
	Companies  []string
	Status     string
	ReturnDate string
	Audience   string
	Vars       map[string]string
}

// TemplateRenderer renders one HTML template per event inside a shared layout.
type TemplateRenderer struct {
	sets map[loan.Event]*template.Template
	loc  *time.Location
}

// NewRenderer parses every event template. Dates are shown in loc.
func NewRenderer(loc *time.Location) (*TemplateRenderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := &TemplateRenderer{sets: make(map[loan.Event]*template.Template, len(subjects)), loc: loc}
	for ev := range subjects {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(files, "templates/layout.html", "templates/"+string(ev)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", ev, err)
		}
		r.sets[ev] = t
	}
	return r, nil
}

func (r *TemplateRenderer) Render(j notify.Job, l *loan.Loan) (notify.Message, error) {
	t, ok := r.sets[j.Slot.Event]
	if !ok {
		return notify.Message{}, fmt.Errorf("no template for event %q", j.Slot.Event)
	}
	if l == nil {
		return notify.Message{}, fmt.Errorf("render %s: missing loan snapshot", j.Slot.Event)
	}
	v := view{
		Loan:      l,
		LoanID:    l.LoanID,
		Borrower:  l.BorrowerName,
		Companies: l.Companies(),
		Status:    loan.DeriveStatus(l).String(),
		Audience:  string(j.Audience),
		Vars:      j.Vars,
	}
	if due := loan.EffectiveReturnDate(l); due != nil {
		v.ReturnDate = due.In(r.loc).Format("2 Jan 2006")
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return notify.Message{}, fmt.Errorf("render %s: %w", j.Slot.Event, err)
	}
	return notify.Message{Subject: subjectPrefix + subjects[j.Slot.Event](v), HTML: buf.String()}, nil
}

func isRejected(action string) bool {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case loan.ActionReject, "rejected", strings.ToLower(loan.ReturnRejected):
		return true
	}
	return false
}

func decisionWord(action string) string {
	if isRejected(action) {
		return "rejected"
	}
	return "approved"
}
