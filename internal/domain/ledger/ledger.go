// Package ledger records, per notification event, which recipients were
// successfully sent a message. Writes only ever turn receipts on: a receipt
// that is marked sent stays sent through every merge.
package ledger

import (
	"strings"
	"time"
)

type Audience string

const (
	AudienceBorrower  Audience = "borrower"
	AudienceEntitas   Audience = "entitas"
	AudienceCompanies Audience = "companies"
	AudienceWarehouse Audience = "warehouse"
)

type Receipt struct {
	Sent   bool       `json:"sent"`
	SentAt *time.Time `json:"sentAt,omitempty"`
	Email  string     `json:"email"`
}

// Ledger is keyed by audience; keyed audiences nest key (entitas code or
// company value) then role.
type Ledger struct {
	Borrower  *Receipt                      `json:"borrower"`
	Entitas   map[string]map[string]Receipt `json:"entitas,omitempty"`
	Companies map[string]map[string]Receipt `json:"companies,omitempty"`
	Warehouse map[string]map[string]Receipt `json:"warehouse,omitempty"`
}

// Entry addresses a single receipt in a ledger.
type Entry struct {
	Audience Audience
	Key      string
	Role     string
	Email    string
	SentAt   time.Time
}

func (l *Ledger) bucket(a Audience, create bool) map[string]map[string]Receipt {
	var m *map[string]map[string]Receipt
	switch a {
	case AudienceEntitas:
		m = &l.Entitas
	case AudienceCompanies:
		m = &l.Companies
	case AudienceWarehouse:
		m = &l.Warehouse
	default:
		return nil
	}
	if *m == nil && create {
		*m = map[string]map[string]Receipt{}
	}
	return *m
}

func (l *Ledger) get(a Audience, key, role string) (Receipt, bool) {
	if a == AudienceBorrower {
		if l.Borrower == nil {
			return Receipt{}, false
		}
		return *l.Borrower, true
	}
	b := l.bucket(a, false)
	if b == nil || b[key] == nil {
		return Receipt{}, false
	}
	r, ok := b[key][role]
	return r, ok
}

func (l *Ledger) put(a Audience, key, role string, r Receipt) {
	if a == AudienceBorrower {
		l.Borrower = &r
		return
	}
	b := l.bucket(a, true)
	if b == nil {
		return
	}
	if b[key] == nil {
		b[key] = map[string]Receipt{}
	}
	b[key][role] = r
}

// combine is the pointwise join used by every write: sent wins, the earliest
// sentAt wins, and an address is never blanked.
func combine(cur Receipt, next Receipt) Receipt {
	out := cur
	switch {
	case !cur.Sent && next.Sent:
		out = next
		if out.Email == "" {
			out.Email = cur.Email
		}
	case cur.Sent && next.Sent:
		if next.SentAt != nil && (cur.SentAt == nil || next.SentAt.Before(*cur.SentAt)) {
			t := *next.SentAt
			out.SentAt = &t
		}
	}
	if out.Email == "" {
		out.Email = next.Email
	}
	return out
}

// MergeSent marks one receipt as sent. Applying the same receipt again leaves
// the ledger unchanged.
func (l *Ledger) MergeSent(e Entry) {
	at := e.SentAt.UTC()
	next := Receipt{Sent: true, SentAt: &at, Email: normalizeEmail(e.Email)}
	cur, _ := l.get(e.Audience, e.Key, e.Role)
	l.put(e.Audience, e.Key, e.Role, combine(cur, next))
}

// MergePending records a recipient as expected but not yet sent. Existing
// receipts, sent or not, are kept.
func (l *Ledger) MergePending(e Entry) {
	if _, ok := l.get(e.Audience, e.Key, e.Role); ok {
		return
	}
	l.put(e.Audience, e.Key, e.Role, Receipt{Email: normalizeEmail(e.Email)})
}

func (l *Ledger) IsSent(a Audience, key, role string) bool {
	r, ok := l.get(a, key, role)
	return ok && r.Sent
}

// Merge folds other into l without dropping any receipt l already holds.
func (l *Ledger) Merge(other Ledger) {
	if other.Borrower != nil {
		cur, _ := l.get(AudienceBorrower, "", "")
		l.put(AudienceBorrower, "", "", combine(cur, *other.Borrower))
	}
	for _, a := range []Audience{AudienceEntitas, AudienceCompanies, AudienceWarehouse} {
		for key, roles := range other.bucket(a, false) {
			for role, r := range roles {
				cur, _ := l.get(a, key, role)
				l.put(a, key, role, combine(cur, r))
			}
		}
	}
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	var out Ledger
	out.Merge(l)
	return out
}

// Entries lists every receipt, grouped by audience.
func (l Ledger) Entries() []Entry {
	var out []Entry
	if l.Borrower != nil {
		out = append(out, Entry{Audience: AudienceBorrower, Email: l.Borrower.Email})
	}
	for _, a := range []Audience{AudienceEntitas, AudienceCompanies, AudienceWarehouse} {
		for key, roles := range l.bucket(a, false) {
			for role, r := range roles {
				out = append(out, Entry{Audience: a, Key: key, Role: role, Email: r.Email})
			}
		}
	}
	return out
}

func (l Ledger) IsEmpty() bool {
	return l.Borrower == nil && len(l.Entitas) == 0 && len(l.Companies) == 0 && len(l.Warehouse) == 0
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
