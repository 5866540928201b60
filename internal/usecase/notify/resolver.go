package notify

import (
	"context"
	"errors"
	"sort"
	"strings"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
)

// DefaultEntitasRoles are expanded when no roles are configured.
var DefaultEntitasRoles = []string{"head", "finance", "admin", "others"}

// Recipient is one address for one ledger path. Key is the entitas code or
// company value; both Key and Role are empty for the borrower.
type Recipient struct {
	Key   string
	Role  string
	Email string
}

// Recipients holds the resolved, per-audience deduplicated addresses of a loan.
type Recipients struct {
	Borrower  []Recipient
	Entitas   []Recipient
	Companies []Recipient
	Warehouse []Recipient
}

// Of returns the bucket for one audience.
func (r Recipients) Of(a ledger.Audience) []Recipient {
	switch a {
	case ledger.AudienceBorrower:
		return r.Borrower
	case ledger.AudienceEntitas:
		return r.Entitas
	case ledger.AudienceCompanies:
		return r.Companies
	case ledger.AudienceWarehouse:
		return r.Warehouse
	}
	return nil
}

// Without drops whole audiences.
func (r Recipients) Without(audiences ...ledger.Audience) Recipients {
	for _, a := range audiences {
		switch a {
		case ledger.AudienceBorrower:
			r.Borrower = nil
		case ledger.AudienceEntitas:
			r.Entitas = nil
		case ledger.AudienceCompanies:
			r.Companies = nil
		case ledger.AudienceWarehouse:
			r.Warehouse = nil
		}
	}
	return r
}

// Emails returns the distinct lower-cased addresses in first-seen order.
func Emails(rs []Recipient) []string {
	seen := make(map[string]bool, len(rs))
	var out []string
	for _, r := range rs {
		if !seen[r.Email] {
			seen[r.Email] = true
			out = append(out, r.Email)
		}
	}
	return out
}

// WithRoles keeps the recipients whose role matches one of roles.
func WithRoles(rs []Recipient, roles ...string) []Recipient {
	var out []Recipient
	for _, r := range rs {
		for _, role := range roles {
			if strings.EqualFold(r.Role, role) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Resolver turns a loan into its audience lists using the directories.
type Resolver struct {
	dir          directory.Repository
	entitasRoles []string
}

func NewResolver(dir directory.Repository, entitasRoles []string) *Resolver {
	if len(entitasRoles) == 0 {
		entitasRoles = DefaultEntitasRoles
	}
	return &Resolver{dir: dir, entitasRoles: entitasRoles}
}

// Resolve never fails on an unknown entitas or company; those buckets are just
// empty. Any other lookup error is returned along with whatever did resolve.
func (r *Resolver) Resolve(ctx context.Context, l *loan.Loan) (Recipients, error) {
	var out Recipients
	var errs []error

	if email := normalize(l.BorrowerEmail); email != "" {
		out.Borrower = []Recipient{{Email: email}}
	}

	if code := strings.TrimSpace(l.EntitasID); code != "" {
		emails, err := r.dir.GetEntitasEmails(ctx, code)
		switch {
		case err == nil:
			b := newBucket()
			for _, role := range r.entitasRoles {
				for _, addr := range splitAddresses(lookupRole(emails, role)) {
					b.add(Recipient{Key: code, Role: strings.ToLower(role), Email: addr})
				}
			}
			out.Entitas = b.items
		case !errors.Is(err, failure.ErrNotFound):
			errs = append(errs, err)
		}
	}

	if values := l.Companies(); len(values) > 0 {
		companies, err := r.dir.GetCompaniesEmails(ctx, values)
		if err != nil {
			errs = append(errs, err)
		}
		comp, wh := newBucket(), newBucket()
		for _, c := range companies {
			roles := make([]string, 0, len(c.Emails))
			for role := range c.Emails {
				roles = append(roles, role)
			}
			sort.Strings(roles)
			for _, role := range roles {
				target := comp
				if strings.EqualFold(strings.TrimSpace(role), "warehouse") {
					target = wh
				}
				for _, addr := range splitAddresses(c.Emails[role]) {
					target.add(Recipient{Key: c.Value, Role: strings.ToLower(strings.TrimSpace(role)), Email: addr})
				}
			}
		}
		out.Companies, out.Warehouse = comp.items, wh.items
	}

	return out, errors.Join(errs...)
}

// bucket dedupes by (key, role, email).
type bucket struct {
	seen  map[Recipient]bool
	items []Recipient
}

func newBucket() *bucket { return &bucket{seen: map[Recipient]bool{}} }

func (b *bucket) add(r Recipient) {
	if r.Email == "" || b.seen[r] {
		return
	}
	b.seen[r] = true
	b.items = append(b.items, r)
}

func lookupRole(emails map[string]string, role string) string {
	if v, ok := emails[role]; ok {
		return v
	}
	for k, v := range emails {
		if strings.EqualFold(k, role) {
			return v
		}
	}
	return ""
}

// splitAddresses accepts comma or semicolon separated lists.
func splitAddresses(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if e := normalize(p); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
