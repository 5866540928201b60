package loan

import "strings"

const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleMarketing  = "marketing"
	RoleWarehouse  = "warehouse"
)

// Actor is the caller of a lifecycle operation as asserted by the gateway.
type Actor struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Companies []string
}

func (a Actor) IsAdmin() bool {
	r := strings.ToLower(a.Role)
	return r == RoleSuperAdmin || r == RoleAdmin
}

func (a Actor) IsWarehouse() bool { return strings.EqualFold(a.Role, RoleWarehouse) }

func (a Actor) Owns(company string) bool {
	for _, c := range a.Companies {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(company)) {
			return true
		}
	}
	return false
}

// OwnsAny reports whether the actor owns at least one of the companies.
func (a Actor) OwnsAny(companies []string) bool {
	for _, c := range companies {
		if a.Owns(c) {
			return true
		}
	}
	return false
}

// Display is the name recorded in audit fields.
func (a Actor) Display() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}
