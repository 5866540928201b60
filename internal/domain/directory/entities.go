package directory

import (
	"time"

	"gorm.io/datatypes"
)

// Entitas is the organizational unit a borrower acts for. Emails maps a role
// (head, finance, admin, others) to one or more comma separated addresses.
type Entitas struct {
	ID        uint64                                `gorm:"primaryKey;column:id" json:"-"`
	Code      string                                `gorm:"size:64;uniqueIndex;column:code" json:"code"`
	Name      string                                `gorm:"size:160;column:name" json:"name"`
	Emails    datatypes.JSONType[map[string]string] `gorm:"column:emails" json:"emails"`
	CreatedAt time.Time                             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                             `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Entitas) TableName() string { return "entitas" }

// Company is a marketing company referenced by loans. Its role map may contain
// a "warehouse" role which is routed separately from the other roles.
type Company struct {
	ID        uint64                                `gorm:"primaryKey;column:id" json:"-"`
	Value     string                                `gorm:"size:64;uniqueIndex;column:value" json:"value"`
	Name      string                                `gorm:"size:160;column:name" json:"name"`
	Emails    datatypes.JSONType[map[string]string] `gorm:"column:emails" json:"emails"`
	CreatedAt time.Time                             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                             `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }

// CompanyEmails is the lookup result for one company value.
type CompanyEmails struct {
	Value  string
	Emails map[string]string
}
