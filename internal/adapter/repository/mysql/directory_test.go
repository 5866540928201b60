package mysql

import (
	"context"
	"errors"
	"testing"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/failure"

	"gorm.io/datatypes"
)

func TestDirectoryRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDirectoryRepository(db)

	seed := []any{
		&directory.Entitas{Code: "E1", Name: "Entitas One", Emails: datatypes.NewJSONType(map[string]string{"head": "h@e1.com, h2@e1.com"})},
		&directory.Company{Value: "C1", Emails: datatypes.NewJSONType(map[string]string{"marketing": "m@c1.com", "warehouse": "w@c1.com"})},
		&directory.Company{Value: "C2", Emails: datatypes.NewJSONType(map[string]string{"admin": "a@c2.com"})},
	}
	for _, s := range seed {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	emails, err := repo.GetEntitasEmails(ctx, " E1 ")
	if err != nil || emails["head"] != "h@e1.com, h2@e1.com" {
		t.Fatalf("entitas emails = %v, %v", emails, err)
	}
	if _, err := repo.GetEntitasEmails(ctx, "E9"); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("unknown entitas err = %v", err)
	}

	got, err := repo.GetCompaniesEmails(ctx, []string{"C2", "C-missing", "C1"})
	if err != nil {
		t.Fatalf("GetCompaniesEmails: %v", err)
	}
	if len(got) != 2 || got[0].Value != "C2" || got[1].Value != "C1" {
		t.Fatalf("companies = %+v", got)
	}
	if got[1].Emails["warehouse"] != "w@c1.com" {
		t.Fatalf("C1 emails = %v", got[1].Emails)
	}
}
