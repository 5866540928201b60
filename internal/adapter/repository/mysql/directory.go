package mysql

import (
	"context"
	"strings"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/failure"

	"gorm.io/gorm"
)

type DirectoryRepository struct{ db *gorm.DB }

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository { return &DirectoryRepository{db: db} }

func (r *DirectoryRepository) GetEntitasEmails(ctx context.Context, code string) (map[string]string, error) {
	var out directory.Entitas
	res := r.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&out)
	if res.Error != nil {
		return nil, translate("get entitas", "entitas", code, res.Error)
	}
	return out.Emails.Data(), nil
}

// GetCompaniesEmails skips values with no matching row.
func (r *DirectoryRepository) GetCompaniesEmails(ctx context.Context, values []string) ([]directory.CompanyEmails, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var rows []directory.Company
	if err := r.db.WithContext(ctx).Where("value IN ?", values).Find(&rows).Error; err != nil {
		return nil, failure.Persistence("list companies", err)
	}
	byValue := make(map[string]directory.Company, len(rows))
	for _, c := range rows {
		byValue[c.Value] = c
	}
	out := make([]directory.CompanyEmails, 0, len(values))
	for _, v := range values {
		if c, ok := byValue[v]; ok {
			out = append(out, directory.CompanyEmails{Value: c.Value, Emails: c.Emails.Data()})
		}
	}
	return out, nil
}
