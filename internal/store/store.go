// Package store persists discovered companies and their contact history.
// Companies are keyed by a normalized form of their name so repeated
// discovery runs update rather than duplicate.
package store

import (
	"context"

	"github.com/contactloop/leadscout/internal/model"
)

// CompanyFilter specifies criteria for listing companies.
type CompanyFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for discovery results.
type Store interface {
	// Companies. UpsertCompany inserts or, when a company with the same
	// normalized name exists, merges into it. Known channel values are
	// never overwritten with unknown ones.
	UpsertCompany(ctx context.Context, company model.EnrichedCompany) (*model.StoredCompany, error)
	GetCompany(ctx context.Context, id string) (*model.StoredCompany, error)
	GetCompanyByName(ctx context.Context, name string) (*model.StoredCompany, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.StoredCompany, error)

	// Contact history
	LogContact(ctx context.Context, companyID, method, status string) (*model.ContactLog, error)
	ListContacts(ctx context.Context, companyID string) ([]model.ContactLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
