package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/contactloop/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	name_key         TEXT NOT NULL UNIQUE,
	place_id         TEXT,
	address          TEXT,
	rating           REAL,
	phone            TEXT,
	website          TEXT,
	contact_form_url TEXT,
	linkedin_profile TEXT,
	twitter_handle   TEXT,
	telegram_handle  TEXT,
	live_chat_url    TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contact_logs (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL REFERENCES companies(id),
	method     TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_name_key ON companies(name_key);
CREATE INDEX IF NOT EXISTS idx_contact_logs_company_id ON contact_logs(company_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, company model.EnrichedCompany) (*model.StoredCompany, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	key := NameKey(company.Name)
	if key == "" {
		return nil, eris.New("sqlite: company name is empty")
	}

	// COALESCE keeps previously discovered values when a newer run comes
	// back with that field unknown.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies
		 (id, name, name_key, place_id, address, rating, phone, website,
		  contact_form_url, linkedin_profile, twitter_handle, telegram_handle, live_chat_url,
		  created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name_key) DO UPDATE SET
		   name             = excluded.name,
		   place_id         = COALESCE(excluded.place_id, companies.place_id),
		   address          = COALESCE(excluded.address, companies.address),
		   rating           = COALESCE(excluded.rating, companies.rating),
		   phone            = COALESCE(excluded.phone, companies.phone),
		   website          = COALESCE(excluded.website, companies.website),
		   contact_form_url = COALESCE(excluded.contact_form_url, companies.contact_form_url),
		   linkedin_profile = COALESCE(excluded.linkedin_profile, companies.linkedin_profile),
		   twitter_handle   = COALESCE(excluded.twitter_handle, companies.twitter_handle),
		   telegram_handle  = COALESCE(excluded.telegram_handle, companies.telegram_handle),
		   live_chat_url    = COALESCE(excluded.live_chat_url, companies.live_chat_url),
		   updated_at       = excluded.updated_at`,
		id, company.Name, key,
		nullable(company.PlaceID), nullable(company.Address), company.Rating,
		company.Phone, company.Website,
		company.ContactFormURL, company.LinkedInProfile, company.TwitterHandle,
		company.TelegramHandle, company.LiveChatURL,
		now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert company %s", company.Name)
	}

	return s.getCompanyBy(ctx, "name_key", key)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.StoredCompany, error) {
	return s.getCompanyBy(ctx, "id", id)
}

func (s *SQLiteStore) GetCompanyByName(ctx context.Context, name string) (*model.StoredCompany, error) {
	return s.getCompanyBy(ctx, "name_key", NameKey(name))
}

const companyColumns = `id, name, place_id, address, rating, phone, website,
	contact_form_url, linkedin_profile, twitter_handle, telegram_handle, live_chat_url,
	created_at, updated_at`

func (s *SQLiteStore) getCompanyBy(ctx context.Context, column, value string) (*model.StoredCompany, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE `+column+` = ?`,
		value,
	)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company by %s", column)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.StoredCompany, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	var args []any

	if filter.Search != "" {
		query += ` AND name_key LIKE ?`
		args = append(args, "%"+NameKey(filter.Search)+"%")
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.StoredCompany
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) LogContact(ctx context.Context, companyID, method, status string) (*model.ContactLog, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_logs (id, company_id, method, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, companyID, method, status, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: log contact for company %s", companyID)
	}

	return &model.ContactLog{
		ID:        id,
		CompanyID: companyID,
		Method:    method,
		Status:    status,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, companyID string) ([]model.ContactLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, method, status, created_at FROM contact_logs
		 WHERE company_id = ? ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var logs []model.ContactLog
	for rows.Next() {
		var l model.ContactLog
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Method, &l.Status, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

// helpers

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*model.StoredCompany, error) {
	var c model.StoredCompany
	var placeID, address sql.NullString

	err := row.Scan(
		&c.ID, &c.Name, &placeID, &address, &c.Rating, &c.Phone, &c.Website,
		&c.ContactFormURL, &c.LinkedInProfile, &c.TwitterHandle,
		&c.TelegramHandle, &c.LiveChatURL,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PlaceID = placeID.String
	c.Address = address.String
	return &c, nil
}
