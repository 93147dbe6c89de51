package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/contactloop/leadscout/internal/model"
)

// Pool abstracts the pgx connection pool so the store can be exercised
// against a mock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (or a mock) in a PostgresStore.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	name_key         TEXT NOT NULL UNIQUE,
	place_id         TEXT,
	address          TEXT,
	rating           DOUBLE PRECISION,
	phone            TEXT,
	website          TEXT,
	contact_form_url TEXT,
	linkedin_profile TEXT,
	twitter_handle   TEXT,
	telegram_handle  TEXT,
	live_chat_url    TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contact_logs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL REFERENCES companies(id),
	method     TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_name_key ON companies(name_key);
CREATE INDEX IF NOT EXISTS idx_contact_logs_company_id ON contact_logs(company_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgCompanyColumns = `id, name, place_id, address, rating, phone, website,
	contact_form_url, linkedin_profile, twitter_handle, telegram_handle, live_chat_url,
	created_at, updated_at`

const pgUpsertCompany = `INSERT INTO companies
	 (id, name, name_key, place_id, address, rating, phone, website,
	  contact_form_url, linkedin_profile, twitter_handle, telegram_handle, live_chat_url,
	  created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	 ON CONFLICT (name_key) DO UPDATE SET
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
	   updated_at       = excluded.updated_at
	 RETURNING ` + pgCompanyColumns

func (s *PostgresStore) UpsertCompany(ctx context.Context, company model.EnrichedCompany) (*model.StoredCompany, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	key := NameKey(company.Name)
	if key == "" {
		return nil, eris.New("postgres: company name is empty")
	}

	row := s.pool.QueryRow(ctx, pgUpsertCompany,
		id, company.Name, key,
		nullable(company.PlaceID), nullable(company.Address), company.Rating,
		company.Phone, company.Website,
		company.ContactFormURL, company.LinkedInProfile, company.TwitterHandle,
		company.TelegramHandle, company.LiveChatURL,
		now, now,
	)
	c, err := scanCompany(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert company %s", company.Name)
	}
	return c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.StoredCompany, error) {
	return s.getCompanyBy(ctx, "id", id)
}

func (s *PostgresStore) GetCompanyByName(ctx context.Context, name string) (*model.StoredCompany, error) {
	return s.getCompanyBy(ctx, "name_key", NameKey(name))
}

func (s *PostgresStore) getCompanyBy(ctx context.Context, column, value string) (*model.StoredCompany, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgCompanyColumns+` FROM companies WHERE `+column+` = $1`,
		value,
	)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company by %s", column)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.StoredCompany, error) {
	query := `SELECT ` + pgCompanyColumns + ` FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Search != "" {
		query += ` AND name_key LIKE $1`
		args = append(args, "%"+NameKey(filter.Search)+"%")
		argIdx++
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.StoredCompany
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) LogContact(ctx context.Context, companyID, method, status string) (*model.ContactLog, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contact_logs (id, company_id, method, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, companyID, method, status, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: log contact for company %s", companyID)
	}

	return &model.ContactLog{
		ID:        id,
		CompanyID: companyID,
		Method:    method,
		Status:    status,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, companyID string) ([]model.ContactLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, method, status, created_at FROM contact_logs
		 WHERE company_id = $1 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var logs []model.ContactLog
	for rows.Next() {
		var l model.ContactLog
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Method, &l.Status, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}
