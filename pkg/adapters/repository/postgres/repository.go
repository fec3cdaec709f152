package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(dbURL string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &PostgresRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		owner_id UUID,
		original_url VARCHAR(2048) NOT NULL,
		short_code VARCHAR(100) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ,
		click_count BIGINT NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_links_short_code ON links(short_code);
	CREATE INDEX IF NOT EXISTS idx_links_owner_url ON links(owner_id, original_url);
	`
	_, err := db.Exec(query)
	return err
}

// 23505 is the Postgres unique_violation class.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (owner_id, original_url, short_code, created_at, expires_at, click_count)
			  VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	var owner any
	if link.OwnerID != nil {
		owner = link.OwnerID.String()
	}
	var expires sql.NullTime
	if link.ExpiresAt != nil {
		expires = sql.NullTime{Time: *link.ExpiresAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, owner, link.OriginalURL, link.ShortCode,
		link.CreatedAt, expires, link.ClickCount).Scan(&link.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT id, owner_id, original_url, short_code, created_at, expires_at, click_count
			  FROM links WHERE short_code = $1`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *PostgresRepository) UpdateOriginalURL(ctx context.Context, code string, originalURL string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE links SET original_url = $1 WHERE short_code = $2`, originalURL, code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) IncrementClicks(ctx context.Context, code string) (int64, error) {
	query := `UPDATE links SET click_count = click_count + 1 WHERE short_code = $1 RETURNING click_count`

	var count int64
	err := r.db.QueryRowContext(ctx, query, code).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) DeleteByShortCode(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = $1`, code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindByOwnerAndURL(ctx context.Context, owner uuid.UUID, originalURL string) ([]domain.Link, error) {
	query := `SELECT id, owner_id, original_url, short_code, created_at, expires_at, click_count
			  FROM links WHERE owner_id = $1 AND original_url = $2 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, owner.String(), originalURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

func (r *PostgresRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT id, owner_id, original_url, short_code, created_at, expires_at, click_count FROM links`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var link domain.Link
	var owner sql.NullString
	var expires sql.NullTime

	err := row.Scan(&link.ID, &owner, &link.OriginalURL, &link.ShortCode,
		&link.CreatedAt, &expires, &link.ClickCount)
	if err != nil {
		return nil, err
	}

	if owner.Valid {
		id, err := uuid.Parse(owner.String)
		if err != nil {
			return nil, err
		}
		link.OwnerID = &id
	}
	if expires.Valid {
		t := expires.Time
		link.ExpiresAt = &t
	}
	return &link, nil
}

func collectLinks(rows *sql.Rows) ([]domain.Link, error) {
	var links []domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// Ensure interface compliance
var _ ports.LinkRepository = (*PostgresRepository)(nil)
