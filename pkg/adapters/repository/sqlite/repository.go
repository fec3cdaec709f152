package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		click_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_links_short_code ON links(short_code);
	CREATE INDEX IF NOT EXISTS idx_links_owner_url ON links(owner_id, original_url);
	`
	_, err := db.Exec(query)
	return err
}

// isUniqueViolation matches both the modernc and libsql error texts for
// a violated UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (owner_id, original_url, short_code, created_at, expires_at, click_count)
			  VALUES (?, ?, ?, ?, ?, ?)`

	var owner sql.NullString
	if link.OwnerID != nil {
		owner = sql.NullString{String: link.OwnerID.String(), Valid: true}
	}
	var expires sql.NullTime
	if link.ExpiresAt != nil {
		expires = sql.NullTime{Time: *link.ExpiresAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, owner, link.OriginalURL, link.ShortCode, link.CreatedAt, expires, link.ClickCount)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeTaken
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT id, owner_id, original_url, short_code, created_at, expires_at, click_count
			  FROM links WHERE short_code = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) UpdateOriginalURL(ctx context.Context, code string, originalURL string) error {
	query := `UPDATE links SET original_url = ? WHERE short_code = ?`
	res, err := r.db.ExecContext(ctx, query, originalURL, code)
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

func (r *SQLiteRepository) IncrementClicks(ctx context.Context, code string) (int64, error) {
	query := `UPDATE links SET click_count = click_count + 1 WHERE short_code = ? RETURNING click_count`

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

func (r *SQLiteRepository) DeleteByShortCode(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = ?`, code)
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

func (r *SQLiteRepository) FindByOwnerAndURL(ctx context.Context, owner uuid.UUID, originalURL string) ([]domain.Link, error) {
	query := `SELECT id, owner_id, original_url, short_code, created_at, expires_at, click_count
			  FROM links WHERE owner_id = ? AND original_url = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, owner.String(), originalURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
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
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
