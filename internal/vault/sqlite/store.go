package sqlite

import (
	"context"
	"database/sql"

	"github.com/ArcheWizard/Password-Manager/internal/vault"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed credential store.
type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListCredentials(ctx context.Context) ([]vault.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, website, username, password, category, notes, created_at, updated_at, favorite
		FROM passwords
		ORDER BY website, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vault.Credential
	for rows.Next() {
		var c vault.Credential
		if err := rows.Scan(&c.ID, &c.Website, &c.Username, &c.EncryptedPassword,
			&c.Category, &c.Notes, &c.CreatedAt, &c.UpdatedAt, &c.Favorite); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) StoreCredential(ctx context.Context, c vault.Credential) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO passwords (website, username, password, category, notes, favorite)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Website, c.Username, c.EncryptedPassword, c.Category, c.Notes, c.Favorite)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) DeleteCredential(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM passwords WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return vault.ErrNotFound
	}
	return nil
}
