package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository on the pure-Go SQLite driver.
// SQLite has no UUID generator, so ids are assigned here.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateLocal(ctx context.Context, username, passwordHash string) (*models.Credential, error) {
	query :=
		`INSERT INTO user_creds (id, username, password_hash)
		 VALUES (?, ?, ?)
		 RETURNING id, username, password_hash, provider_id
		 `

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, uuid.NewString(), username, passwordHash))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateFederated(ctx context.Context, providerID string) (*models.Credential, error) {
	query :=
		`INSERT INTO user_creds (id, provider_id)
		 VALUES (?, ?)
		 RETURNING id, username, password_hash, provider_id
		 `

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, uuid.NewString(), providerID))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateDetail(ctx context.Context, d *models.Detail) error {
	query :=
		`INSERT INTO user_details (user_id, name, city, mobile)
		 VALUES (?, ?, ?, ?)
		 `

	if _, err := r.db.ExecContext(ctx, query, d.UserID, d.Name, d.City, nullString(d.Mobile)); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCredential(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_creds WHERE id = ?`, id); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (*models.Credential, error) {
	return r.findCredential(ctx, "username", username)
}

func (r *SQLiteRepository) FindByProviderID(ctx context.Context, providerID string) (*models.Credential, error) {
	return r.findCredential(ctx, "provider_id", providerID)
}

func (r *SQLiteRepository) FindFullUserByID(ctx context.Context, id string) (*models.FullUser, error) {
	return r.findFullUser(ctx, "id", id)
}

func (r *SQLiteRepository) FindFullUserByUsername(ctx context.Context, username string) (*models.FullUser, error) {
	return r.findFullUser(ctx, "username", username)
}

func (r *SQLiteRepository) FindFullUserByProviderID(ctx context.Context, providerID string) (*models.FullUser, error) {
	return r.findFullUser(ctx, "provider_id", providerID)
}

// column is always one of the constants above, never user input.
func (r *SQLiteRepository) findCredential(ctx context.Context, column, value string) (*models.Credential, error) {
	query := `SELECT id, username, password_hash, provider_id FROM user_creds WHERE ` + column + ` = ?`

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *SQLiteRepository) findFullUser(ctx context.Context, column, value string) (*models.FullUser, error) {
	query := `SELECT id, username, password_hash, provider_id, name, city, mobile FROM full_user WHERE ` + column + ` = ?`

	u, err := scanFullUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, r.wrap(err)
	}
	return u, nil
}

func (r *SQLiteRepository) wrap(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("db error: %w: %s", common.ErrAlreadyExists, liteErr.Error())
	}
	return fmt.Errorf("db error: %w: %w", common.ErrDependency, err)
}
