package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx) using the pgx driver.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateLocal(ctx context.Context, username, passwordHash string) (*models.Credential, error) {
	query :=
		`INSERT INTO user_creds (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, username, password_hash, provider_id
		 `

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, username, passwordHash))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *PostgresRepository) CreateFederated(ctx context.Context, providerID string) (*models.Credential, error) {
	query :=
		`INSERT INTO user_creds (provider_id)
		 VALUES ($1)
		 RETURNING id, username, password_hash, provider_id
		 `

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, providerID))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *PostgresRepository) CreateDetail(ctx context.Context, d *models.Detail) error {
	query :=
		`INSERT INTO user_details (user_id, name, city, mobile)
		 VALUES ($1, $2, $3, $4)
		 `

	if _, err := r.db.ExecContext(ctx, query, d.UserID, d.Name, d.City, nullString(d.Mobile)); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteCredential(ctx context.Context, id string) error {
	query := `DELETE FROM user_creds WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Credential, error) {
	query :=
		`SELECT id, username, password_hash, provider_id FROM user_creds
		 WHERE username = $1
		 `
	return r.findCredential(ctx, query, username)
}

func (r *PostgresRepository) FindByProviderID(ctx context.Context, providerID string) (*models.Credential, error) {
	query :=
		`SELECT id, username, password_hash, provider_id FROM user_creds
		 WHERE provider_id = $1
		 `
	return r.findCredential(ctx, query, providerID)
}

func (r *PostgresRepository) FindFullUserByID(ctx context.Context, id string) (*models.FullUser, error) {
	query :=
		`SELECT id, username, password_hash, provider_id, name, city, mobile FROM full_user
		 WHERE id = $1
		 `
	return r.findFullUser(ctx, query, id)
}

func (r *PostgresRepository) FindFullUserByUsername(ctx context.Context, username string) (*models.FullUser, error) {
	query :=
		`SELECT id, username, password_hash, provider_id, name, city, mobile FROM full_user
		 WHERE username = $1
		 `
	return r.findFullUser(ctx, query, username)
}

func (r *PostgresRepository) FindFullUserByProviderID(ctx context.Context, providerID string) (*models.FullUser, error) {
	query :=
		`SELECT id, username, password_hash, provider_id, name, city, mobile FROM full_user
		 WHERE provider_id = $1
		 `
	return r.findFullUser(ctx, query, providerID)
}

func (r *PostgresRepository) findCredential(ctx context.Context, query string, arg string) (*models.Credential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, r.wrap(err)
	}
	return c, nil
}

func (r *PostgresRepository) findFullUser(ctx context.Context, query string, arg string) (*models.FullUser, error) {
	u, err := scanFullUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, r.wrap(err)
	}
	return u, nil
}

func (r *PostgresRepository) wrap(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("db error: %w: %s", common.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w: %w", common.ErrDependency, err)
}
