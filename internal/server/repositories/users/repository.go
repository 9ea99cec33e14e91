// Package users stores accounts as two linked records: a credential record
// (local username + password hash, or federated provider id) and a detail
// record (name, city, mobile). Both SQL backends expose the same Repository.
package users

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/inkwell/internal/server/models"
)

// Repository is the persistence contract for accounts.
//
// Lookups return common.ErrorNotFound when nothing matches. Inserts that
// violate a uniqueness constraint return an error wrapping
// common.ErrAlreadyExists. Any other store failure wraps common.ErrDependency.
type Repository interface {
	CreateLocal(ctx context.Context, username, passwordHash string) (*models.Credential, error)
	CreateFederated(ctx context.Context, providerID string) (*models.Credential, error)
	CreateDetail(ctx context.Context, detail *models.Detail) error
	DeleteCredential(ctx context.Context, id string) error

	FindByUsername(ctx context.Context, username string) (*models.Credential, error)
	FindByProviderID(ctx context.Context, providerID string) (*models.Credential, error)

	FindFullUserByID(ctx context.Context, id string) (*models.FullUser, error)
	FindFullUserByUsername(ctx context.Context, username string) (*models.FullUser, error)
	FindFullUserByProviderID(ctx context.Context, providerID string) (*models.FullUser, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*models.Credential, error) {
	var (
		c                        models.Credential
		username, hash, provider sql.NullString
	)
	if err := row.Scan(&c.ID, &username, &hash, &provider); err != nil {
		return nil, err
	}
	c.Username = nullable(username)
	c.PasswordHash = nullable(hash)
	c.ProviderID = nullable(provider)
	return &c, nil
}

func scanFullUser(row scanner) (*models.FullUser, error) {
	var (
		u                                models.FullUser
		username, hash, provider, mobile sql.NullString
	)
	if err := row.Scan(&u.ID, &username, &hash, &provider, &u.Name, &u.City, &mobile); err != nil {
		return nil, err
	}
	u.Username = nullable(username)
	u.PasswordHash = nullable(hash)
	u.ProviderID = nullable(provider)
	u.Mobile = nullable(mobile)
	return &u, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
