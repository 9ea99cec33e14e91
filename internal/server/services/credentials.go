// Package services contains server-side business logic: account storage with
// compensated creation, local sign-up and sign-in.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/users"
)

// CredentialStore keeps every account as a credential record plus a detail
// record and guarantees that no credential survives without its detail.
//
// Creation is not transactional: when the detail insert fails the credential
// is deleted again. A failed compensation is logged as an integrity error and
// the original failure is still returned.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *CredentialStore {
	return &CredentialStore{db: db, repomanager: m, logger: logger}
}

func (s *CredentialStore) users() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*models.Credential, error) {
	return s.users().FindByUsername(ctx, username)
}

func (s *CredentialStore) FindByProviderID(ctx context.Context, providerID string) (*models.Credential, error) {
	return s.users().FindByProviderID(ctx, providerID)
}

func (s *CredentialStore) FindFullUserByID(ctx context.Context, id string) (*models.FullUser, error) {
	return s.users().FindFullUserByID(ctx, id)
}

func (s *CredentialStore) FindFullUserByUsername(ctx context.Context, username string) (*models.FullUser, error) {
	return s.users().FindFullUserByUsername(ctx, username)
}

func (s *CredentialStore) FindFullUserByProviderID(ctx context.Context, providerID string) (*models.FullUser, error) {
	return s.users().FindFullUserByProviderID(ctx, providerID)
}

// CreateLocalAccount stores a username/password account. A taken username
// yields an error wrapping common.ErrAlreadyExists and leaves nothing behind.
func (s *CredentialStore) CreateLocalAccount(ctx context.Context, username, passwordHash, name, city string, mobile *string) (*models.FullUser, error) {
	repo := s.users()

	cred, err := repo.CreateLocal(ctx, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	detail := &models.Detail{UserID: cred.ID, Name: name, City: city, Mobile: mobile}
	if err := s.attachDetail(ctx, repo, detail); err != nil {
		return nil, err
	}

	return s.reload(ctx, repo, cred.ID)
}

// CreateFederatedAccount stores an account authenticated by an external
// provider. Federated accounts have an empty city and no mobile.
func (s *CredentialStore) CreateFederatedAccount(ctx context.Context, providerID, name string) (*models.FullUser, error) {
	repo := s.users()

	cred, err := repo.CreateFederated(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	if err := s.attachDetail(ctx, repo, &models.Detail{UserID: cred.ID, Name: name}); err != nil {
		return nil, err
	}

	return s.reload(ctx, repo, cred.ID)
}

func (s *CredentialStore) attachDetail(ctx context.Context, repo users.Repository, detail *models.Detail) error {
	err := repo.CreateDetail(ctx, detail)
	if err == nil {
		return nil
	}

	s.logger.Warn(ctx, "detail insert failed, removing credential", "credential_id", detail.UserID, "error", err)

	// the caller may already be gone; the cleanup must still run
	if derr := repo.DeleteCredential(context.WithoutCancel(ctx), detail.UserID); derr != nil {
		s.logger.Error(ctx, "orphan credential left in store",
			"credential_id", detail.UserID,
			"error", fmt.Errorf("%w: %w", common.ErrIntegrity, derr),
		)
	}

	return fmt.Errorf("create detail: %w", err)
}

func (s *CredentialStore) reload(ctx context.Context, repo users.Repository, id string) (*models.FullUser, error) {
	u, err := repo.FindFullUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload account %s: %w", id, err)
	}
	return u, nil
}
