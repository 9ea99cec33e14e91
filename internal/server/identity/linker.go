// Package identity links external identity provider profiles to local
// accounts and issues session tokens for them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
)

// AccountStore is the subset of services.CredentialStore the linker needs.
type AccountStore interface {
	FindByProviderID(ctx context.Context, providerID string) (*models.Credential, error)
	FindFullUserByID(ctx context.Context, id string) (*models.FullUser, error)
	FindFullUserByProviderID(ctx context.Context, providerID string) (*models.FullUser, error)
	CreateFederatedAccount(ctx context.Context, providerID, name string) (*models.FullUser, error)
}

type TokenSigner interface {
	Sign(claims auth.Claims, ttl time.Duration) (string, error)
}

// LinkResult is the account behind a provider profile and a fresh token for it.
type LinkResult struct {
	User  *models.FullUser
	Token string
}

// Linker finds or creates the account for a provider profile.
type Linker struct {
	store  AccountStore
	tokens TokenSigner
	ttl    time.Duration
	logger logging.Logger
}

func NewLinker(store AccountStore, tokens TokenSigner, ttl time.Duration, logger logging.Logger) *Linker {
	return &Linker{store: store, tokens: tokens, ttl: ttl, logger: logger}
}

// Link resolves profile to an account, creating one on first sign-in, and
// signs a token carrying the account id and display name.
//
// Two concurrent first sign-ins with the same provider id end up on the same
// account: the loser of the insert race re-reads the winner's record.
func (l *Linker) Link(ctx context.Context, profile models.Profile) (*LinkResult, error) {
	if profile.ProviderID == "" {
		return nil, fmt.Errorf("%w: profile without provider id", common.ErrDependency)
	}

	user, err := l.resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := l.tokens.Sign(auth.Claims{UserID: user.ID, Name: user.Name}, l.ttl)
	if err != nil {
		return nil, err
	}

	return &LinkResult{User: user, Token: token}, nil
}

func (l *Linker) resolve(ctx context.Context, profile models.Profile) (*models.FullUser, error) {
	cred, err := l.store.FindByProviderID(ctx, profile.ProviderID)
	switch {
	case err == nil:
		return l.store.FindFullUserByID(ctx, cred.ID)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("lookup provider id: %w", err)
	}

	user, err := l.store.CreateFederatedAccount(ctx, profile.ProviderID, profile.DisplayName)
	if errors.Is(err, common.ErrAlreadyExists) {
		l.logger.Debug(ctx, "lost federated account race, re-reading", "provider_id", profile.ProviderID)
		return l.store.FindFullUserByProviderID(ctx, profile.ProviderID)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "federated account created", "user_id", user.ID)
	return user, nil
}
