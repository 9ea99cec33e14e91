package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
)

// AccountStore is the part of CredentialStore used by UserService.
type AccountStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Credential, error)
	CreateLocalAccount(ctx context.Context, username, passwordHash, name, city string, mobile *string) (*models.FullUser, error)
}

// TokenSigner issues session tokens.
type TokenSigner interface {
	Sign(claims auth.Claims, ttl time.Duration) (string, error)
}

// UserService handles local sign-up and sign-in.
type UserService struct {
	store    AccountStore
	tokens   TokenSigner
	tokenTTL time.Duration
}

func NewUserService(store AccountStore, tokens TokenSigner, tokenTTL time.Duration) *UserService {
	return &UserService{store: store, tokens: tokens, tokenTTL: tokenTTL}
}

// SignUp validates the form, hashes the password and creates the account.
//
// Errors: *common.ValidationError for bad input, common.ErrAlreadyExists for a
// taken username, anything else is a store failure.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.FullUser, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateLocalAccount(ctx, in.Username, hash, in.Name, in.City, in.MobileValue())
	if err != nil {
		return nil, fmt.Errorf("sign up %q: %w", in.Username, err)
	}
	return u, nil
}

// SignIn checks a username/password pair and returns a signed session token.
//
// Unknown usernames, federated accounts and wrong passwords all yield
// common.ErrUnauthorized so callers cannot tell them apart.
func (s *UserService) SignIn(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("sign in lookup: %w", err)
	}

	if cred.PasswordHash == nil {
		return "", common.ErrUnauthorized
	}

	ok, err := auth.CheckPassword(*cred.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("%w: credential %s: %w", common.ErrIntegrity, cred.ID, err)
	}
	if !ok {
		return "", common.ErrUnauthorized
	}

	token, err := s.tokens.Sign(auth.Claims{UserID: cred.ID, Username: username}, s.tokenTTL)
	if err != nil {
		return "", err
	}
	return token, nil
}
