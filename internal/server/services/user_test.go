package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *auth.TokenService, *CredentialStore) {
	t.Helper()
	db, rm := openTestDB(t)
	store := NewCredentialStore(db, rm, logging.Nop{})
	tokens, err := auth.NewTokenService([]byte("k"))
	require.NoError(t, err)
	return NewUserService(store, tokens, time.Hour), tokens, store
}

func validSignUp() SignUpInput {
	return SignUpInput{
		Name:     "Alice Anders",
		City:     "Springfield",
		Username: "alice1",
		Password: "secret1",
		Mobile:   "",
	}
}

func TestSignUp_ThenSignIn(t *testing.T) {
	svc, tokens, store := newUserService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)
	assert.Nil(t, u.Mobile)

	cred, err := store.FindByUsername(ctx, "alice1")
	require.NoError(t, err)
	require.NotNil(t, cred.PasswordHash)
	assert.NotEqual(t, "secret1", *cred.PasswordHash)

	token, err := svc.SignIn(ctx, "alice1", "secret1")
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "alice1", claims.Username)
	assert.Empty(t, claims.Name)
}

func TestSignIn_MasksFailures(t *testing.T) {
	svc, _, store := newUserService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)
	_, err = store.CreateFederatedAccount(ctx, "g-001", "Bob Brown")
	require.NoError(t, err)

	for _, tc := range []struct{ name, username, password string }{
		{"wrong password", "alice1", "wrong!"},
		{"unknown user", "nobody1", "secret1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			token, err := svc.SignIn(ctx, tc.username, tc.password)
			assert.Empty(t, token)
			assert.ErrorIs(t, err, common.ErrUnauthorized)
		})
	}
}

func TestSignIn_MissingFields(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.SignIn(context.Background(), "alice1", "")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.SignIn(context.Background(), "", "secret1")
	assert.ErrorIs(t, err, common.ErrValidation)
}

type stubAccounts struct {
	cred    *models.Credential
	findErr error
}

func (s *stubAccounts) FindByUsername(context.Context, string) (*models.Credential, error) {
	return s.cred, s.findErr
}

func (s *stubAccounts) CreateLocalAccount(context.Context, string, string, string, string, *string) (*models.FullUser, error) {
	return nil, errors.New("not used")
}

type stubSigner struct{ err error }

func (s stubSigner) Sign(auth.Claims, time.Duration) (string, error) { return "tok", s.err }

func TestSignIn_StoreFailureIsNotUnauthorized(t *testing.T) {
	svc := NewUserService(&stubAccounts{findErr: common.ErrDependency}, stubSigner{}, time.Hour)

	_, err := svc.SignIn(context.Background(), "alice1", "secret1")
	require.ErrorIs(t, err, common.ErrDependency)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignIn_FederatedAccountByUsernameLookup(t *testing.T) {
	svc := NewUserService(&stubAccounts{cred: &models.Credential{ID: "u1", ProviderID: strPtr("g-001")}}, stubSigner{}, time.Hour)

	_, err := svc.SignIn(context.Background(), "alice1", "secret1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignIn_CorruptHash(t *testing.T) {
	svc := NewUserService(&stubAccounts{cred: &models.Credential{ID: "u1", PasswordHash: strPtr("garbage")}}, stubSigner{}, time.Hour)

	_, err := svc.SignIn(context.Background(), "alice1", "secret1")
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestSignIn_SignerFailure(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	svc := NewUserService(&stubAccounts{cred: &models.Credential{ID: "u1", PasswordHash: &hash}}, stubSigner{err: errBoom}, time.Hour)

	_, err = svc.SignIn(context.Background(), "alice1", "secret1")
	assert.ErrorIs(t, err, errBoom)
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, validSignUp())
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestSignUp_ValidationStopsBeforeStore(t *testing.T) {
	svc, _, store := newUserService(t)
	in := validSignUp()
	in.Password = "12345"

	_, err := svc.SignUp(context.Background(), in)
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	_, err = store.FindByUsername(context.Background(), "alice1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSignUp_LongPasswordIsValidationError(t *testing.T) {
	svc, _, store := newUserService(t)
	in := validSignUp()
	in.Password = strings.Repeat("p", 73)

	_, err := svc.SignUp(context.Background(), in)
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Password must not exceed 72 bytes", ve.Message)

	_, err = store.FindByUsername(context.Background(), "alice1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSignUp_PasswordAtByteLimitSignsIn(t *testing.T) {
	svc, _, _ := newUserService(t)
	in := validSignUp()
	in.Password = strings.Repeat("p", 72)

	_, err := svc.SignUp(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.SignIn(context.Background(), "alice1", in.Password)
	require.NoError(t, err)
}
