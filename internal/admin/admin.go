// Package admin implements the operator command that creates local accounts
// from a terminal, applying the same validation and hashing as sign-up.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/dmitrijs2005/inkwell/internal/server/services"
)

var ErrPasswordMismatch = errors.New("password doesn't match")

type SignUpper interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*models.FullUser, error)
}

type App struct {
	users  SignUpper
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(users SignUpper, in io.Reader, out io.Writer) *App {
	return &App{users: users, reader: bufio.NewReader(in), out: out}
}

// CreateUser prompts for the account fields, asks for the password twice and
// creates the account.
func (a *App) CreateUser(ctx context.Context) (*models.FullUser, error) {
	var in services.SignUpInput

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Name", &in.Name},
		{"City", &in.City},
		{"Username", &in.Username},
		{"Mobile (optional, 10 digits)", &in.Mobile},
	}
	for _, f := range fields {
		v, err := GetSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return nil, ErrPasswordMismatch
	}
	in.Password = string(pw)

	u, err := a.users.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Created account %s (%s)\n", u.DisplayName(), u.ID)
	return u, nil
}

// Describe turns a CreateUser error into the message shown to the operator.
func Describe(err error) string {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, common.ErrAlreadyExists):
		return "Username already exists"
	case errors.Is(err, ErrPasswordMismatch):
		return "Password doesn't match!"
	default:
		return fmt.Sprintf("Cannot create account: %v", err)
	}
}
