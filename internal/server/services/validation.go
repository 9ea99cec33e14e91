package services

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/inkwell/internal/common"
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// SignUpInput is the sign-up form. An empty Mobile means no mobile number.
type SignUpInput struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Username string `json:"username"`
	Password string `json:"password"`
	Mobile   string `json:"mobile"`
}

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

// lengthRule bounds a field in characters; maxBytes additionally bounds its
// encoded size.
type lengthRule struct {
	field    string
	label    string
	min, max int
	maxBytes int
}

var signUpRules = []lengthRule{
	{field: "name", label: "Name", min: 5, max: 30},
	{field: "city", label: "City", min: 5, max: 20},
	{field: "username", label: "Username", min: 5, max: 15},
	{field: "password", label: "Password", min: 6, maxBytes: maxPasswordBytes},
}

// Validate returns the first violated rule as a *common.ValidationError,
// checking fields in form order.
func (in SignUpInput) Validate() error {
	values := map[string]string{
		"name":     in.Name,
		"city":     in.City,
		"username": in.Username,
		"password": in.Password,
	}

	for _, r := range signUpRules {
		v := values[r.field]
		n := utf8.RuneCountInString(v)
		if n < r.min {
			return &common.ValidationError{Field: r.field, Message: fmt.Sprintf("%s must be at least %d characters", r.label, r.min)}
		}
		if r.max > 0 && n > r.max {
			return &common.ValidationError{Field: r.field, Message: fmt.Sprintf("%s must not exceed %d characters", r.label, r.max)}
		}
		if r.maxBytes > 0 && len(v) > r.maxBytes {
			return &common.ValidationError{Field: r.field, Message: fmt.Sprintf("%s must not exceed %d bytes", r.label, r.maxBytes)}
		}
	}

	if in.Mobile != "" && !mobilePattern.MatchString(in.Mobile) {
		return &common.ValidationError{Field: "mobile", Message: "Mobile must be a valid 10-digit number"}
	}

	return nil
}

// MobileValue returns nil for an absent mobile number.
func (in SignUpInput) MobileValue() *string {
	if in.Mobile == "" {
		return nil
	}
	m := in.Mobile
	return &m
}
