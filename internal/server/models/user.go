// Package models holds the account records shared by repositories and services.
package models

// Credential is the authentication half of an account. Exactly one of
// (Username, PasswordHash) or ProviderID is set.
type Credential struct {
	ID           string
	Username     *string
	PasswordHash *string
	ProviderID   *string
}

// Detail is the profile half of an account, paired 1:1 with a Credential.
type Detail struct {
	UserID string
	Name   string
	City   string
	Mobile *string
}

// FullUser is the read-only join of a Credential and its Detail.
type FullUser struct {
	ID           string
	Username     *string
	PasswordHash *string
	ProviderID   *string
	Name         string
	City         string
	Mobile       *string
}

// IsFederated reports whether the account authenticates through an
// external identity provider.
func (u *FullUser) IsFederated() bool {
	return u.ProviderID != nil
}

// DisplayName is the identifier shown in the UI: the username for local
// accounts, the profile name otherwise.
func (u *FullUser) DisplayName() string {
	if u.Username != nil {
		return *u.Username
	}
	return u.Name
}

// Profile is what an external identity provider returns about a user.
type Profile struct {
	ProviderID  string
	DisplayName string
}
