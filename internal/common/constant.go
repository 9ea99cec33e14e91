// Package common contains shared constants and sentinel errors used across
// inkwell components.
package common

const (
	// TokenCookieName is the browser cookie carrying the signed session token.
	TokenCookieName = "token"

	// SessionCookieName identifies the browser session that owns flash slots.
	SessionCookieName = "sid"

	// OAuthStateCookieName holds the anti-forgery state of a pending provider sign-in.
	OAuthStateCookieName = "oauth_state"

	// TokenMetadataKey is the gRPC metadata key used to carry the session token.
	TokenMetadataKey = "token"
)

// Flash slot keys.
const (
	FlashError   = "error"
	FlashMessage = "message"
)
