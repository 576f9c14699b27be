package oauth

import (
	"golang.org/x/oauth2"
)

// NewTTLockTokenSource wraps a pre-issued TTLock access token. Acquiring and
// refreshing the token happens outside this service.
func NewTTLockTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
}
