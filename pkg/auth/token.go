// Package auth derives the daily X-Auth token required by the catalog API.
package auth

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

const (
	// HeaderName is the request header carrying the token.
	HeaderName = "X-Auth"

	// DefaultPassword is the namespace prefix the catalog API expects.
	DefaultPassword = "Valantis"

	// dateLayout renders the UTC calendar date as YYYYMMDD.
	dateLayout = "20060102"
)

// Provider computes the catalog API token for the current UTC day.
// The token is md5("<password>_<YYYYMMDD>") in lowercase hex.
type Provider struct {
	// Password is the shared secret placed before the date.
	Password string

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// NewProvider creates a token provider for the given password.
// An empty password falls back to DefaultPassword.
func NewProvider(password string) *Provider {
	if password == "" {
		password = DefaultPassword
	}
	return &Provider{
		Password: password,
		Now:      time.Now,
	}
}

// Token returns the token for the current UTC date.
// It is recomputed on every call so day boundaries are picked up.
func (p *Provider) Token() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return TokenFor(p.Password, now())
}

// TokenFor returns the token for the UTC calendar date of t.
func TokenFor(password string, t time.Time) string {
	sum := md5.Sum([]byte(password + "_" + t.UTC().Format(dateLayout)))
	return hex.EncodeToString(sum[:])
}
