package sessions

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// StorageKey is the fixed key the session record is persisted under.
const StorageKey = "authUser"

// TokenType is the Authorization scheme the API expects ("JWT <access>").
const TokenType = "JWT"

// SessionUser is the client-held record of the authenticated user and its tokens.
// The zero value is the anonymous (logged out) session.
type SessionUser struct {
	Username string `json:"username"`
	LoggedIn bool   `json:"loggedIn"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

// Anonymous returns the empty session used after logout or a failed login.
func Anonymous() SessionUser {
	return SessionUser{}
}

func (u SessionUser) IsAnonymous() bool {
	return u == SessionUser{}
}

// Validate checks that a logged in session carries an access token.
func (u SessionUser) Validate() error {
	if u.LoggedIn && u.Access == "" {
		return errors.Wrapf(apperrors.ErrInvariant, "user %q is logged in without an access token", u.Username)
	}
	return nil
}

// AccessExpiry reads the exp claim of the access token. The signature is not
// verified; the API is the authority on validity. Zero when the token is not
// a JWT or carries no exp.
func (u SessionUser) AccessExpiry() time.Time {
	if u.Access == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(u.Access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// OAuth2Token returns the session as an oauth2 token, nil when there is no
// access token.
func (u SessionUser) OAuth2Token() *oauth2.Token {
	if u.Access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  u.Access,
		RefreshToken: u.Refresh,
		TokenType:    TokenType,
		Expiry:       u.AccessExpiry(),
	}
}

// Marshal encodes the record in its persisted JSON form.
func Marshal(u SessionUser) ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

// Unmarshal decodes a persisted record. Records that fail to decode or break
// the session invariant are reported as ErrSessionCorrupt.
func Unmarshal(data []byte) (SessionUser, error) {
	var u SessionUser
	if err := json.Unmarshal(data, &u); err != nil {
		return Anonymous(), errors.Wrap(apperrors.ErrSessionCorrupt, err.Error())
	}
	if err := u.Validate(); err != nil {
		return Anonymous(), errors.Wrap(apperrors.ErrSessionCorrupt, err.Error())
	}
	return u, nil
}
