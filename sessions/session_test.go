package sessions_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/stretchr/testify/require"
)

func signedAccess(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	require.NoError(t, sessions.Anonymous().Validate())
	require.NoError(t, sessions.SessionUser{Username: "alice", LoggedIn: true, Access: "a"}.Validate())

	err := sessions.SessionUser{Username: "alice", LoggedIn: true}.Validate()
	require.ErrorIs(t, err, apperrors.ErrInvariant)
}

func TestAnonymous(t *testing.T) {
	require.True(t, sessions.Anonymous().IsAnonymous())
	require.False(t, sessions.SessionUser{Username: "alice"}.IsAnonymous())
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	u := sessions.SessionUser{LoggedIn: true, Access: signedAccess(t, exp)}
	require.True(t, exp.Equal(u.AccessExpiry()))

	require.True(t, sessions.SessionUser{LoggedIn: true, Access: "opaque"}.AccessExpiry().IsZero())
	require.True(t, sessions.Anonymous().AccessExpiry().IsZero())
}

func TestOAuth2Token(t *testing.T) {
	require.Nil(t, sessions.Anonymous().OAuth2Token())

	u := sessions.SessionUser{Username: "alice", LoggedIn: true, Access: signedAccess(t, time.Now().Add(-time.Minute)), Refresh: "r"}
	tok := u.OAuth2Token()
	require.Equal(t, "JWT", tok.Type())
	require.Equal(t, "r", tok.RefreshToken)
	require.False(t, tok.Valid(), "expired access token must not be valid")

	fresh := sessions.SessionUser{LoggedIn: true, Access: signedAccess(t, time.Now().Add(time.Hour))}
	require.True(t, fresh.OAuth2Token().Valid())
}

func TestMarshalRoundTrip(t *testing.T) {
	u := sessions.SessionUser{Username: "alice", LoggedIn: true, Access: "a", Refresh: "r"}
	data, err := sessions.Marshal(u)
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"alice","loggedIn":true,"access":"a","refresh":"r"}`, string(data))

	got, err := sessions.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestUnmarshalCorrupt(t *testing.T) {
	_, err := sessions.Unmarshal([]byte("{not json"))
	require.ErrorIs(t, err, apperrors.ErrSessionCorrupt)

	u, err := sessions.Unmarshal([]byte(`{"username":"alice","loggedIn":true,"access":""}`))
	require.ErrorIs(t, err, apperrors.ErrSessionCorrupt)
	require.True(t, u.IsAnonymous())
}

func TestMarshalRejectsInvariantBreak(t *testing.T) {
	_, err := sessions.Marshal(sessions.SessionUser{LoggedIn: true})
	require.ErrorIs(t, err, apperrors.ErrInvariant)
}
