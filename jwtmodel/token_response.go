package jwtmodel

import (
	"encoding/json"
	"io"
	"strings"

	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/pkg/errors"
)

// maxBodyBytes bounds how much of an auth response is read.
const maxBodyBytes = 1 << 20

// TokenPair is the response of CreatePath.
type TokenPair struct {
	// Access is the short-lived JWT sent as "Authorization: JWT <access>".
	// Lifespan: minutes
	Access string `json:"access"`

	// Refresh is the long-lived token exchanged at RefreshPath.
	// Lifespan: hours to days
	Refresh string `json:"refresh"`
}

func (p TokenPair) Validate() error {
	if strings.TrimSpace(p.Access) == "" {
		return errors.Wrap(apperrors.ErrResponseSchema, "token pair: access missing")
	}
	if strings.TrimSpace(p.Refresh) == "" {
		return errors.Wrap(apperrors.ErrResponseSchema, "token pair: refresh missing")
	}
	return nil
}

// AccessResponse is the response of RefreshPath.
type AccessResponse struct {
	// Access replaces the stored access token.
	Access string `json:"access"`

	// Refresh is present only when the API rotates refresh tokens.
	Refresh string `json:"refresh,omitempty"`
}

func (a AccessResponse) Validate() error {
	if strings.TrimSpace(a.Access) == "" {
		return errors.Wrap(apperrors.ErrResponseSchema, "refresh response: access missing")
	}
	return nil
}

type validator interface {
	Validate() error
}

// Decode parses a response body into T and validates it. Malformed JSON and
// missing fields are both reported as ErrResponseSchema.
func Decode[T validator](r io.Reader) (T, error) {
	var v T
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&v); err != nil {
		return v, errors.Wrap(apperrors.ErrResponseSchema, err.Error())
	}
	if err := v.Validate(); err != nil {
		return v, err
	}
	return v, nil
}
