package fakeapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims carries a generation so ExpireAccessTokens can invalidate
// every token issued so far without waiting for exp.
type accessClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) issueAccess(username string) (string, error) {
	s.mu.Lock()
	gen := s.generation
	ttl := s.accessTTL
	s.mu.Unlock()

	now := time.Now()
	claims := accessClaims{
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) issueRefresh(username string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[token] = username
	s.mu.Unlock()
	return token
}

// verifyAccess returns the subject of a valid access token.
func (s *Server) verifyAccess(raw string) (string, error) {
	claims := accessClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	if claims.Generation != gen {
		return "", fmt.Errorf("token generation %d revoked", claims.Generation)
	}
	return claims.Subject, nil
}
