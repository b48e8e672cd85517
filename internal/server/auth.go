package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken   = errors.New("missing token")
	ErrWrongRoom = errors.New("token is for another room")
)

// PlayerClaims identify a seat: Subject is the external player id.
type PlayerClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// TokenAuth issues and checks HS256 player tokens.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenAuth(secret string, ttl time.Duration) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for externalID in roomID.
func (a *TokenAuth) Issue(roomID uuid.UUID, externalID string) (string, error) {
	now := time.Now()
	claims := PlayerClaims{
		Room: roomID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks it belongs to roomID. It returns the
// external player id.
func (a *TokenAuth) Verify(token string, roomID uuid.UUID) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}
	var claims PlayerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Room != roomID.String() {
		return "", ErrWrongRoom
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("parse token: empty subject")
	}
	return claims.Subject, nil
}

// requestToken reads a bearer token, falling back to ?token= for websocket
// clients that cannot set headers.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("token")
}
