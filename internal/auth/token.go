package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated side of a request.
type Principal struct {
	UserId    uuid.UUID
	SessionId uuid.UUID
}

func sign(secret []byte, p Principal, issued, expires time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   p.UserId.String(),
		ID:        p.SessionId.String(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	return t.SignedString(secret)
}

func parse(secret []byte, token string, now time.Time) (Principal, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthorized, err)
	}

	userId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthorized, err)
	}

	sessionId, err := uuid.Parse(claims.ID)
	if err != nil {
		return Principal{}, errors.Join(ErrUnauthorized, err)
	}

	return Principal{UserId: userId, SessionId: sessionId}, nil
}
