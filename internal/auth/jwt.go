package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ajoedv/fotolio/pkg/middleware"
)

// accessClaims are the claims carried by access tokens issued for shop users.
type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 access tokens issued by the identity service.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator for tokens signed with the given secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// Validate parses and verifies an access token, returning the identity claims
// the auth middleware injects into the request context.
func (v *JWTValidator) Validate(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("access token missing user_id claim")
	}

	return &middleware.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}
