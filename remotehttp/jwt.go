// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package remotehttp

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenAuth mints and validates the HS256 bearer tokens the inventory API
// accepts, for deployments that self-issue credentials.
type TokenAuth struct {
	secret []byte
}

// NewTokenAuth creates a token authority from a shared secret.
func NewTokenAuth(secret string) *TokenAuth {
	return &TokenAuth{secret: []byte(secret)}
}

// Claims carries the device identity alongside the registered claims.
type Claims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for one user on one device.
func (a *TokenAuth) GenerateToken(userName, deviceID string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "morning-lavender-inventory",
			Subject:   userName,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses and verifies a token, returning its claims.
func (a *TokenAuth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// TokenSource returns a TokenFunc that mints a fresh short-lived token per
// request, so a long-running sync loop never works with an expired one.
func (a *TokenAuth) TokenSource(userName, deviceID string, expiration time.Duration) TokenFunc {
	return func(ctx context.Context) (string, error) {
		return a.GenerateToken(userName, deviceID, expiration)
	}
}
