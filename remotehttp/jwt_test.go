// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package remotehttp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewTokenAuth("test-secret")

	token, err := auth.GenerateToken("ana", "tablet-1", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "ana", claims.Subject)
	require.Equal(t, "tablet-1", claims.DeviceID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenAuth("secret-a").GenerateToken("ana", "tablet-1", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenAuth("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	auth := NewTokenAuth("test-secret")
	token, err := auth.GenerateToken("ana", "tablet-1", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenSourceMintsValidTokens(t *testing.T) {
	auth := NewTokenAuth("test-secret")
	source := auth.TokenSource("ana", "tablet-1", time.Hour)

	token, err := source(context.Background())
	require.NoError(t, err)
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "tablet-1", claims.DeviceID)
}
