// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package inventory

import "errors"

// Validation errors returned by lifecycle operations. All are surfaced
// synchronously to the caller before any state is mutated.
var (
	// ErrBlankUserName is returned when a session is started without a name.
	ErrBlankUserName = errors.New("user name must not be blank")

	// ErrUnknownLocation is returned when a session references a location
	// that does not exist in the state store.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrNoItemsToOrder is returned by Submit when no item in the session
	// is flagged for ordering.
	ErrNoItemsToOrder = errors.New("no items flagged for ordering")

	// ErrNotificationNotConfigured is returned by Submit when the
	// notification collaborator has no usable configuration.
	ErrNotificationNotConfigured = errors.New("notification sender not configured")

	// ErrSessionSubmitted is returned when a mutation targets a session
	// that has already been submitted.
	ErrSessionSubmitted = errors.New("session already submitted")
)
