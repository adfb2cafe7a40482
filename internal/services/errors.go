package services

import "errors"

var (
	// ErrInvalidStatus is returned for a status outside the order status enumeration.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderFinalized is returned when a delivered or cancelled order is asked to move.
	ErrOrderFinalized = errors.New("order is already in a terminal status")
	// ErrPersistence wraps any failed database write; nothing from the failed unit was committed.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidOrder is returned for checkout input that cannot form an order.
	ErrInvalidOrder = errors.New("invalid order")
)

// errNoChange signals that a terminal order was asked to re-enter its own status.
var errNoChange = errors.New("status unchanged")
