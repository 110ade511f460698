package domain

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The error kinds named by the routing contract. Every operation that
// can fail returns one of these, constructed with the matching grpc
// status code so callers can use status.Code(err) regardless of
// whether the error crossed a network boundary.
var (
	// ErrTimeout is returned when a request's deadline elapsed before a
	// reply arrived.
	ErrTimeout = status.Error(codes.DeadlineExceeded, "request timed out")
	// ErrInvalidState is returned when an operation is attempted from a
	// node state that does not permit it (e.g. search_by_id on a
	// Created node, join on anything but a Created node).
	ErrInvalidState = status.Error(codes.FailedPrecondition, "invalid node state")
)

// Rejected builds a protocol-level refusal, carrying a caller-supplied
// reason (e.g. "duplicate identifier").
func Rejected(reason string) error {
	return status.Error(codes.Aborted, "rejected: "+reason)
}

// Invariantf builds a FailedPrecondition error reporting a broken
// structural invariant of the lookup table or search protocol, with a
// formatted message.
func Invariantf(format string, args ...any) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}

// Transportf builds an Unavailable error reporting a failure to reach a
// remote node, with a formatted message.
func Transportf(format string, args ...any) error {
	return status.Errorf(codes.Unavailable, format, args...)
}
