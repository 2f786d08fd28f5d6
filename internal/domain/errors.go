package domain

import "errors"

var (
	// ErrMalformedRecord marks a raw record that cannot be normalized.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrProposalNotFound is returned by lookups over the proposal table.
	ErrProposalNotFound = errors.New("proposal not found")
)
