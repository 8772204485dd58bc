package model

import "github.com/ares-io/ares-core/internal/aerrors"

// errInvalidCriteria builds a ValidationError-kinded error for malformed
// AcceptanceCriteria (spec §7).
func errInvalidCriteria(format string, args ...any) error {
	return aerrors.New(aerrors.ValidationError, format, args...)
}
