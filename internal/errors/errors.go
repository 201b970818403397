// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package errors

import (
	"fmt"
	"strings"

	variantinterfaces "go.e43.eu/variant/interfaces"
)

type xerror string

func (e xerror) Error() string {
	return string(e)
}

// Error classes. Every error returned by the library matches exactly one of
// these under errors.Is (except errors returned by a type's own input
// function, which are passed through).
const (
	// Invalid lengths, alignment mismatches or unrecognized storage classes.
	// Indicates a defect or tampered data.
	ErrFormatCorruption = xerror("variant: format corruption")

	// Zero or duplicate profile rows
	ErrRegistryInconsistency = xerror("variant: profile registry inconsistent")

	// The caller asked for something a profile or the grammar forbids
	ErrPolicyViolation = xerror("variant: policy violation")

	// The host executor failed
	ErrDelegationFailure = xerror("variant: delegated evaluation failed")

	// The library was driven incorrectly
	ErrUsage = xerror("variant: usage error")
)

// classedError is an xerror belonging to a class
type classedError struct {
	msg   string
	class xerror
}

func (e *classedError) Error() string {
	return e.msg
}

func (e *classedError) Is(target error) bool {
	return target == e.class
}

var (
	// Parsing or casting a value with no original type
	ErrNullOriginalType error = &classedError{"variant: cannot determine original type", ErrPolicyViolation}

	// Text form does not follow "(type,value)"
	ErrMalformedLiteral error = &classedError{"variant: malformed variant literal", ErrPolicyViolation}

	// A call context mixed input and output lookups for the same key
	ErrDirectionMismatch error = &classedError{"variant: codec cache used for both input and output", ErrUsage}

	// Absent variants have no representation
	ErrAbsent error = &classedError{"variant: variant is absent", ErrUsage}

	// The VERSION bit was set
	ErrUnsupportedVersion error = &classedError{"variant: unsupported storage version", ErrFormatCorruption}
)

// CorruptionError describes a structural defect in an external representation
type CorruptionError struct {
	What string
	// Offending value (typically a length), if any
	Value int64
}

func (e CorruptionError) Is(target error) bool {
	return target == ErrFormatCorruption
}

func (e CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", ErrFormatCorruption, e.What, e.Value)
}

// Corrupt constructs a CorruptionError
func Corrupt(what string, value int64) error {
	return CorruptionError{What: what, Value: value}
}

// InvalidProfileError is returned for unknown or disabled profiles
type InvalidProfileError struct {
	ID   variantinterfaces.ProfileID
	Name string
	// Why the profile was rejected
	Reason string
}

func (e InvalidProfileError) Is(target error) bool {
	return target == ErrPolicyViolation
}

func (e InvalidProfileError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("variant: invalid variant profile %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("variant: invalid variant profile %d: %s", e.ID, e.Reason)
}

// TypeNotAllowedError is returned when a profile does not permit storing a type
type TypeNotAllowedError struct {
	Profile  string
	Type     variantinterfaces.TypeID
	TypeName string
}

func (e TypeNotAllowedError) Is(target error) bool {
	return target == ErrPolicyViolation
}

func (e TypeNotAllowedError) Error() string {
	name := e.TypeName
	if name == "" {
		name = fmt.Sprintf("type %d", e.Type)
	}
	return fmt.Sprintf("variant: variant profile %q does not allow %s", e.Profile, name)
}

// RegistryError reports zero or duplicate rows for one profile key
type RegistryError struct {
	Key  string
	Rows int
}

func (e RegistryError) Is(target error) bool {
	return target == ErrRegistryInconsistency
}

func (e RegistryError) Error() string {
	return fmt.Sprintf("%s: %d rows for profile %s (the profile registry is corrupted)",
		ErrRegistryInconsistency, e.Rows, e.Key)
}

// DelegationError carries the executor's own diagnostic
type DelegationError struct {
	Expr       string
	Underlying error
}

func (e DelegationError) Is(target error) bool {
	return target == ErrDelegationFailure
}

func (e DelegationError) Unwrap() error {
	return e.Underlying
}

func (e DelegationError) Error() string {
	if e.Underlying == nil {
		return fmt.Sprintf("%s (%s)", ErrDelegationFailure, e.Expr)
	}
	return e.Underlying.Error()
}

// FieldError annotates an error with the operation it occurred in
type FieldError struct {
	Underlying error
	Path       string
}

func (err FieldError) Unwrap() error {
	return err.Underlying
}

func (err FieldError) Error() string {
	uerr := strings.TrimPrefix(err.Underlying.Error(), "variant: ")
	return fmt.Sprintf("variant: %s (in %s)", uerr, err.Path)
}

// WithOp annotates err with the operation name(s). nil stays nil; already
// annotated errors gain a prefix on their path.
func WithOp(err error, parts ...string) error {
	if err == nil {
		return nil
	}

	combined := strings.Join(parts, ".")
	switch err := err.(type) {
	case FieldError:
		err.Path = fmt.Sprintf("%s %s", combined, err.Path)
		return err
	default:
		return FieldError{err, combined}
	}
}
