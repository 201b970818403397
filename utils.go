// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package variant

import (
	"go.uber.org/zap"

	"go.e43.eu/variant/internal/coder"
	"go.e43.eu/variant/internal/errors"
)

// Error classes, for use with errors.Is
const (
	ErrFormatCorruption      = errors.ErrFormatCorruption
	ErrRegistryInconsistency = errors.ErrRegistryInconsistency
	ErrPolicyViolation       = errors.ErrPolicyViolation
	ErrDelegationFailure     = errors.ErrDelegationFailure
	ErrUsage                 = errors.ErrUsage
)

var (
	ErrNullOriginalType  = errors.ErrNullOriginalType
	ErrMalformedLiteral  = errors.ErrMalformedLiteral
	ErrDirectionMismatch = errors.ErrDirectionMismatch
	ErrAbsent            = errors.ErrAbsent
)

type (
	InvalidProfileError = errors.InvalidProfileError
	TypeNotAllowedError = errors.TypeNotAllowedError
	RegistryError       = errors.RegistryError
	DelegationError     = errors.DelegationError
	CorruptionError     = errors.CorruptionError
)

type options struct {
	log *zap.Logger
}

// Option configures a Coder
type Option func(*options)

// WithLogger sets the logger used for cache misses, delegations and
// corruption reports. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Construct a new Coder for host. host must provide a type authority and a
// profile registry; the executor is only needed for comparisons and casts
// out of a variant.
func NewCoder(host Host, opts ...Option) Coder {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return coder.NewCoder(host, o.log)
}
