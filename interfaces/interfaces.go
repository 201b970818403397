// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package variantinterfaces defines the primary interfaces of the variant
// library: the capabilities a host must provide, and the Coder/Call pair
// handed to callers.
//
// (This package is primarily separated out in order to permit the
// implementation and the reference hosts to be split into multiple packages)
package variantinterfaces

import (
	"context"
	"database/sql"
)

// TypeID identifies a runtime type known to the host type system
type TypeID uint32

// InvalidType is the null type identifier
const InvalidType TypeID = 0

// ProfileID identifies a variant profile. Profile ids are small and
// non-negative.
type ProfileID int32

// Direction selects which text codec of a type a caller needs
type Direction uint8

const (
	// Input is the text to value direction
	Input Direction = iota
	// Output is the value to text direction
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "invalid"
	}
}

// Length sentinels of a Descriptor
const (
	// VarLen marks a variable-length type whose host values carry their own
	// length word
	VarLen int16 = -1
	// CString marks a NUL-terminated string type
	CString int16 = -2
)

// Alignment is the alignment requirement of a type, in bytes
type Alignment uint8

const (
	AlignChar   Alignment = 1
	AlignShort  Alignment = 2
	AlignInt    Alignment = 4
	AlignDouble Alignment = 8
)

// StorageClass is the way a type's values are laid out
type StorageClass uint8

const (
	// Unrecognized is returned for descriptors with an invalid length
	Unrecognized StorageClass = iota
	// ByValue is a fixed length type held directly in Datum.Word
	ByValue
	// ByReference is a fixed length type held in Datum.Ptr
	ByReference
	// VarLena is a variable-length type held in Datum.Ptr with a length word
	VarLena
	// String is a NUL-terminated string held in Datum.Ptr
	String
)

func (c StorageClass) String() string {
	switch c {
	case ByValue:
		return "by-value"
	case ByReference:
		return "by-reference"
	case VarLena:
		return "variable-length"
	case String:
		return "string"
	default:
		return "unrecognized"
	}
}

// Datum is an opaque host value.
//
// By-value types use the low Len bytes of Word. Everything else lives in Ptr:
// exactly Len bytes for fixed by-reference types, a variable-length image
// (length word first) for VarLen types, and the string followed by a NUL
// terminator for CString types.
type Datum struct {
	Word uint64
	Ptr  []byte
}

// InputFunc parses the textual form of a value
type InputFunc func(text string) (Datum, error)

// OutputFunc renders a value as text
type OutputFunc func(d Datum) (string, error)

// Descriptor is the storage metadata of one type for one direction.
//
// Only the codec function of the requested direction needs to be set.
type Descriptor struct {
	Type   TypeID
	Len    int16
	ByVal  bool
	Align  Alignment
	Input  InputFunc
	Output OutputFunc
}

// Class derives the storage class from the length and by-value flag
func (d *Descriptor) Class() StorageClass {
	switch {
	case d.Len > 0 && d.ByVal:
		if d.Len > 8 {
			return Unrecognized
		}
		return ByValue
	case d.Len > 0:
		return ByReference
	case d.Len == VarLen && !d.ByVal:
		return VarLena
	case d.Len == CString && !d.ByVal:
		return String
	default:
		return Unrecognized
	}
}

// Value is a typed, possibly null, host value
type Value struct {
	Type  TypeID
	Datum Datum
	Null  bool
}

// Internal is the working form of a variant. All the fields describe the
// value originally handed to the variant.
type Internal struct {
	Type    TypeID
	Profile ProfileID
	// Set when the variant holds a typed null. This is not the same as the
	// variant itself being absent.
	Null  bool
	Datum Datum
}

// Value returns the wrapped value
func (in Internal) Value() Value {
	return Value{Type: in.Type, Datum: in.Datum, Null: in.Null}
}

// Variant is the external (packed binary) representation of a variant.
// A nil Variant is absent; it is not the same as a variant holding a
// typed null.
type Variant []byte

// Absent reports whether there is no variant at all
func (v Variant) Absent() bool {
	return v == nil
}

// Profile is one row of the variant profile registry
type Profile struct {
	ID      ProfileID
	Name    string
	Enabled bool
	// Types this profile may store. Empty means unrestricted.
	AllowedTypes []TypeID
}

// Restricted reports whether the profile limits the types it may store
func (p *Profile) Restricted() bool {
	return len(p.AllowedTypes) != 0
}

// Allows reports whether the profile may store t
func (p *Profile) Allows(t TypeID) bool {
	if !p.Restricted() {
		return true
	}
	for _, a := range p.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// interface TypeAuthority is the host type registry.
//
// The variant library never implements type-specific behaviour itself; it asks
// the authority instead.
type TypeAuthority interface {
	// Descriptor returns the storage metadata and the text codec of t for
	// direction dir
	Descriptor(t TypeID, dir Direction) (Descriptor, error)

	// TypeName returns the display name of t
	TypeName(t TypeID) (string, error)

	// LookupType resolves a type name to its identifier
	LookupType(name string) (TypeID, error)
}

// interface Executor is the host's generic expression evaluator, used as a
// black-box comparator and caster.
//
// Evaluate must be synchronous. It is the only place where ctx is observed.
type Executor interface {
	Evaluate(ctx context.Context, expr string, params ...Value) (Value, error)
}

// Expressions handed to an Executor
const (
	// CompareExpr evaluates to an integer -1, 0 or 1 ordering $1 against $2
	CompareExpr = "SELECT CASE WHEN $1 < $2 THEN -1 WHEN $1 > $2 THEN 1 ELSE 0 END"

	// castPrefix is followed by the target type name
	castPrefix = "SELECT $1::"
)

// CastExpr returns the expression converting $1 to the named type
func CastExpr(typeName string) string {
	return castPrefix + typeName
}

// CastTarget extracts the target type name from an expression built by
// CastExpr
func CastTarget(expr string) (string, bool) {
	if len(expr) <= len(castPrefix) || expr[:len(castPrefix)] != castPrefix {
		return "", false
	}
	return expr[len(castPrefix):], true
}

// interface ProfileRegistry is the variant profile table. Lookups return every
// matching row; more than one row for an id or name means the registry is
// corrupt, which callers detect.
type ProfileRegistry interface {
	ProfilesByID(id ProfileID) ([]Profile, error)
	ProfilesByName(name string) ([]Profile, error)
}

// Host bundles the capabilities a Coder needs
type Host struct {
	Types    TypeAuthority
	Executor Executor
	Profiles ProfileRegistry
}

// interface Coder is the top-level interface to the variant library.
//
// A coder (which may be safely used from multiple goroutines) runs every
// operation in a fresh Call. Use NewCall to share one codec cache across a
// sequence of operations.
type Coder interface {
	// NewCall constructs a call context with its own codec cache. dir is the
	// direction used for codec metadata when decoding.
	NewCall(dir Direction) Call

	Parse(text string, profile ProfileID) (Variant, error)
	Format(v Variant) (string, error)
	CastIn(ctx context.Context, value Value, profile ProfileID) (Variant, error)
	CastOut(ctx context.Context, v Variant, target TypeID) (Value, error)
	Compare(ctx context.Context, a, b Variant) (sql.NullInt64, error)
	ImageEquals(a, b Variant) bool
	ResolveProfileName(id ProfileID) (string, error)
	ResolveProfileID(name string) (ProfileID, error)
}

// interface Call is one logical call context. It is not safe for concurrent
// use.
type Call interface {
	// Parse reads the text form "(type,value)" into a variant of profile
	Parse(text string, profile ProfileID) (Variant, error)

	// Format renders v as "(type,value)"
	Format(v Variant) (string, error)

	// Inspect decodes v into its internal representation
	Inspect(v Variant) (Internal, error)

	// CastIn wraps value (which may be null) in a variant of profile
	CastIn(ctx context.Context, value Value, profile ProfileID) (Variant, error)

	// CastOut unwraps v as a value of type target
	CastOut(ctx context.Context, v Variant, target TypeID) (Value, error)

	// Compare orders a against b. The result is null if either side is null.
	Compare(ctx context.Context, a, b Variant) (sql.NullInt64, error)

	// CompareDistinct orders a against b treating nulls as comparable values
	// which sort first
	CompareDistinct(ctx context.Context, a, b Variant) (int, error)

	Lt(ctx context.Context, a, b Variant) (sql.NullBool, error)
	Le(ctx context.Context, a, b Variant) (sql.NullBool, error)
	Eq(ctx context.Context, a, b Variant) (sql.NullBool, error)
	Ne(ctx context.Context, a, b Variant) (sql.NullBool, error)
	Ge(ctx context.Context, a, b Variant) (sql.NullBool, error)
	Gt(ctx context.Context, a, b Variant) (sql.NullBool, error)

	IsDistinctFrom(ctx context.Context, a, b Variant) (bool, error)
	IsNotDistinctFrom(ctx context.Context, a, b Variant) (bool, error)

	// ImageEquals reports byte equality of the external representations.
	// This is weaker than value equality: two typed nulls are image-equal but
	// never Eq.
	ImageEquals(a, b Variant) bool

	ResolveProfileName(id ProfileID) (string, error)
	ResolveProfileID(name string) (ProfileID, error)
}
