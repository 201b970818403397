// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package variant implements a dynamic, self-describing value container: a
// value of any host type, tagged with its type identifier and a profile id,
// which can be serialized to a compact binary form, rendered to a quoted
// textual form, and compared against other variants.
//
// The variant layer knows nothing about the types it wraps. Everything type
// specific is asked of the host through the capabilities in Host:
//
//	TypeAuthority   | storage descriptors, type names, text input/output
//	Executor        | comparisons and casts between arbitrary types
//	ProfileRegistry | the profiles which restrict what a variant may hold
//
// The external representation is laid out as follows (all integers
// big-endian):
//
//	offset | size | field
//	-------+------+------------------------------------------------------
//	     0 |    4 | total size of the container, header included
//	     4 |    4 | packed type: type id (low 29 bits) | flags (top 3 bits)
//	     8 |    4 | profile id
//	    12 |    * | payload
//	  last |    1 | overflow byte (only if OVERFLOW is set)
//
// Flags:
//
//	0x20000000 NULL      the variant holds a typed null
//	0x40000000 OVERFLOW  the type id needs more than 29 bits; the packed word
//	                     holds its low 24 bits and the overflow byte its top 8
//	0x80000000 VERSION   reserved, always 0
//
// The payload depends on the storage class of the wrapped type:
//
//	          class | payload
//	----------------+------------------------------------------------------
//	       by-value | the value, big-endian, at the type's alignment (the
//	                | padding before it counts as payload)
//	   by-reference | exactly the type's fixed length
//	variable-length | the value's data, without its own length word; compressed
//	                | values are always expanded first
//	         string | the string, without its NUL terminator
//
// The text form is "(type,value)". Both fields are double-quoted if they are
// empty or contain any of `"`, `\`, `(`, `)`, `,` or whitespace, with `"` and
// `\` doubled inside the quotes. A typed null renders as "(type,)".
//
// A typed null is not an absent variant: Variant(nil) is absent, while
// "(integer,)" is a variant holding a null integer. Comparisons treat both as
// null. ImageEquals compares representations byte for byte, which is not the
// same as value equality: two typed nulls of the same type are image-equal,
// but Eq on them is unknown.
//
// Metadata lookups are memoized in a codec cache which belongs to one Call.
// A Coder is safe for concurrent use and runs each of its methods in a fresh
// Call; take a Call with NewCall to share a cache across several operations.
package variant

import variantinterfaces "go.e43.eu/variant/interfaces"

type (
	// Variant is the external representation
	Variant = variantinterfaces.Variant

	// Internal is the decoded working form
	Internal = variantinterfaces.Internal

	TypeID    = variantinterfaces.TypeID
	ProfileID = variantinterfaces.ProfileID
	Direction = variantinterfaces.Direction
	Value     = variantinterfaces.Value
	Datum     = variantinterfaces.Datum
	Profile   = variantinterfaces.Profile
)

// interface Coder is the top-level interface to the variant library
type Coder = variantinterfaces.Coder

// interface Call is one call context, owning a codec cache
type Call = variantinterfaces.Call

// Host bundles the host capabilities
type Host = variantinterfaces.Host

const (
	Input  = variantinterfaces.Input
	Output = variantinterfaces.Output

	InvalidType = variantinterfaces.InvalidType
)
