// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package catalog is an in-memory host type system for the variant library.
//
// It provides a TypeAuthority covering a handful of common database types and
// an Executor able to compare and cast between them. It exists so the variant
// core can be exercised without a database; real hosts supply their own.
package catalog

import (
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/varlena"
)

type (
	TypeID = variantinterfaces.TypeID
	Datum  = variantinterfaces.Datum
	Value  = variantinterfaces.Value
)

// Identifiers of the built-in types
const (
	BoolID    TypeID = 16
	ByteaID   TypeID = 17
	Int8ID    TypeID = 20
	Int2ID    TypeID = 21
	Int4ID    TypeID = 23
	TextID    TypeID = 25
	JSONID    TypeID = 114
	Float4ID  TypeID = 700
	Float8ID  TypeID = 701
	UnknownID TypeID = 705
	UUIDID    TypeID = 2950
)

// Compression selects how long text values are stored
type Compression = varlena.Method

const (
	CompressNone   = varlena.MethodNone
	CompressS2     = varlena.MethodS2
	CompressBrotli = varlena.MethodBrotli
)

// ParseCompression parses "none", "s2" or "brotli"
func ParseCompression(s string) (Compression, error) {
	return varlena.ParseMethod(s)
}

// Options configures a Catalog
type Options struct {
	// Compression applied to variable-length inputs longer than
	// CompressThreshold bytes
	Compression Compression

	// Zero or negative disables compression
	CompressThreshold int
}

// Catalog is the type authority. It is safe for concurrent use.
type Catalog struct {
	opts  Options
	types *xsync.MapOf[TypeID, *typeInfo]
	names *xsync.MapOf[string, TypeID]
}

var _ variantinterfaces.TypeAuthority = &Catalog{}

// New constructs a catalog holding the built-in types
func New(opts Options) *Catalog {
	c := &Catalog{
		opts:  opts,
		types: xsync.NewMapOf[TypeID, *typeInfo](),
		names: xsync.NewMapOf[string, TypeID](),
	}

	for _, ti := range builtins {
		ti := ti
		c.types.Store(ti.id, &ti)
		c.names.Store(ti.name, ti.id)
		for _, alias := range ti.aliases {
			c.names.Store(alias, ti.id)
		}
	}
	return c
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds type id named name, behaving like the existing type like.
func (c *Catalog) Register(id TypeID, name string, like TypeID) error {
	if id == variantinterfaces.InvalidType {
		return fmt.Errorf("catalog: cannot register the invalid type id")
	}

	base, ok := c.types.Load(like)
	if !ok {
		return fmt.Errorf("catalog: type %d does not exist", like)
	}

	key := normalizeName(name)
	if _, loaded := c.names.LoadOrStore(key, id); loaded {
		return fmt.Errorf("catalog: type %q already exists", name)
	}

	ti := *base
	ti.id = id
	ti.name = key
	ti.aliases = nil
	if _, loaded := c.types.LoadOrStore(id, &ti); loaded {
		c.names.Delete(key)
		return fmt.Errorf("catalog: type id %d already exists", id)
	}
	return nil
}

func (c *Catalog) info(t TypeID) (*typeInfo, error) {
	ti, ok := c.types.Load(t)
	if !ok {
		return nil, fmt.Errorf("cache lookup failed for type %d", t)
	}
	return ti, nil
}

func (c *Catalog) Descriptor(t TypeID, dir variantinterfaces.Direction) (variantinterfaces.Descriptor, error) {
	ti, err := c.info(t)
	if err != nil {
		return variantinterfaces.Descriptor{}, err
	}

	d := variantinterfaces.Descriptor{
		Type:  t,
		Len:   ti.len,
		ByVal: ti.byVal,
		Align: ti.align,
	}

	switch dir {
	case variantinterfaces.Input:
		d.Input = func(s string) (Datum, error) {
			return ti.in(c, ti, s)
		}
	case variantinterfaces.Output:
		d.Output = func(v Datum) (string, error) {
			return ti.out(ti, v)
		}
	}
	return d, nil
}

func (c *Catalog) TypeName(t TypeID) (string, error) {
	ti, err := c.info(t)
	if err != nil {
		return "", err
	}
	return ti.name, nil
}

func (c *Catalog) LookupType(name string) (TypeID, error) {
	id, ok := c.names.Load(normalizeName(name))
	if !ok {
		return variantinterfaces.InvalidType, fmt.Errorf("type %q does not exist", name)
	}
	return id, nil
}

// Input parses text as a value of type t
func (c *Catalog) Input(t TypeID, text string) (Value, error) {
	ti, err := c.info(t)
	if err != nil {
		return Value{}, err
	}
	d, err := ti.in(c, ti, text)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: t, Datum: d}, nil
}

// Output renders v as text. Null values render as the empty string.
func (c *Catalog) Output(v Value) (string, error) {
	if v.Null {
		return "", nil
	}
	ti, err := c.info(v.Type)
	if err != nil {
		return "", err
	}
	return ti.out(ti, v.Datum)
}

// storeVarlena builds the image of a variable-length input, compressing it
// when configured to
func (c *Catalog) storeVarlena(data []byte) (Datum, error) {
	if c.opts.CompressThreshold > 0 && len(data) > c.opts.CompressThreshold && c.opts.Compression != CompressNone {
		img, err := varlena.Compress(data, c.opts.Compression)
		if err != nil {
			return Datum{}, err
		}
		return Datum{Ptr: img}, nil
	}
	return Datum{Ptr: varlena.Wrap(data)}, nil
}
