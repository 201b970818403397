// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
)

type (
	TypeID    = variantinterfaces.TypeID
	ProfileID = variantinterfaces.ProfileID
	Direction = variantinterfaces.Direction
	Internal  = variantinterfaces.Internal
	Value     = variantinterfaces.Value
	Variant   = variantinterfaces.Variant
)

// Coder holds the host capabilities. It is immutable after construction and
// may be shared between goroutines; all mutable state lives in a Call.
type Coder struct {
	host variantinterfaces.Host
	log  *zap.Logger
}

var _ variantinterfaces.Coder = &Coder{}

// NewCoder constructs a coder. A nil logger disables logging.
func NewCoder(host variantinterfaces.Host, log *zap.Logger) *Coder {
	if host.Types == nil {
		panic("variant: host has no type authority")
	}
	if host.Profiles == nil {
		panic("variant: host has no profile registry")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coder{host: host, log: log}
}

// Call is one call context. It owns the codec cache, which is threaded
// explicitly through every codec operation performed by the call.
type Call struct {
	cr    *Coder
	dir   Direction
	cache codecCache

	// Descriptor of the last comparison result type
	cmpType TypeID
	cmpLen  int16
}

var _ variantinterfaces.Call = &Call{}

var callPool = sync.Pool{
	New: func() interface{} {
		return new(Call)
	},
}

func (cr *Coder) NewCall(dir Direction) variantinterfaces.Call {
	c := new(Call)
	c.reset(cr, dir)
	return c
}

func (cr *Coder) newCall(dir Direction) *Call {
	c := callPool.Get().(*Call)
	c.reset(cr, dir)
	return c
}

func (c *Call) reset(cr *Coder, dir Direction) {
	c.cr = cr
	c.dir = dir
	c.cache.reset()
	c.cmpType = variantinterfaces.InvalidType
	c.cmpLen = 0
}

func (c *Call) release() {
	c.cr = nil
	c.cache.reset()
	callPool.Put(c)
}

func (cr *Coder) Parse(text string, profile ProfileID) (Variant, error) {
	c := cr.newCall(variantinterfaces.Input)
	defer c.release()
	return c.Parse(text, profile)
}

func (cr *Coder) Format(v Variant) (string, error) {
	c := cr.newCall(variantinterfaces.Output)
	defer c.release()
	return c.Format(v)
}

func (cr *Coder) CastIn(ctx context.Context, value Value, profile ProfileID) (Variant, error) {
	c := cr.newCall(variantinterfaces.Input)
	defer c.release()
	return c.CastIn(ctx, value, profile)
}

func (cr *Coder) CastOut(ctx context.Context, v Variant, target TypeID) (Value, error) {
	c := cr.newCall(variantinterfaces.Input)
	defer c.release()
	return c.CastOut(ctx, v, target)
}

func (cr *Coder) Compare(ctx context.Context, a, b Variant) (sql.NullInt64, error) {
	c := cr.newCall(variantinterfaces.Input)
	defer c.release()
	return c.Compare(ctx, a, b)
}

func (cr *Coder) ImageEquals(a, b Variant) bool {
	return imageEquals(a, b)
}

func (cr *Coder) ResolveProfileName(id ProfileID) (string, error) {
	return cr.resolveProfileName(id)
}

func (cr *Coder) ResolveProfileID(name string) (ProfileID, error) {
	return cr.resolveProfileID(name)
}

func (c *Call) Inspect(v Variant) (Internal, error) {
	in, _, err := c.decode(v, c.dir)
	return in, errors.WithOp(err, "inspect")
}

func (c *Call) ImageEquals(a, b Variant) bool {
	return imageEquals(a, b)
}

func (c *Call) ResolveProfileName(id ProfileID) (string, error) {
	return c.cr.resolveProfileName(id)
}

func (c *Call) ResolveProfileID(name string) (ProfileID, error) {
	return c.cr.resolveProfileID(name)
}

// imageEquals compares external representations byte for byte. An absent
// variant equals nothing.
func imageEquals(a, b Variant) bool {
	if a.Absent() || b.Absent() {
		return false
	}
	return bytes.Equal(a, b)
}

// evaluate hands expr to the host executor. Executor errors are wrapped but
// keep their own message.
func (cr *Coder) evaluate(ctx context.Context, expr string, params ...Value) (Value, error) {
	if cr.host.Executor == nil {
		return Value{}, fmt.Errorf("variant: host has no executor: %w", errors.ErrUsage)
	}

	if ce := cr.log.Check(zap.DebugLevel, "delegating evaluation"); ce != nil {
		types := make([]uint32, len(params))
		for i, p := range params {
			types[i] = uint32(p.Type)
		}
		ce.Write(zap.String("expr", expr), zap.Uint32s("types", types))
	}

	res, err := cr.host.Executor.Evaluate(ctx, expr, params...)
	if err != nil {
		return Value{}, errors.DelegationError{Expr: expr, Underlying: err}
	}
	return res, nil
}
