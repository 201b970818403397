// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"context"
	"fmt"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
)

// CastIn wraps value in a variant of the given profile. value may be a typed
// null. Building the variant needs no delegation, so ctx is unused.
func (c *Call) CastIn(ctx context.Context, value Value, profile ProfileID) (Variant, error) {
	if value.Type == variantinterfaces.InvalidType {
		return nil, errors.ErrNullOriginalType
	}

	if _, err := c.cr.resolveProfile(profile, value.Type, false); err != nil {
		return nil, err
	}

	v, err := c.encode(Internal{
		Type:    value.Type,
		Profile: profile,
		Null:    value.Null,
		Datum:   value.Datum,
	}, variantinterfaces.Input)
	return v, errors.WithOp(err, "cast")
}

// CastOut unwraps v as a value of type target. Casting to the variant's own
// type returns the stored value as is; anything else is delegated to the
// executor.
func (c *Call) CastOut(ctx context.Context, v Variant, target TypeID) (Value, error) {
	in, _, err := c.decode(v, c.dir)
	if err != nil {
		return Value{}, errors.WithOp(err, "cast")
	}

	if in.Null {
		return Value{Type: target, Null: true}, nil
	}

	if target == in.Type {
		return in.Value(), nil
	}

	name, err := c.cr.host.Types.TypeName(target)
	if err != nil {
		return Value{}, fmt.Errorf("variant: type %d: %w", target, err)
	}

	expr := variantinterfaces.CastExpr(name)
	res, err := c.cr.evaluate(ctx, expr, in.Value())
	if err != nil {
		return Value{}, err
	}

	if res.Type != target {
		return Value{}, errors.DelegationError{
			Expr:       expr,
			Underlying: fmt.Errorf("cast to %s returned type %d", name, res.Type),
		}
	}
	return res, nil
}
