// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"context"
	"database/sql"
	"fmt"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
)

// operand decodes one side of a comparison. Absent variants and typed nulls
// both count as null.
func (c *Call) operand(v Variant) (Internal, bool, error) {
	if v.Absent() {
		return Internal{}, true, nil
	}
	in, _, err := c.decode(v, c.dir)
	if err != nil {
		return Internal{}, false, errors.WithOp(err, "compare")
	}
	return in, in.Null, nil
}

// Compare orders a against b. Either side being null makes the result
// unknown.
func (c *Call) Compare(ctx context.Context, a, b Variant) (sql.NullInt64, error) {
	ia, aNull, err := c.operand(a)
	if err != nil {
		return sql.NullInt64{}, err
	}
	ib, bNull, err := c.operand(b)
	if err != nil {
		return sql.NullInt64{}, err
	}

	if aNull || bNull {
		return sql.NullInt64{}, nil
	}

	r, err := c.delegateCompare(ctx, ia, ib)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: int64(r), Valid: true}, nil
}

// CompareDistinct orders a against b with nulls equal to each other and
// sorting before everything else.
func (c *Call) CompareDistinct(ctx context.Context, a, b Variant) (int, error) {
	ia, aNull, err := c.operand(a)
	if err != nil {
		return 0, err
	}
	ib, bNull, err := c.operand(b)
	if err != nil {
		return 0, err
	}

	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return -1, nil
	case bNull:
		return 1, nil
	}

	return c.delegateCompare(ctx, ia, ib)
}

// delegateCompare asks the executor to compare two non-null values. Choosing
// an operator for mixed types is the executor's job.
func (c *Call) delegateCompare(ctx context.Context, a, b Internal) (int, error) {
	expr := variantinterfaces.CompareExpr
	res, err := c.cr.evaluate(ctx, expr, a.Value(), b.Value())
	if err != nil {
		return 0, err
	}

	if res.Null {
		return 0, errors.DelegationError{Expr: expr, Underlying: fmt.Errorf("comparison returned null")}
	}

	n, err := c.resultLen(res.Type)
	if err != nil {
		return 0, errors.DelegationError{Expr: expr, Underlying: err}
	}

	switch r := signExtend(res.Datum.Word, n); {
	case r < 0:
		return -1, nil
	case r > 0:
		return 1, nil
	default:
		return 0, nil
	}
}

// resultLen returns the width of a by-value comparison result type
func (c *Call) resultLen(t TypeID) (int, error) {
	if c.cmpType != t || c.cmpLen == 0 {
		d, err := c.cr.host.Types.Descriptor(t, variantinterfaces.Input)
		if err != nil {
			return 0, err
		}
		if d.Class() != variantinterfaces.ByValue {
			return 0, fmt.Errorf("comparison returned non-integer type %d", t)
		}
		c.cmpType, c.cmpLen = t, d.Len
	}
	return int(c.cmpLen), nil
}

func signExtend(w uint64, n int) int64 {
	shift := uint(64 - 8*n)
	return int64(w<<shift) >> shift
}

func (c *Call) compareTo(ctx context.Context, a, b Variant, pred func(int64) bool) (sql.NullBool, error) {
	r, err := c.Compare(ctx, a, b)
	if err != nil || !r.Valid {
		return sql.NullBool{}, err
	}
	return sql.NullBool{Bool: pred(r.Int64), Valid: true}, nil
}

func (c *Call) Lt(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r < 0 })
}

func (c *Call) Le(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r <= 0 })
}

func (c *Call) Eq(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r == 0 })
}

func (c *Call) Ne(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r != 0 })
}

func (c *Call) Ge(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r >= 0 })
}

func (c *Call) Gt(ctx context.Context, a, b Variant) (sql.NullBool, error) {
	return c.compareTo(ctx, a, b, func(r int64) bool { return r > 0 })
}

func (c *Call) IsDistinctFrom(ctx context.Context, a, b Variant) (bool, error) {
	r, err := c.CompareDistinct(ctx, a, b)
	return r != 0, err
}

func (c *Call) IsNotDistinctFrom(ctx context.Context, a, b Variant) (bool, error) {
	r, err := c.CompareDistinct(ctx, a, b)
	return err == nil && r == 0, err
}
