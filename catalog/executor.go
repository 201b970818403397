// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	variantinterfaces "go.e43.eu/variant/interfaces"
)

// Executor evaluates the comparison and cast expressions used by variants
// against the types of a Catalog
type Executor struct {
	c *Catalog
}

var _ variantinterfaces.Executor = Executor{}

// Executor returns an expression evaluator for c
func (c *Catalog) Executor() Executor {
	return Executor{c: c}
}

func (e Executor) Evaluate(ctx context.Context, expr string, params ...Value) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}

	if expr == variantinterfaces.CompareExpr {
		if len(params) != 2 {
			return Value{}, fmt.Errorf("comparison needs 2 parameters, got %d", len(params))
		}
		return e.compare(params[0], params[1])
	}

	if target, ok := variantinterfaces.CastTarget(expr); ok {
		if len(params) != 1 {
			return Value{}, fmt.Errorf("cast needs 1 parameter, got %d", len(params))
		}
		return e.cast(params[0], target)
	}

	return Value{}, fmt.Errorf("unsupported expression %q", expr)
}

func sign(r int) Value {
	switch {
	case r < 0:
		r = -1
	case r > 0:
		r = 1
	}
	return Value{Type: Int4ID, Datum: Int4(int32(r))}
}

func (e Executor) compare(a, b Value) (Value, error) {
	if a.Null || b.Null {
		return Value{Type: Int4ID, Null: true}, nil
	}

	ta, err := e.c.info(a.Type)
	if err != nil {
		return Value{}, err
	}
	tb, err := e.c.info(b.Type)
	if err != nil {
		return Value{}, err
	}

	noOperator := fmt.Errorf("operator does not exist: %s < %s", ta.name, tb.name)

	switch {
	case ta.cat == catNumeric && tb.cat == catNumeric:
		if !ta.isFloat && !tb.isFloat {
			x, y := intValue(a.Datum, ta.len), intValue(b.Datum, tb.len)
			switch {
			case x < y:
				return sign(-1), nil
			case x > y:
				return sign(1), nil
			}
			return sign(0), nil
		}
		return sign(compareFloat(numeric(ta, a.Datum), numeric(tb, b.Datum))), nil

	case ta.cat != tb.cat:
		return Value{}, noOperator

	case ta.cat == catBool:
		return sign(int(a.Datum.Word&0xFF) - int(b.Datum.Word&0xFF)), nil

	case ta.cat == catUUID:
		return sign(bytes.Compare(a.Datum.Ptr, b.Datum.Ptr)), nil

	case ta.cat == catString || ta.cat == catBytea:
		x, err := e.c.bytesOf(ta, a.Datum)
		if err != nil {
			return Value{}, err
		}
		y, err := e.c.bytesOf(tb, b.Datum)
		if err != nil {
			return Value{}, err
		}
		return sign(bytes.Compare(x, y)), nil

	default:
		// json has no ordering
		return Value{}, noOperator
	}
}

func numeric(ti *typeInfo, d Datum) float64 {
	if ti.isFloat {
		return floatValue(d, ti.len)
	}
	return float64(intValue(d, ti.len))
}

// compareFloat orders NaN above everything, and equal to itself
func compareFloat(x, y float64) int {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn:
		return 1
	case yn:
		return -1
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (c *Catalog) bytesOf(ti *typeInfo, d Datum) ([]byte, error) {
	if ti.len == variantinterfaces.CString {
		return []byte(cstringValue(d)), nil
	}
	return varlenaData(d)
}

func (e Executor) cast(v Value, targetName string) (Value, error) {
	target, err := e.c.LookupType(targetName)
	if err != nil {
		return Value{}, err
	}
	tt, err := e.c.info(target)
	if err != nil {
		return Value{}, err
	}

	if v.Null {
		return Value{Type: target, Null: true}, nil
	}

	ts, err := e.c.info(v.Type)
	if err != nil {
		return Value{}, err
	}

	if ts.id == tt.id {
		return v, nil
	}

	switch {
	case ts.cat == catNumeric && tt.cat == catNumeric:
		return castNumeric(ts, tt, v.Datum)

	case ts.cat == catBool && tt.cat == catNumeric && !tt.isFloat && tt.len == 4:
		return Value{Type: target, Datum: Int4(int32(v.Datum.Word & 0xFF))}, nil

	case ts.cat == catNumeric && !ts.isFloat && ts.len == 4 && tt.cat == catBool:
		return Value{Type: target, Datum: Bool(intValue(v.Datum, 4) != 0)}, nil

	case ts.cat == catString || tt.cat == catString:
		// I/O conversion
		s, err := ts.out(ts, v.Datum)
		if err != nil {
			return Value{}, err
		}
		if ts.cat == catString && tt.cat != catString {
			s = strings.TrimSpace(s)
		}
		d, err := tt.in(e.c, tt, s)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: target, Datum: d}, nil

	case ts.cat == catJSON && tt.cat == catJSON:
		return Value{Type: target, Datum: v.Datum}, nil
	}

	return Value{}, fmt.Errorf("cannot cast type %s to %s", ts.name, tt.name)
}

func castNumeric(ts, tt *typeInfo, d Datum) (Value, error) {
	if tt.isFloat {
		f := numeric(ts, d)
		if tt.len == 4 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return Value{}, fmt.Errorf("value out of range: overflow")
			}
			return Value{Type: tt.id, Datum: Float4(float32(f))}, nil
		}
		return Value{Type: tt.id, Datum: Float8(f)}, nil
	}

	var i int64
	if ts.isFloat {
		f := math.RoundToEven(numeric(ts, d))
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return Value{}, fmt.Errorf("%s out of range", tt.name)
		}
		i = int64(f)
	} else {
		i = intValue(d, ts.len)
	}

	bits := uint(8 * tt.len)
	if bits < 64 {
		lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
		if i < lo || i > hi {
			return Value{}, fmt.Errorf("%s out of range", tt.name)
		}
	}
	return Value{Type: tt.id, Datum: intDatum(i, tt.len)}, nil
}
