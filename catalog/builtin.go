// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package catalog

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/varlena"
)

// category groups types which share operators
type category uint8

const (
	catBool category = iota
	catNumeric
	catString
	catJSON
	catBytea
	catUUID
)

type typeInfo struct {
	id      TypeID
	name    string
	aliases []string
	len     int16
	byVal   bool
	align   variantinterfaces.Alignment
	cat     category
	// Numeric types only
	isFloat bool

	in  func(c *Catalog, ti *typeInfo, s string) (Datum, error)
	out func(ti *typeInfo, d Datum) (string, error)
}

var builtins = []typeInfo{
	{id: BoolID, name: "boolean", aliases: []string{"bool"}, len: 1, byVal: true,
		align: variantinterfaces.AlignChar, cat: catBool, in: boolIn, out: boolOut},
	{id: Int2ID, name: "smallint", aliases: []string{"int2"}, len: 2, byVal: true,
		align: variantinterfaces.AlignShort, cat: catNumeric, in: intIn, out: intOut},
	{id: Int4ID, name: "integer", aliases: []string{"int", "int4"}, len: 4, byVal: true,
		align: variantinterfaces.AlignInt, cat: catNumeric, in: intIn, out: intOut},
	{id: Int8ID, name: "bigint", aliases: []string{"int8"}, len: 8, byVal: true,
		align: variantinterfaces.AlignDouble, cat: catNumeric, in: intIn, out: intOut},
	{id: Float4ID, name: "real", aliases: []string{"float4"}, len: 4, byVal: true,
		align: variantinterfaces.AlignInt, cat: catNumeric, isFloat: true, in: floatIn, out: floatOut},
	{id: Float8ID, name: "double precision", aliases: []string{"float8", "float"}, len: 8, byVal: true,
		align: variantinterfaces.AlignDouble, cat: catNumeric, isFloat: true, in: floatIn, out: floatOut},
	{id: TextID, name: "text", aliases: []string{"varchar"}, len: variantinterfaces.VarLen,
		align: variantinterfaces.AlignInt, cat: catString, in: textIn, out: textOut},
	{id: JSONID, name: "json", len: variantinterfaces.VarLen,
		align: variantinterfaces.AlignInt, cat: catJSON, in: jsonIn, out: textOut},
	{id: ByteaID, name: "bytea", len: variantinterfaces.VarLen,
		align: variantinterfaces.AlignInt, cat: catBytea, in: byteaIn, out: byteaOut},
	{id: UnknownID, name: "unknown", aliases: []string{"cstring"}, len: variantinterfaces.CString,
		align: variantinterfaces.AlignChar, cat: catString, in: cstringIn, out: cstringOut},
	{id: UUIDID, name: "uuid", len: 16,
		align: variantinterfaces.AlignChar, cat: catUUID, in: uuidIn, out: uuidOut},
}

func invalidInput(ti *typeInfo, s string) error {
	return fmt.Errorf("invalid input syntax for type %s: %q", ti.name, s)
}

func outOfRange(ti *typeInfo, s string) error {
	return fmt.Errorf("value %q is out of range for type %s", s, ti.name)
}

func boolIn(_ *Catalog, ti *typeInfo, s string) (Datum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "y", "yes", "on", "1":
		return Bool(true), nil
	case "f", "false", "n", "no", "off", "0":
		return Bool(false), nil
	default:
		return Datum{}, invalidInput(ti, s)
	}
}

func boolOut(_ *typeInfo, d Datum) (string, error) {
	if d.Word&0xFF != 0 {
		return "t", nil
	}
	return "f", nil
}

func intIn(_ *Catalog, ti *typeInfo, s string) (Datum, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8*int(ti.len))
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Datum{}, outOfRange(ti, s)
		}
		return Datum{}, invalidInput(ti, s)
	}
	return intDatum(i, ti.len), nil
}

func intOut(ti *typeInfo, d Datum) (string, error) {
	return strconv.FormatInt(intValue(d, ti.len), 10), nil
}

func floatIn(_ *Catalog, ti *typeInfo, s string) (Datum, error) {
	bits := 8 * int(ti.len)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Datum{}, outOfRange(ti, s)
		}
		return Datum{}, invalidInput(ti, s)
	}
	if bits == 32 {
		return Float4(float32(f)), nil
	}
	return Float8(f), nil
}

func floatOut(ti *typeInfo, d Datum) (string, error) {
	f := floatValue(d, ti.len)
	switch {
	case math.IsNaN(f):
		return "NaN", nil
	case math.IsInf(f, 1):
		return "Infinity", nil
	case math.IsInf(f, -1):
		return "-Infinity", nil
	}
	return strconv.FormatFloat(f, 'g', -1, 8*int(ti.len)), nil
}

func textIn(c *Catalog, _ *typeInfo, s string) (Datum, error) {
	return c.storeVarlena([]byte(s))
}

func textOut(_ *typeInfo, d Datum) (string, error) {
	data, err := varlenaData(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func jsonIn(c *Catalog, ti *typeInfo, s string) (Datum, error) {
	if !json.Valid([]byte(s)) {
		return Datum{}, invalidInput(ti, s)
	}
	return c.storeVarlena([]byte(s))
}

func byteaIn(c *Catalog, ti *typeInfo, s string) (Datum, error) {
	if strings.HasPrefix(s, `\x`) {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return Datum{}, invalidInput(ti, s)
		}
		return c.storeVarlena(b)
	}
	return c.storeVarlena([]byte(s))
}

func byteaOut(_ *typeInfo, d Datum) (string, error) {
	data, err := varlenaData(d)
	if err != nil {
		return "", err
	}
	return `\x` + hex.EncodeToString(data), nil
}

func cstringIn(_ *Catalog, _ *typeInfo, s string) (Datum, error) {
	return Unknown(s), nil
}

func cstringOut(_ *typeInfo, d Datum) (string, error) {
	return cstringValue(d), nil
}

func uuidIn(_ *Catalog, ti *typeInfo, s string) (Datum, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		t = t[1 : len(t)-1]
	}
	t = strings.Replace(t, "-", "", -1)
	if len(t) != 32 {
		return Datum{}, invalidInput(ti, s)
	}
	b, err := hex.DecodeString(t)
	if err != nil {
		return Datum{}, invalidInput(ti, s)
	}
	var u [16]byte
	copy(u[:], b)
	return UUID(u), nil
}

func uuidOut(ti *typeInfo, d Datum) (string, error) {
	if len(d.Ptr) != int(ti.len) {
		return "", fmt.Errorf("uuid value has %d bytes", len(d.Ptr))
	}
	h := hex.EncodeToString(d.Ptr)
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32], nil
}

// Constructors for host values of the built-in types

func Bool(b bool) Datum {
	if b {
		return Datum{Word: 1}
	}
	return Datum{Word: 0}
}

// intDatum keeps the low n bytes of i, as decoding a variant would
func intDatum(i int64, n int16) Datum {
	if n >= 8 {
		return Datum{Word: uint64(i)}
	}
	return Datum{Word: uint64(i) & (1<<uint(8*n) - 1)}
}

func Int2(i int16) Datum {
	return Datum{Word: uint64(uint16(i))}
}

func Int4(i int32) Datum {
	return Datum{Word: uint64(uint32(i))}
}

func Int8(i int64) Datum {
	return Datum{Word: uint64(i)}
}

func Float4(f float32) Datum {
	return Datum{Word: uint64(math.Float32bits(f))}
}

func Float8(f float64) Datum {
	return Datum{Word: math.Float64bits(f)}
}

// Text builds an uncompressed text (or json, or bytea) value
func Text(s string) Datum {
	return Datum{Ptr: varlena.Wrap([]byte(s))}
}

func Unknown(s string) Datum {
	ptr := make([]byte, len(s)+1)
	copy(ptr, s)
	return Datum{Ptr: ptr}
}

func UUID(u [16]byte) Datum {
	return Datum{Ptr: append([]byte(nil), u[:]...)}
}

// Accessors

// intValue sign-extends the low n bytes of d
func intValue(d Datum, n int16) int64 {
	shift := uint(64 - 8*int(n))
	return int64(d.Word<<shift) >> shift
}

func floatValue(d Datum, n int16) float64 {
	if n == 4 {
		return float64(math.Float32frombits(uint32(d.Word)))
	}
	return math.Float64frombits(d.Word)
}

func varlenaData(d Datum) ([]byte, error) {
	img, err := varlena.Materialize(d.Ptr)
	if err != nil {
		return nil, err
	}
	return varlena.Data(img)
}

func cstringValue(d Datum) string {
	if i := bytes.IndexByte(d.Ptr, 0); i >= 0 {
		return string(d.Ptr[:i])
	}
	return string(d.Ptr)
}

// AsInt returns the value of an integer typed value
func (c *Catalog) AsInt(v Value) (int64, error) {
	ti, err := c.info(v.Type)
	if err != nil {
		return 0, err
	}
	if ti.cat != catNumeric || ti.isFloat {
		return 0, fmt.Errorf("catalog: %s is not an integer type", ti.name)
	}
	return intValue(v.Datum, ti.len), nil
}

// AsFloat returns the value of a numeric typed value
func (c *Catalog) AsFloat(v Value) (float64, error) {
	ti, err := c.info(v.Type)
	if err != nil {
		return 0, err
	}
	if ti.cat != catNumeric {
		return 0, fmt.Errorf("catalog: %s is not a numeric type", ti.name)
	}
	if ti.isFloat {
		return floatValue(v.Datum, ti.len), nil
	}
	return float64(intValue(v.Datum, ti.len)), nil
}

// AsString returns the contents of a string-like value (text, json, unknown)
func (c *Catalog) AsString(v Value) (string, error) {
	ti, err := c.info(v.Type)
	if err != nil {
		return "", err
	}
	switch {
	case ti.len == variantinterfaces.CString:
		return cstringValue(v.Datum), nil
	case ti.len == variantinterfaces.VarLen:
		b, err := varlenaData(v.Datum)
		return string(b), err
	default:
		return "", fmt.Errorf("catalog: %s is not a string type", ti.name)
	}
}
