// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package variant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.e43.eu/variant/catalog"
)

func TestCodecsBasic(t *testing.T) {
	testcases := []testcase{
		{
			Name:  "boolean true",
			Text:  "(boolean,t)",
			Bytes: []byte{0, 0, 0, 13, 0, 0, 0, 16, 0, 0, 0, 0, 1},
		}, {
			Name:      "boolean alias",
			Direction: encodeTest,
			Text:      "(bool,false)",
			Bytes:     []byte{0, 0, 0, 13, 0, 0, 0, 16, 0, 0, 0, 0, 0},
		}, {
			Name:  "smallint 7",
			Text:  "(smallint,7)",
			Bytes: []byte{0, 0, 0, 14, 0, 0, 0, 21, 0, 0, 0, 0, 0, 7},
		}, {
			Name:  "integer 42",
			Text:  "(integer,42)",
			Bytes: []byte{0, 0, 0, 16, 0, 0, 0, 23, 0, 0, 0, 0, 0, 0, 0, 42},
		}, {
			Name:  "integer -1",
			Text:  "(integer,-1)",
			Bytes: []byte{0, 0, 0, 16, 0, 0, 0, 23, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
		}, {
			Name:    "integer 42 in profile 7",
			Text:    "(integer,42)",
			Profile: jsonOrIntID,
			Bytes:   []byte{0, 0, 0, 16, 0, 0, 0, 23, 0, 0, 0, 7, 0, 0, 0, 42},
		}, {
			// Aligned to 8: four bytes of padding count as payload
			Name: "bigint -1",
			Text: "(bigint,-1)",
			Bytes: []byte{
				0, 0, 0, 24, 0, 0, 0, 20, 0, 0, 0, 0,
				0, 0, 0, 0,
				0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			},
		}, {
			Name:  "real 1.5",
			Text:  "(real,1.5)",
			Bytes: []byte{0, 0, 0, 16, 0, 0, 0x02, 0xbc, 0, 0, 0, 0, 0x3f, 0xc0, 0, 0},
		}, {
			Name: "double precision 1.5",
			Text: `("double precision",1.5)`,
			Bytes: []byte{
				0, 0, 0, 24, 0, 0, 0x02, 0xbd, 0, 0, 0, 0,
				0, 0, 0, 0,
				0x3f, 0xf8, 0, 0, 0, 0, 0, 0,
			},
		}, {
			Name:      "float8 alias",
			Direction: encodeTest,
			Text:      "(float8,1.5)",
			Bytes: []byte{
				0, 0, 0, 24, 0, 0, 0x02, 0xbd, 0, 0, 0, 0,
				0, 0, 0, 0,
				0x3f, 0xf8, 0, 0, 0, 0, 0, 0,
			},
		}, {
			Name:  "text hello",
			Text:  "(text,hello)",
			Bytes: []byte{0, 0, 0, 17, 0, 0, 0, 25, 0, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'},
		}, {
			Name: "text with space",
			Text: `(text,"hello world")`,
			Bytes: []byte{
				0, 0, 0, 23, 0, 0, 0, 25, 0, 0, 0, 0,
				'h', 'e', 'l', 'l', 'o', ' ', 'w', 'o', 'r', 'l', 'd',
			},
		}, {
			Name:      "unquoted leading space is kept",
			Text:      "(text, x)",
			Formatted: `(text," x")`,
			Bytes:     []byte{0, 0, 0, 14, 0, 0, 0, 25, 0, 0, 0, 0, ' ', 'x'},
		}, {
			Name:  "text with quote and backslash",
			Text:  `(text,"a""b\\c")`,
			Bytes: []byte{0, 0, 0, 17, 0, 0, 0, 25, 0, 0, 0, 0, 'a', '"', 'b', '\\', 'c'},
		}, {
			Name:  "empty text",
			Text:  `(text,"")`,
			Bytes: []byte{0, 0, 0, 12, 0, 0, 0, 25, 0, 0, 0, 0},
		}, {
			Name:  "null text",
			Text:  "(text,)",
			Bytes: []byte{0, 0, 0, 12, 0x20, 0, 0, 25, 0, 0, 0, 0},
		}, {
			Name:  "null integer",
			Text:  "(integer,)",
			Bytes: []byte{0, 0, 0, 12, 0x20, 0, 0, 23, 0, 0, 0, 0},
		}, {
			Name:    "json in profile 7",
			Text:    `(json,"{""a"":1}")`,
			Profile: jsonOrIntID,
			Bytes: []byte{
				0, 0, 0, 19, 0, 0, 0, 114, 0, 0, 0, 7,
				'{', '"', 'a', '"', ':', '1', '}',
			},
		}, {
			Name:  "bytea",
			Text:  `(bytea,"\\x0102")`,
			Bytes: []byte{0, 0, 0, 14, 0, 0, 0, 17, 0, 0, 0, 0, 1, 2},
		}, {
			Name:  "unknown is stored without its terminator",
			Text:  "(unknown,hi)",
			Bytes: []byte{0, 0, 0, 14, 0, 0, 0x02, 0xc1, 0, 0, 0, 0, 'h', 'i'},
		}, {
			Name: "uuid",
			Text: "(uuid,a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11)",
			Bytes: []byte{
				0, 0, 0, 28, 0, 0, 0x0b, 0x86, 0, 0, 0, 0,
				0xa0, 0xee, 0xbc, 0x99, 0x9c, 0x0b, 0x4e, 0xf8,
				0xbb, 0x6d, 0x6b, 0xb9, 0xbd, 0x38, 0x0a, 0x11,
			},
		}, {
			Name:  "overflowed type id",
			Text:  "(bigid,42)",
			Bytes: []byte{0, 0, 0, 17, 0x40, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 42, 0x20},
		}, {
			Name:  "overflowed null",
			Text:  "(bigid,)",
			Bytes: []byte{0, 0, 0, 13, 0x60, 0, 0, 1, 0, 0, 0, 0, 0x20},
		}, {
			Name:       "null type",
			Direction:  encodeTest,
			Text:       "(,1)",
			EncErrorIs: ErrPolicyViolation,
		}, {
			Name:       "missing parenthesis",
			Direction:  encodeTest,
			Text:       "integer,1",
			EncErrorIs: ErrMalformedLiteral,
		}, {
			Name:       "too many columns",
			Direction:  encodeTest,
			Text:       "(integer,1,2)",
			EncErrorIs: ErrPolicyViolation,
		}, {
			Name:       "type not allowed by profile",
			Direction:  encodeTest,
			Text:       "(real,1.5)",
			Profile:    jsonOrIntID,
			EncErrorIs: ErrPolicyViolation,
		}, {
			Name:       "disabled profile",
			Direction:  encodeTest,
			Text:       "(integer,1)",
			Profile:    disabledProfile,
			EncErrorIs: ErrPolicyViolation,
		}, {
			Name:       "unknown profile",
			Direction:  encodeTest,
			Text:       "(integer,1)",
			Profile:    1234,
			EncErrorIs: ErrRegistryInconsistency,
		}, {
			Name:       "version bit",
			Direction:  decodeTest,
			Bytes:      []byte{0, 0, 0, 12, 0x80, 0, 0, 23, 0, 0, 0, 0},
			DecErrorIs: ErrFormatCorruption,
		}, {
			Name:       "short by-value payload",
			Direction:  decodeTest,
			Bytes:      []byte{0, 0, 0, 15, 0, 0, 0, 23, 0, 0, 0, 0, 0, 0, 42},
			DecErrorIs: ErrFormatCorruption,
		}, {
			Name:       "null with payload",
			Direction:  decodeTest,
			Bytes:      []byte{0, 0, 0, 16, 0x20, 0, 0, 23, 0, 0, 0, 0, 0, 0, 0, 42},
			DecErrorIs: ErrFormatCorruption,
		}, {
			Name:       "overflow byte missing",
			Direction:  decodeTest,
			Bytes:      []byte{0, 0, 0, 12, 0x40, 0, 0, 1, 0, 0, 0, 0},
			DecErrorIs: ErrFormatCorruption,
		}, {
			Name:       "short uuid",
			Direction:  decodeTest,
			Bytes:      []byte{0, 0, 0, 14, 0, 0, 0x0b, 0x86, 0, 0, 0, 0, 1, 2},
			DecErrorIs: ErrFormatCorruption,
		}, {
			Name:       "absent",
			Direction:  decodeTest,
			Bytes:      nil,
			DecErrorIs: ErrUsage,
		},
	}

	RunTestcases(t, testcases)
}

func TestJSONOrIntProfile(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)
	ctx := context.Background()

	v, err := h.Coder.CastIn(ctx, Value{Type: catalog.Int4ID, Datum: catalog.Int4(42)}, jsonOrIntID)
	require.NoError(t, err)

	s, err := h.Coder.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "(integer,42)", s)

	out, err := h.Coder.CastOut(ctx, v, catalog.TextID)
	require.NoError(t, err)
	assert.Equal(t, catalog.TextID, out.Type)
	str, err := h.Catalog.AsString(out)
	require.NoError(t, err)
	assert.Equal(t, "42", str)

	again, err := h.Coder.Parse(s, jsonOrIntID)
	require.NoError(t, err)
	assert.True(t, h.Coder.ImageEquals(v, again))

	_, err = h.Coder.CastIn(ctx, Value{Type: catalog.Float4ID, Datum: catalog.Float4(1.5)}, jsonOrIntID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyViolation))
	var tna TypeNotAllowedError
	require.True(t, errors.As(err, &tna))
	assert.Equal(t, "real", tna.TypeName)
	assert.Equal(t, "json_or_int", tna.Profile)
}

func TestCastIn(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)
	ctx := context.Background()

	t.Run("NullValue", func(t *testing.T) {
		v, err := h.Coder.CastIn(ctx, Value{Type: catalog.TextID, Null: true}, defaultProfile)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 12, 0x20, 0, 0, 25, 0, 0, 0, 0}, []byte(v))
	})

	t.Run("NoType", func(t *testing.T) {
		_, err := h.Coder.CastIn(ctx, Value{Null: true}, defaultProfile)
		assert.True(t, errors.Is(err, ErrNullOriginalType))
		assert.True(t, errors.Is(err, ErrPolicyViolation))
	})

	t.Run("CompressedTextIsExpanded", func(t *testing.T) {
		long := make([]byte, 1000)
		for i := range long {
			long[i] = 'a' + byte(i%3)
		}

		for _, method := range []catalog.Compression{catalog.CompressS2, catalog.CompressBrotli} {
			cat := catalog.New(catalog.Options{Compression: method, CompressThreshold: 64})
			val, err := cat.Input(catalog.TextID, string(long))
			require.NoError(t, err)

			v, err := h.Coder.CastIn(ctx, val, defaultProfile)
			require.NoError(t, err, "method %s", method)

			plain, err := h.Coder.CastIn(ctx, Value{Type: catalog.TextID, Datum: catalog.Text(string(long))}, defaultProfile)
			require.NoError(t, err)
			assert.Equal(t, []byte(plain), []byte(v), "method %s", method)
			assert.Len(t, v, 12+len(long))
		}
	})
}

func TestCastOut(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)
	ctx := context.Background()

	t.Run("SameType", func(t *testing.T) {
		v := parse(t, h, "(bigint,-5)", defaultProfile)
		out, err := h.Coder.CastOut(ctx, v, catalog.Int8ID)
		require.NoError(t, err)
		n, err := h.Catalog.AsInt(out)
		require.NoError(t, err)
		assert.Equal(t, int64(-5), n)
	})

	t.Run("Widening", func(t *testing.T) {
		v := parse(t, h, "(smallint,-3)", defaultProfile)
		out, err := h.Coder.CastOut(ctx, v, catalog.Int8ID)
		require.NoError(t, err)
		assert.Equal(t, catalog.Int8ID, out.Type)
		n, err := h.Catalog.AsInt(out)
		require.NoError(t, err)
		assert.Equal(t, int64(-3), n)
	})

	t.Run("TextToInteger", func(t *testing.T) {
		v := parse(t, h, "(text,17)", defaultProfile)
		out, err := h.Coder.CastOut(ctx, v, catalog.Int4ID)
		require.NoError(t, err)
		s, err := h.Catalog.Output(out)
		require.NoError(t, err)
		assert.Equal(t, "17", s)
	})

	t.Run("NullKeepsTarget", func(t *testing.T) {
		v := parse(t, h, "(text,)", defaultProfile)
		out, err := h.Coder.CastOut(ctx, v, catalog.Int4ID)
		require.NoError(t, err)
		assert.True(t, out.Null)
		assert.Equal(t, catalog.Int4ID, out.Type)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		v := parse(t, h, "(bigint,100000)", defaultProfile)
		_, err := h.Coder.CastOut(ctx, v, catalog.Int2ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDelegationFailure))
		assert.Equal(t, "smallint out of range", err.Error())
	})

	t.Run("Impossible", func(t *testing.T) {
		v := parse(t, h, "(uuid,a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11)", defaultProfile)
		_, err := h.Coder.CastOut(ctx, v, catalog.BoolID)
		require.Error(t, err)
		assert.Equal(t, "cannot cast type uuid to boolean", err.Error())
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := h.Coder.CastOut(ctx, nil, catalog.Int4ID)
		assert.True(t, errors.Is(err, ErrUsage))
	})
}

func TestProfileResolution(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)

	name, err := h.Coder.ResolveProfileName(jsonOrIntID)
	require.NoError(t, err)
	assert.Equal(t, "json_or_int", name)

	id, err := h.Coder.ResolveProfileID("json_or_int")
	require.NoError(t, err)
	assert.Equal(t, jsonOrIntID, id)

	// Disabled profiles keep their names, but cannot be selected by name
	name, err = h.Coder.ResolveProfileName(disabledProfile)
	require.NoError(t, err)
	assert.Equal(t, "retired", name)
	_, err = h.Coder.ResolveProfileID("retired")
	assert.True(t, errors.Is(err, ErrPolicyViolation))

	_, err = h.Coder.ResolveProfileID("nope")
	var ipe InvalidProfileError
	assert.True(t, errors.As(err, &ipe))

	_, err = h.Coder.ResolveProfileName(99)
	assert.True(t, errors.Is(err, ErrRegistryInconsistency))
}

func TestDuplicateProfileRows(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)

	v := parse(t, h, "(integer,1)", jsonOrIntID)

	h.Profiles.Put(Profile{ID: jsonOrIntID, Name: "json_or_int_copy", Enabled: true})

	_, err := h.Coder.Parse("(integer,1)", jsonOrIntID)
	assert.True(t, errors.Is(err, ErrRegistryInconsistency))

	_, err = h.Coder.Format(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistryInconsistency))
	assert.Contains(t, err.Error(), "the profile registry is corrupted")

	_, err = h.Coder.ResolveProfileName(jsonOrIntID)
	assert.True(t, errors.Is(err, ErrRegistryInconsistency))
}

func TestDisabledProfileStillFormats(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)

	v := parse(t, h, "(text,kept)", defaultProfile)
	require.NoError(t, h.Profiles.SetEnabled(defaultProfile, false))

	s, err := h.Coder.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "(text,kept)", s)

	_, err = h.Coder.Parse("(text,new)", defaultProfile)
	assert.True(t, errors.Is(err, ErrPolicyViolation))
}

func TestInspect(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)

	v := parse(t, h, "(bigid,7)", defaultProfile)
	in, err := h.Coder.NewCall(Output).Inspect(v)
	require.NoError(t, err)
	assert.Equal(t, bigTypeID, in.Type)
	assert.Equal(t, defaultProfile, in.Profile)
	assert.False(t, in.Null)
	assert.Equal(t, uint64(7), in.Datum.Word)

	v = parse(t, h, "(unknown,abc)", defaultProfile)
	in, err = h.Coder.NewCall(Output).Inspect(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'c', 0}, in.Datum.Ptr)
}

func TestDirectionMismatch(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)

	v := parse(t, h, "(integer,1)", defaultProfile)

	c := h.Coder.NewCall(Input)
	_, err := c.Inspect(v)
	require.NoError(t, err)

	// The same key, now wanted for output
	_, err = c.Format(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.True(t, errors.Is(err, ErrDirectionMismatch))

	// The mismatch reset the cache, so the call recovers
	s, err := c.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "(integer,1)", s)
}

func TestImageEquals(t *testing.T) {
	t.Parallel()
	h := newTestHost(t)
	ctx := context.Background()

	a := parse(t, h, "(integer,1)", defaultProfile)
	b := parse(t, h, "(integer,1)", defaultProfile)
	c := parse(t, h, "(bigint,1)", defaultProfile)
	n1 := parse(t, h, "(integer,)", defaultProfile)
	n2 := parse(t, h, "(integer,)", defaultProfile)

	assert.True(t, h.Coder.ImageEquals(a, b))
	assert.False(t, h.Coder.ImageEquals(a, c))
	assert.False(t, h.Coder.ImageEquals(a, nil))
	assert.False(t, h.Coder.ImageEquals(nil, nil))

	// Equal values of different types are equal, but their images differ
	eq, err := h.Coder.NewCall(Input).Eq(ctx, a, c)
	require.NoError(t, err)
	assert.True(t, eq.Valid && eq.Bool)

	// Typed nulls have equal images but unknown equality
	assert.True(t, h.Coder.ImageEquals(n1, n2))
	eq, err = h.Coder.NewCall(Input).Eq(ctx, n1, n2)
	require.NoError(t, err)
	assert.False(t, eq.Valid)
}
