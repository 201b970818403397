// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package variant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.e43.eu/variant/catalog"
	"go.e43.eu/variant/profiles"
)

type testDirection int

const (
	bothTest testDirection = iota
	encodeTest
	decodeTest
)

// Profiles every test host carries
const (
	defaultProfile  ProfileID = 0
	jsonOrIntID     ProfileID = 7
	disabledProfile ProfileID = 9
)

// Registered only to exercise the overflow byte
const bigTypeID TypeID = 0x20000001

type testHost struct {
	Catalog  *catalog.Catalog
	Profiles *profiles.Registry
	Coder    Coder
}

func newTestHost(t testing.TB) *testHost {
	t.Helper()

	cat := catalog.New(catalog.Options{})
	require.NoError(t, cat.Register(bigTypeID, "bigid", catalog.Int4ID))

	reg := profiles.NewRegistry()
	require.NoError(t, reg.Define(Profile{ID: defaultProfile, Name: "default", Enabled: true}))
	require.NoError(t, reg.Define(Profile{
		ID:           jsonOrIntID,
		Name:         "json_or_int",
		Enabled:      true,
		AllowedTypes: []TypeID{catalog.JSONID, catalog.Int4ID},
	}))
	require.NoError(t, reg.Define(Profile{ID: disabledProfile, Name: "retired", Enabled: false}))

	return &testHost{
		Catalog:  cat,
		Profiles: reg,
		Coder: NewCoder(Host{
			Types:    cat,
			Executor: cat.Executor(),
			Profiles: reg,
		}),
	}
}

type testcase struct {
	// Name of this test case
	Name string

	// Which directions to run this test in (defaults to both)
	Direction testDirection

	// Text form handed to Parse
	Text string

	// Profile to parse into
	Profile ProfileID

	// Expected output of Format, if it differs from Text
	Formatted string

	// The external representation
	Bytes []byte

	// Error expected on parse or format
	EncErrorIs error
	DecErrorIs error
}

func RunTestcases(t *testing.T, tcs []testcase) {
	for i := range tcs {
		tc := &tcs[i]
		if tc.Formatted == "" {
			tc.Formatted = tc.Text
		}
	}

	generatedTestcases := append([]testcase(nil), tcs...)
	t.Parallel()

	// For every case where the decoder is tested, build a variant with the
	// last byte missing. The size word no longer matches, so it must be
	// rejected as corrupt.
	for _, tc := range tcs {
		if tc.Direction == encodeTest || tc.DecErrorIs != nil || len(tc.Bytes) == 0 {
			continue
		}
		tc := tc
		tc.Name += "+truncated"
		tc.Direction = decodeTest
		tc.Bytes = tc.Bytes[:len(tc.Bytes)-1]
		tc.DecErrorIs = ErrFormatCorruption
		generatedTestcases = append(generatedTestcases, tc)
	}

	h := newTestHost(t)

	for _, tc := range generatedTestcases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			if tc.Direction != decodeTest {
				t.Run("Parse", func(t *testing.T) {
					t.Parallel()
					v, err := h.Coder.Parse(tc.Text, tc.Profile)
					if tc.EncErrorIs != nil {
						require.Error(t, err, "Parse should have returned an error")
						require.Truef(t, errors.Is(err, tc.EncErrorIs), "Error expected to be %s, but was %s", tc.EncErrorIs, err)
					} else {
						require.NoError(t, err, "Parse should succeed")
						assert.Equalf(t, tc.Bytes, []byte(v), "Expected %x, got %x", tc.Bytes, []byte(v))
					}
				})

				// A single call parsing twice must hit its cache and agree
				t.Run("ParseCall", func(t *testing.T) {
					t.Parallel()
					if tc.EncErrorIs != nil {
						t.Skip("error case")
					}
					c := h.Coder.NewCall(Input)
					v1, err := c.Parse(tc.Text, tc.Profile)
					require.NoError(t, err)
					v2, err := c.Parse(tc.Text, tc.Profile)
					require.NoError(t, err)
					assert.Equal(t, []byte(v1), []byte(v2))
				})
			}

			if tc.Direction != encodeTest {
				t.Run("Format", func(t *testing.T) {
					t.Parallel()
					s, err := h.Coder.Format(Variant(tc.Bytes))
					if tc.DecErrorIs != nil {
						if assert.Error(t, err, "Format should have returned an error") {
							assert.Truef(t, errors.Is(err, tc.DecErrorIs), "Error expected to be %s, but was %s", tc.DecErrorIs, err)
						} else {
							t.Logf("Returned %q", s)
						}
					} else {
						require.NoError(t, err, "Format should succeed")
						assert.Equal(t, tc.Formatted, s)
					}
				})
			}
		})
	}
}

// parse is a helper which fails the test on error
func parse(t testing.TB, h *testHost, text string, profile ProfileID) Variant {
	t.Helper()
	v, err := h.Coder.Parse(text, profile)
	require.NoError(t, err, "parsing %s", text)
	return v
}
