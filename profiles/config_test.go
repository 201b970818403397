// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typeNames map[string]TypeID

func (tn typeNames) LookupType(name string) (TypeID, error) {
	if t, ok := tn[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("type %q does not exist", name)
}

var testTypes = typeNames{"json": 114, "integer": 23, "text": 25}

const exampleConfig = `
profiles:
  - id: 0
    name: default
  - id: 7
    name: json_or_int
    allowed_types: [json, integer]
  - id: 9
    name: retired
    enabled: false
`

func TestLoad(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(strings.NewReader(exampleConfig), testTypes))
	assert.Equal(t, 3, r.Len())

	rows, _ := r.ProfilesByName("json_or_int")
	require.Len(t, rows, 1)
	assert.Equal(t, Profile{ID: 7, Name: "json_or_int", Enabled: true, AllowedTypes: []TypeID{114, 23}}, rows[0])

	rows, _ = r.ProfilesByID(9)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Enabled)

	rows, _ = r.ProfilesByID(0)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Enabled)
	assert.False(t, rows[0].Restricted())
}

func TestLoadEmpty(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(strings.NewReader(""), testTypes))
	assert.Equal(t, 0, r.Len())
}

func TestLoadErrors(t *testing.T) {
	testcases := []struct {
		Name   string
		Config string
		Err    string
	}{
		{"unknown field", "profiles:\n  - id: 1\n    name: a\n    colour: red\n", "field colour not found"},
		{"unknown type", "profiles:\n  - id: 1\n    name: a\n    allowed_types: [uuid]\n", `type "uuid" does not exist`},
		{"duplicate id", "profiles:\n  - id: 1\n    name: a\n  - id: 1\n    name: b\n", "duplicates profile 1"},
		{"duplicate name", "profiles:\n  - id: 1\n    name: a\n  - id: 2\n    name: a\n", "duplicates profile 1"},
		{"negative id", "profiles:\n  - id: -4\n    name: a\n", "is negative"},
		{"no name", "profiles:\n  - id: 4\n", "has no name"},
		{"already defined", "profiles:\n  - id: 0\n    name: again\n", "profile id 0 is already defined"},
		{"name in use", "profiles:\n  - id: 5\n    name: default\n", `profile name "default" is already in use`},
		{"not yaml", "profiles: [", "profiles: yaml"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Define(Profile{ID: 0, Name: "default", Enabled: true}))

			err := r.Load(strings.NewReader(tc.Config), testTypes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.Err)

			// Nothing from a rejected file is defined
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestLoadErrorMessages(t *testing.T) {
	r := NewRegistry()
	err := r.Load(strings.NewReader("profiles:\n  - id: -4\n    name: a\n"), testTypes)
	assert.EqualError(t, err, "profiles: entry 0 (a): profile id -4 is negative")

	err = r.Load(strings.NewReader("profiles:\n  - id: 4\n"), testTypes)
	assert.EqualError(t, err, "profiles: entry 0 (): profile 4 has no name")
}

func TestLoadIsAllOrNothing(t *testing.T) {
	r := NewRegistry()
	cfg := "profiles:\n  - id: 1\n    name: good\n  - id: 2\n    name: bad\n    allowed_types: [nope]\n"
	require.Error(t, r.Load(strings.NewReader(cfg), testTypes))

	rows, _ := r.ProfilesByName("good")
	assert.Len(t, rows, 0)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0o600))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path, testTypes))
	assert.Equal(t, 3, r.Len())

	err := r.LoadFile(path, testTypes)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), path+": "))

	assert.Error(t, NewRegistry().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), testTypes))
}
