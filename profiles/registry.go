// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package profiles is an in-memory variant profile registry.
//
// The registry behaves like a table: Define enforces unique ids and names,
// while Put inserts a row as is, which permits the duplicate rows a damaged
// catalog might hold.
package profiles

import (
	"fmt"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	variantinterfaces "go.e43.eu/variant/interfaces"
)

type (
	Profile   = variantinterfaces.Profile
	ProfileID = variantinterfaces.ProfileID
	TypeID    = variantinterfaces.TypeID
)

// Registry holds profile rows keyed by id. It is safe for concurrent use;
// readers never block writers.
type Registry struct {
	rows *xsync.MapOf[ProfileID, []Profile]

	// Serializes Define and Load so uniqueness checks and inserts are one step
	defineMu sync.Mutex
}

var _ variantinterfaces.ProfileRegistry = &Registry{}

func NewRegistry() *Registry {
	return &Registry{rows: xsync.NewMapOf[ProfileID, []Profile]()}
}

func clone(p Profile) Profile {
	if p.AllowedTypes != nil {
		p.AllowedTypes = append([]TypeID(nil), p.AllowedTypes...)
	}
	return p
}

func validate(p Profile) error {
	switch {
	case p.ID < 0:
		return fmt.Errorf("profile id %d is negative", p.ID)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("profile %d has no name", p.ID)
	}
	for _, t := range p.AllowedTypes {
		if t == variantinterfaces.InvalidType {
			return fmt.Errorf("profile %q allows the invalid type", p.Name)
		}
	}
	return nil
}

// Define adds a new profile. Both the id and the name must be unused.
func (r *Registry) Define(p Profile) error {
	if err := validate(p); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}

	r.defineMu.Lock()
	defer r.defineMu.Unlock()
	return r.define(p)
}

// define inserts a validated profile. The caller holds defineMu.
func (r *Registry) define(p Profile) error {
	if rows, _ := r.ProfilesByName(p.Name); len(rows) != 0 {
		return fmt.Errorf("profiles: profile name %q is already in use by %d", p.Name, rows[0].ID)
	}

	var exists bool
	r.rows.Compute(p.ID, func(old []Profile, loaded bool) ([]Profile, bool) {
		if loaded && len(old) != 0 {
			exists = true
			return old, false
		}
		return []Profile{clone(p)}, false
	})
	if exists {
		return fmt.Errorf("profiles: profile id %d is already defined", p.ID)
	}

	Logger().Debug("defined profile",
		zap.Int32("id", int32(p.ID)),
		zap.String("name", p.Name),
		zap.Bool("enabled", p.Enabled),
		zap.Int("allowedTypes", len(p.AllowedTypes)))
	return nil
}

// Put inserts a row without any uniqueness checks
func (r *Registry) Put(p Profile) {
	r.rows.Compute(p.ID, func(old []Profile, _ bool) ([]Profile, bool) {
		rows := make([]Profile, len(old), len(old)+1)
		copy(rows, old)
		return append(rows, clone(p)), false
	})
}

// SetEnabled changes the enabled flag of every row with the given id
func (r *Registry) SetEnabled(id ProfileID, enabled bool) error {
	var found bool
	r.rows.Compute(id, func(old []Profile, loaded bool) ([]Profile, bool) {
		if !loaded || len(old) == 0 {
			return nil, true
		}
		found = true
		rows := make([]Profile, len(old))
		for i, p := range old {
			p.Enabled = enabled
			rows[i] = p
		}
		return rows, false
	})
	if !found {
		return fmt.Errorf("profiles: profile %d does not exist", id)
	}
	Logger().Debug("profile state changed", zap.Int32("id", int32(id)), zap.Bool("enabled", enabled))
	return nil
}

// Remove deletes every row with the given id
func (r *Registry) Remove(id ProfileID) bool {
	_, ok := r.rows.LoadAndDelete(id)
	return ok
}

// ProfilesByID returns copies of every row with the given id
func (r *Registry) ProfilesByID(id ProfileID) ([]Profile, error) {
	rows, ok := r.rows.Load(id)
	if !ok {
		return nil, nil
	}
	out := make([]Profile, len(rows))
	for i, p := range rows {
		out[i] = clone(p)
	}
	return out, nil
}

// ProfilesByName returns copies of every row with the given name. Names
// compare exactly.
func (r *Registry) ProfilesByName(name string) ([]Profile, error) {
	var out []Profile
	r.rows.Range(func(_ ProfileID, rows []Profile) bool {
		for _, p := range rows {
			if p.Name == name {
				out = append(out, clone(p))
			}
		}
		return true
	})
	return out, nil
}

// Len returns the number of rows
func (r *Registry) Len() int {
	n := 0
	r.rows.Range(func(_ ProfileID, rows []Profile) bool {
		n += len(rows)
		return true
	})
	return n
}
