// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package profiles

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TypeLookup resolves the type names of a configuration file
type TypeLookup interface {
	LookupType(name string) (TypeID, error)
}

type fileProfile struct {
	ID           int32    `yaml:"id"`
	Name         string   `yaml:"name"`
	Enabled      *bool    `yaml:"enabled"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type file struct {
	Profiles []fileProfile `yaml:"profiles"`
}

// Load defines the profiles described by the YAML document in r:
//
//	profiles:
//	  - id: 7
//	    name: json_or_int
//	    enabled: true
//	    allowed_types: [json, integer]
//
// enabled defaults to true. Nothing is defined if any entry is invalid.
func (r *Registry) Load(in io.Reader, types TypeLookup) error {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("profiles: %w", err)
	}

	r.defineMu.Lock()
	defer r.defineMu.Unlock()

	defs := make([]Profile, 0, len(f.Profiles))
	for i, fp := range f.Profiles {
		p := Profile{
			ID:      ProfileID(fp.ID),
			Name:    fp.Name,
			Enabled: fp.Enabled == nil || *fp.Enabled,
		}
		for _, name := range fp.AllowedTypes {
			t, err := types.LookupType(name)
			if err != nil {
				return fmt.Errorf("profiles: entry %d (%s): %w", i, fp.Name, err)
			}
			p.AllowedTypes = append(p.AllowedTypes, t)
		}
		if err := validate(p); err != nil {
			return fmt.Errorf("profiles: entry %d (%s): %w", i, fp.Name, err)
		}
		for _, q := range defs {
			if q.ID == p.ID || q.Name == p.Name {
				return fmt.Errorf("profiles: entry %d (%s) duplicates profile %d (%s)", i, p.Name, q.ID, q.Name)
			}
		}
		if rows, _ := r.ProfilesByID(p.ID); len(rows) != 0 {
			return fmt.Errorf("profiles: entry %d: profile id %d is already defined", i, p.ID)
		}
		if rows, _ := r.ProfilesByName(p.Name); len(rows) != 0 {
			return fmt.Errorf("profiles: entry %d: profile name %q is already in use", i, p.Name)
		}
		defs = append(defs, p)
	}

	for _, p := range defs {
		if err := r.define(p); err != nil {
			return err
		}
	}

	Logger().Info("loaded profiles", zap.Int("count", len(defs)))
	return nil
}

// LoadFile is Load reading from the named file
func (r *Registry) LoadFile(path string, types TypeLookup) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := r.Load(f, types); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
