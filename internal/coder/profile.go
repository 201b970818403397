// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"strconv"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
)

// Profile rows are read without locking. A profile may be disabled, or have
// its allow-list changed, between the read and its use.

// profileByID returns the single registry row for id
func (cr *Coder) profileByID(id ProfileID) (variantinterfaces.Profile, error) {
	rows, err := cr.host.Profiles.ProfilesByID(id)
	if err != nil {
		return variantinterfaces.Profile{}, fmt.Errorf("variant: looking up profile %d: %w", id, err)
	}
	if len(rows) != 1 {
		return variantinterfaces.Profile{}, errors.RegistryError{Key: strconv.Itoa(int(id)), Rows: len(rows)}
	}
	return rows[0], nil
}

// resolveProfile checks that profile id may be used to store a value of type
// candidate. candidate may be InvalidType when ignoreAllowList is set.
func (cr *Coder) resolveProfile(id ProfileID, candidate TypeID, ignoreAllowList bool) (variantinterfaces.Profile, error) {
	p, err := cr.profileByID(id)
	if err != nil {
		return p, err
	}

	if !p.Enabled {
		return p, errors.InvalidProfileError{ID: id, Name: p.Name, Reason: "profile is disabled"}
	}

	if ignoreAllowList || !p.Restricted() {
		return p, nil
	}

	if candidate == variantinterfaces.InvalidType {
		return p, errors.ErrNullOriginalType
	}

	if !p.Allows(candidate) {
		// The name is only for the message
		name, _ := cr.host.Types.TypeName(candidate)
		return p, errors.TypeNotAllowedError{Profile: p.Name, Type: candidate, TypeName: name}
	}

	return p, nil
}

// resolveProfileName returns the display name of profile id. Disabled profiles
// still have names; values stored before a profile was disabled must remain
// readable.
func (cr *Coder) resolveProfileName(id ProfileID) (string, error) {
	p, err := cr.profileByID(id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// resolveProfileID is the inverse lookup used when a profile is given by name
func (cr *Coder) resolveProfileID(name string) (ProfileID, error) {
	rows, err := cr.host.Profiles.ProfilesByName(name)
	if err != nil {
		return 0, fmt.Errorf("variant: looking up profile %q: %w", name, err)
	}

	switch {
	case len(rows) == 0:
		return 0, errors.InvalidProfileError{Name: name, Reason: "no such profile"}
	case len(rows) > 1:
		return 0, errors.RegistryError{Key: strconv.Quote(name), Rows: len(rows)}
	case !rows[0].Enabled:
		return 0, errors.InvalidProfileError{ID: rows[0].ID, Name: name, Reason: "profile is disabled"}
	}

	return rows[0].ID, nil
}
