// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
	"go.e43.eu/variant/internal/text"
)

// Format renders v as "(type,value)". A typed null renders as "(type,)".
func (c *Call) Format(v Variant) (string, error) {
	in, e, err := c.decode(v, variantinterfaces.Output)
	if err != nil {
		return "", errors.WithOp(err, "format")
	}

	if in.Null {
		return text.Format(e.prefix, "", true), nil
	}

	s, err := e.desc.Output(in.Datum)
	if err != nil {
		return "", fmt.Errorf("variant: output of %s: %w", e.typeName, err)
	}
	return text.Format(e.prefix, s, false), nil
}

// Parse reads "(type,value)" into a variant of the given profile
func (c *Call) Parse(s string, profile ProfileID) (Variant, error) {
	typ, val, err := text.Split(s)
	if err != nil {
		return nil, err
	}

	if typ.Null {
		return nil, errors.ErrNullOriginalType
	}

	t, err := c.cr.host.Types.LookupType(typ.Text)
	if err != nil {
		return nil, fmt.Errorf("variant: type %q: %w", typ.Text, err)
	}

	if _, err := c.cr.resolveProfile(profile, t, false); err != nil {
		return nil, err
	}

	e, err := c.cache.lookup(c.cr, t, profile, variantinterfaces.Input)
	if err != nil {
		return nil, errors.WithOp(err, "parse")
	}

	in := Internal{Type: t, Profile: profile, Null: val.Null}
	if !val.Null {
		// Errors from the type's own parser are passed through as they are
		if in.Datum, err = e.desc.Input(val.Text); err != nil {
			return nil, err
		}
	}

	v, err := c.encode(in, variantinterfaces.Input)
	return v, errors.WithOp(err, "parse")
}
