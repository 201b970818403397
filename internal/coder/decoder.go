// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
	"go.e43.eu/variant/internal/header"
	"go.e43.eu/variant/internal/varlena"
)

// maxContainer bounds the containers encode produces and decode accepts.
// Payloads past it cannot be rewrapped as variable-length host values.
var maxContainer = varlena.MaxSize

// decode converts an external representation to the internal one, returning
// the cache entry used so callers can reach the type's codec.
func (c *Call) decode(v Variant, dir Direction) (Internal, *cacheEntry, error) {
	if v.Absent() {
		return Internal{}, nil, errors.ErrAbsent
	}

	if len(v) > maxContainer {
		return Internal{}, nil, errors.Corrupt("container larger than the largest value", int64(len(v)))
	}

	h, err := header.Read(v)
	if err != nil {
		return Internal{}, nil, err
	}

	in := Internal{
		Type:    h.TypeID(h.Extra(v)),
		Profile: h.Profile,
		Null:    h.Null(),
	}

	e, err := c.cache.lookup(c.cr, in.Type, in.Profile, dir)
	if err != nil {
		return Internal{}, nil, err
	}

	payloadLen := len(v) - header.Size - h.Trailer()
	if payloadLen < 0 {
		return Internal{}, nil, errors.Corrupt("negative payload length", int64(payloadLen))
	}
	payload := v[header.Size : header.Size+payloadLen]

	if in.Null {
		if payloadLen != 0 {
			return Internal{}, nil, errors.Corrupt("typed null carries a payload", int64(payloadLen))
		}
		return in, e, nil
	}

	d := &e.desc
	switch e.class {
	case variantinterfaces.ByValue:
		off := header.PayloadOffset(d.Align)
		if want := off + int(d.Len) - header.Size; payloadLen != want {
			return Internal{}, nil, errors.Corrupt("by-value payload length mismatch", int64(payloadLen))
		}
		in.Datum.Word = header.Word(v[off:], int(d.Len))

	case variantinterfaces.VarLena:
		// No length word is stored on the wire
		in.Datum.Ptr = varlena.Wrap(payload)

	case variantinterfaces.String:
		ptr := make([]byte, payloadLen+1)
		copy(ptr, payload)
		in.Datum.Ptr = ptr

	case variantinterfaces.ByReference:
		if payloadLen != int(d.Len) {
			return Internal{}, nil, errors.Corrupt("fixed-length payload length mismatch", int64(payloadLen))
		}
		in.Datum.Ptr = append([]byte(nil), payload...)

	default:
		return Internal{}, nil, errors.Corrupt("unrecognized storage class length", int64(d.Len))
	}

	return in, e, nil
}
