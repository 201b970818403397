// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
	"go.e43.eu/variant/internal/header"
	"go.e43.eu/variant/internal/varlena"
)

// encoder lays out one container
type encoder struct {
	e  *cacheEntry
	in *Internal

	// Payload for raw copies (everything but by-value)
	payload []byte
	// Bytes between the header and the trailer
	payloadLen int
	// Where a by-value payload starts
	valueOff int
}

// encode converts in to its external representation. dir only selects the
// codec metadata consulted; the encoding itself does not depend on it.
func (c *Call) encode(in Internal, dir Direction) (Variant, error) {
	e, err := c.cache.lookup(c.cr, in.Type, in.Profile, dir)
	if err != nil {
		return nil, err
	}

	enc := encoder{e: e, in: &in}
	if err := enc.measure(); err != nil {
		return nil, err
	}

	v, err := enc.write()
	if err != nil {
		c.cr.log.Warn("encoded variant failed verification")
		return nil, err
	}
	return v, nil
}

// measure computes the payload length for the entry's storage class
func (w *encoder) measure() error {
	if w.in.Null {
		w.payloadLen = 0
		return nil
	}

	d := &w.e.desc
	ptr := w.in.Datum.Ptr

	switch w.e.class {
	case variantinterfaces.VarLena:
		// Never store a compressed image
		img, err := varlena.Materialize(ptr)
		if err != nil {
			return err
		}
		if w.payload, err = varlena.Data(img); err != nil {
			return err
		}
		w.payloadLen = len(w.payload)

	case variantinterfaces.String:
		if i := bytes.IndexByte(ptr, 0); i >= 0 {
			ptr = ptr[:i]
		}
		w.payload = ptr
		w.payloadLen = len(ptr)

	case variantinterfaces.ByReference:
		if len(ptr) < int(d.Len) {
			return errors.Corrupt("fixed-length value shorter than its type", int64(len(ptr)))
		}
		w.payload = ptr[:d.Len]
		w.payloadLen = int(d.Len)

	case variantinterfaces.ByValue:
		// Align the running offset, add the length, then take the header back
		// off so the total size includes the padding
		w.valueOff = header.PayloadOffset(d.Align)
		w.payloadLen = w.valueOff + int(d.Len) - header.Size

	default:
		return errors.Corrupt("unrecognized storage class length", int64(d.Len))
	}

	if w.payloadLen < 0 {
		return errors.Corrupt("negative payload length", int64(w.payloadLen))
	}
	return nil
}

func (w *encoder) write() (Variant, error) {
	trailer := 0
	if header.TooLarge(w.in.Type) {
		trailer = 1
	}

	total := header.Size + w.payloadLen + trailer
	if total > maxContainer {
		return nil, errors.Corrupt("variant too large", int64(total))
	}

	buf := make([]byte, total)
	h, extra := header.New(total, w.in.Type, w.in.Profile, w.in.Null)
	h.Put(buf)

	switch {
	case w.in.Null:
	case w.e.class == variantinterfaces.ByValue:
		header.PutWord(buf[w.valueOff:], w.in.Datum.Word, int(w.e.desc.Len))
	default:
		copy(buf[header.Size:], w.payload)
	}

	if trailer != 0 {
		buf[total-1] = extra
	}

	// The header must read back to exactly what we were given
	check, err := header.Read(buf)
	if err != nil {
		return nil, err
	}
	if got := check.TypeID(check.Extra(buf)); got != w.in.Type {
		return nil, errors.Corrupt("type id did not survive encoding", int64(got))
	}
	if check.Null() != w.in.Null || check.Overflow() != (trailer != 0) || check.Profile != w.in.Profile {
		return nil, errors.Corrupt("flags did not survive encoding", int64(check.Flags()))
	}

	return buf, nil
}
