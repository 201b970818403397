// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"

	"go.uber.org/zap"

	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
	"go.e43.eu/variant/internal/text"
)

type cacheKey struct {
	typ     TypeID
	profile ProfileID
}

// cacheEntry is the memoized metadata of one (type, profile) pair
type cacheEntry struct {
	dir   Direction
	desc  variantinterfaces.Descriptor
	class variantinterfaces.StorageClass

	// Output entries only
	typeName    string
	profileName string
	// "(typename," as rendered by the text formatter
	prefix string
}

// codecCache memoizes descriptor lookups for the lifetime of one Call.
//
// The last key is checked first; every other key seen during the call is kept
// in a map, so each distinct key reaches the type authority at most once.
type codecCache struct {
	lastKey cacheKey
	last    *cacheEntry

	entries map[cacheKey]*cacheEntry

	hits, misses int
}

func (cc *codecCache) reset() {
	cc.last = nil
	cc.lastKey = cacheKey{}
	for k := range cc.entries {
		delete(cc.entries, k)
	}
	cc.hits, cc.misses = 0, 0
}

func (cc *codecCache) lookup(cr *Coder, t TypeID, profile ProfileID, dir Direction) (*cacheEntry, error) {
	key := cacheKey{t, profile}

	e := cc.last
	if e == nil || cc.lastKey != key {
		e = cc.entries[key]
	}

	if e != nil {
		if e.dir != dir {
			// A call must consistently decode or consistently encode
			cc.reset()
			return nil, errors.WithOp(errors.ErrDirectionMismatch, "cache", fmt.Sprint(t))
		}
		cc.hits++
		cc.lastKey, cc.last = key, e
		return e, nil
	}

	cc.misses++
	cr.log.Debug("codec cache miss",
		zap.Uint32("type", uint32(t)),
		zap.Int32("profile", int32(profile)),
		zap.Stringer("direction", dir))

	e, err := cr.newCacheEntry(t, profile, dir)
	if err != nil {
		return nil, err
	}

	if cc.entries == nil {
		cc.entries = make(map[cacheKey]*cacheEntry)
	}
	cc.entries[key] = e
	cc.lastKey, cc.last = key, e
	return e, nil
}

func (cr *Coder) newCacheEntry(t TypeID, profile ProfileID, dir Direction) (*cacheEntry, error) {
	desc, err := cr.host.Types.Descriptor(t, dir)
	if err != nil {
		return nil, fmt.Errorf("variant: type %d: %w", t, err)
	}

	e := &cacheEntry{
		dir:   dir,
		desc:  desc,
		class: desc.Class(),
	}

	if e.class == variantinterfaces.Unrecognized {
		cr.log.Warn("unrecognized storage class",
			zap.Uint32("type", uint32(t)),
			zap.Int16("len", desc.Len),
			zap.Bool("byval", desc.ByVal))
		return nil, errors.Corrupt("unrecognized storage class length", int64(desc.Len))
	}

	switch dir {
	case variantinterfaces.Input:
		if desc.Input == nil {
			return nil, fmt.Errorf("variant: type %d has no input function: %w", t, errors.ErrUsage)
		}

	case variantinterfaces.Output:
		if desc.Output == nil {
			return nil, fmt.Errorf("variant: type %d has no output function: %w", t, errors.ErrUsage)
		}

		if e.typeName, err = cr.host.Types.TypeName(t); err != nil {
			return nil, fmt.Errorf("variant: type %d: %w", t, err)
		}
		if e.profileName, err = cr.resolveProfileName(profile); err != nil {
			return nil, err
		}
		e.prefix = text.Prefix(e.typeName)
	}

	return e, nil
}
