// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go.e43.eu/variant"
	"go.e43.eu/variant/catalog"
)

type app struct {
	cat     *catalog.Catalog
	coder   variant.Coder
	profile variant.ProfileID
	closer  func() error
	log     *zap.Logger
}

// Close releases the profile source. Failures are logged and returned.
func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	if err != nil && a.log != nil {
		a.log.Warn("closing profile source", zap.Error(err))
	}
	return err
}

// resolveProfile accepts either a profile id or a profile name
func (a *app) resolveProfile(s string) (variant.ProfileID, error) {
	if id, err := strconv.ParseInt(s, 10, 32); err == nil {
		// Validates the id
		if _, err := a.coder.ResolveProfileName(variant.ProfileID(id)); err != nil {
			return 0, err
		}
		return variant.ProfileID(id), nil
	}
	return a.coder.ResolveProfileID(s)
}

func wantArgs(args []string, n int) error {
	if len(args)-1 != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", args[0], n, len(args)-1)
	}
	return nil
}

// run executes one command and returns its output
func (a *app) run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no command")
	}

	switch args[0] {
	case "parse":
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		v, err := a.coder.Parse(args[1], a.profile)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(v), nil

	case "format":
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		v, err := decodeHex(args[1])
		if err != nil {
			return "", err
		}
		return a.coder.Format(v)

	case "inspect":
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		v, err := decodeHex(args[1])
		if err != nil {
			return "", err
		}
		return a.inspect(v)

	case "compare":
		if err := wantArgs(args, 2); err != nil {
			return "", err
		}
		return a.compare(ctx, args[1], args[2])

	case "cast":
		if err := wantArgs(args, 2); err != nil {
			return "", err
		}
		return a.cast(ctx, args[1], args[2])

	case "profile":
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		if id, err := strconv.ParseInt(args[1], 10, 32); err == nil {
			return a.coder.ResolveProfileName(variant.ProfileID(id))
		}
		id, err := a.coder.ResolveProfileID(args[1])
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(id)), nil

	default:
		return "", fmt.Errorf("unknown command %q", args[0])
	}
}

func decodeHex(s string) (variant.Variant, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), `\x`))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return variant.Variant(b), nil
}

func (a *app) inspect(v variant.Variant) (string, error) {
	call := a.coder.NewCall(variant.Output)
	in, err := call.Inspect(v)
	if err != nil {
		return "", err
	}

	typeName, err := a.cat.TypeName(in.Type)
	if err != nil {
		return "", err
	}
	profileName, err := call.ResolveProfileName(in.Profile)
	if err != nil {
		profileName = "?"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "size:    %d\n", len(v))
	fmt.Fprintf(&b, "type:    %s (%d)\n", typeName, in.Type)
	fmt.Fprintf(&b, "profile: %s (%d)\n", profileName, in.Profile)
	if in.Null {
		b.WriteString("value:   NULL")
		return b.String(), nil
	}

	s, err := a.cat.Output(in.Value())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "value:   %s", s)
	return b.String(), nil
}

func (a *app) compare(ctx context.Context, x, y string) (string, error) {
	call := a.coder.NewCall(variant.Input)
	vx, err := call.Parse(x, a.profile)
	if err != nil {
		return "", err
	}
	vy, err := call.Parse(y, a.profile)
	if err != nil {
		return "", err
	}

	r, err := call.Compare(ctx, vx, vy)
	if err != nil {
		return "", err
	}
	d, err := call.CompareDistinct(ctx, vx, vy)
	if err != nil {
		return "", err
	}

	cmp := "NULL"
	if r.Valid {
		cmp = strconv.FormatInt(r.Int64, 10)
	}
	return fmt.Sprintf("compare: %s\ndistinct: %d\nimage-equal: %t", cmp, d, call.ImageEquals(vx, vy)), nil
}

func (a *app) cast(ctx context.Context, x, typeName string) (string, error) {
	target, err := a.cat.LookupType(typeName)
	if err != nil {
		return "", err
	}

	call := a.coder.NewCall(variant.Input)
	v, err := call.Parse(x, a.profile)
	if err != nil {
		return "", err
	}
	val, err := call.CastOut(ctx, v, target)
	if err != nil {
		return "", err
	}
	if val.Null {
		return "NULL", nil
	}
	return a.cat.Output(val)
}
