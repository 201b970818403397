// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package pgprofiles reads variant profiles from a PostgreSQL table:
//
//	CREATE TABLE variant_profiles (
//	    id            integer NOT NULL,
//	    name          text    NOT NULL,
//	    enabled       boolean NOT NULL DEFAULT true,
//	    allowed_types oid[]
//	);
//
// The table has no unique constraints. Duplicate rows are returned as they
// are and the variant core reports them as registry corruption.
package pgprofiles

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	variantinterfaces "go.e43.eu/variant/interfaces"
)

type (
	Profile   = variantinterfaces.Profile
	ProfileID = variantinterfaces.ProfileID
	TypeID    = variantinterfaces.TypeID
)

// DefaultTable is the table read when none is configured
const DefaultTable = "variant_profiles"

// DefaultTimeout bounds each lookup
const DefaultTimeout = 5 * time.Second

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Registry implements ProfileRegistry over a database handle
type Registry struct {
	db      *sql.DB
	timeout time.Duration

	byID   string
	byName string
}

var _ variantinterfaces.ProfileRegistry = &Registry{}

// New returns a registry reading table through db. An empty table selects
// DefaultTable.
func New(db *sql.DB, table string) (*Registry, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("pgprofiles: invalid table name %q", table)
	}

	cols := "SELECT id, name, enabled, allowed_types FROM " + table
	return &Registry{
		db:      db,
		timeout: DefaultTimeout,
		byID:    cols + " WHERE id = $1",
		byName:  cols + " WHERE name = $1",
	}, nil
}

// Open connects to the database at dsn using the postgres driver
func Open(dsn, table string) (*Registry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgprofiles: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgprofiles: ping: %w", err)
	}
	return New(db, table)
}

// SetTimeout changes the per-lookup timeout
func (r *Registry) SetTimeout(d time.Duration) {
	r.timeout = d
}

func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) ProfilesByID(id ProfileID) ([]Profile, error) {
	return r.query(r.byID, int32(id))
}

func (r *Registry) ProfilesByName(name string) ([]Profile, error) {
	return r.query(r.byName, name)
}

func (r *Registry) query(q string, arg interface{}) ([]Profile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("pgprofiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgprofiles: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(s scanner) (Profile, error) {
	var (
		id      int32
		name    string
		enabled bool
		allowed pq.Int64Array
	)
	if err := s.Scan(&id, &name, &enabled, &allowed); err != nil {
		return Profile{}, fmt.Errorf("pgprofiles: scan: %w", err)
	}
	return makeProfile(id, name, enabled, allowed)
}

func makeProfile(id int32, name string, enabled bool, allowed []int64) (Profile, error) {
	p := Profile{ID: ProfileID(id), Name: name, Enabled: enabled}
	for _, t := range allowed {
		if t <= 0 || t > int64(^uint32(0)) {
			return Profile{}, fmt.Errorf("pgprofiles: profile %d allows invalid type %d", id, t)
		}
		p.AllowedTypes = append(p.AllowedTypes, TypeID(t))
	}
	return p, nil
}
