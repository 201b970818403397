// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Command variantctl builds, prints and compares variants against the
// in-memory reference catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"go.e43.eu/variant"
	"go.e43.eu/variant/catalog"
	"go.e43.eu/variant/pgprofiles"
	"go.e43.eu/variant/profiles"
)

const usage = `Usage: variantctl [flags] <command> [args]

Commands:
  parse TEXT          encode "(type,value)" and print the variant as hex
  format HEX          print the text form of a hex variant
  inspect HEX         print the header and value of a hex variant
  compare TEXT TEXT   order two variants given in text form
  cast TEXT TYPE      convert a variant to a value of TYPE
  profile NAME|ID     resolve a profile name to its id or back

With no command and a terminal on stdin, an interactive prompt is started.

Flags:
`

func main() {
	var (
		profileFile = flag.String("profiles", "", "YAML file of profile definitions")
		dsn         = flag.String("dsn", "", "PostgreSQL connection string to read profiles from")
		table       = flag.String("table", pgprofiles.DefaultTable, "Profile table, with -dsn")
		profile     = flag.String("profile", "0", "Profile name or id used by parse")
		compress    = flag.String("compress", "none", "Compression of long text values (none, s2, brotli)")
		threshold   = flag.Int("threshold", 256, "Compress text values longer than this many bytes")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive prompt")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	method, err := catalog.ParseCompression(*compress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := config{
		profileFile: *profileFile,
		dsn:         *dsn,
		table:       *table,
		profile:     *profile,
		catalog:     catalog.Options{Compression: method, CompressThreshold: *threshold},
	}

	a, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close() //nolint:errcheck

	args := flag.Args()
	if *interactive || (len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd()))) {
		if err := runInteractive(a); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	out, err := a.run(context.Background(), args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

type config struct {
	profileFile string
	dsn         string
	table       string
	profile     string
	catalog     catalog.Options
}

func newApp(cfg config, log *zap.Logger) (*app, error) {
	cat := catalog.New(cfg.catalog)
	profiles.SetLogger(log.Named("profiles"))

	a := &app{cat: cat, log: log}

	var host variant.Host
	host.Types = cat
	host.Executor = cat.Executor()

	switch {
	case cfg.dsn != "":
		pg, err := pgprofiles.Open(cfg.dsn, cfg.table)
		if err != nil {
			return nil, err
		}
		host.Profiles = pg
		a.closer = pg.Close

	default:
		reg := profiles.NewRegistry()
		if cfg.profileFile != "" {
			if err := reg.LoadFile(cfg.profileFile, cat); err != nil {
				return nil, err
			}
		}
		if rows, _ := reg.ProfilesByID(0); len(rows) == 0 {
			if err := reg.Define(variant.Profile{ID: 0, Name: "default", Enabled: true}); err != nil {
				return nil, err
			}
		}
		host.Profiles = reg
	}

	a.coder = variant.NewCoder(host, variant.WithLogger(log.Named("variant")))

	id, err := a.resolveProfile(cfg.profile)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}
	a.profile = id
	return a, nil
}
