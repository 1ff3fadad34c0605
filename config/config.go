// Package config loads reposync desired states and runtime settings.
//
// A state file lists the repositories to reconcile, in YAML or CUE:
//
//	repositories:
//	  - repo: git@github.com:org/app.git
//	    dest: /srv/app
//	    branch: main
//	    clone: true
//	    update: true
//
// Every entry is checked against an embedded CUE schema, then defaults are
// applied (branch master, recursive submodules on, every permission off),
// and finally REPOSYNC_* environment overrides are applied to every entry.
//
// # Basic Usage
//
//	state, err := config.Load(ctx, "/etc/reposync/state.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, desired := range state.Repositories {
//	    result, err := reconciler.Reconcile(ctx, desired)
//	    ...
//	}
//
// Runtime settings come from the environment only:
//
//	settings, err := config.LoadSettings(ctx, envconfig.OsLookuper())
package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	rfs "github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// EnvPrefix prefixes every environment variable reposync reads.
const EnvPrefix = "REPOSYNC_"

// State is the content of a state file.
type State struct {
	Repositories []reconcile.DesiredState
}

// LoadOptions configures the behavior of configuration loading operations.
type LoadOptions struct {
	// Filesystem reads the state file. Defaults to the host filesystem.
	Filesystem rfs.Filesystem

	// Lookuper resolves environment overrides. Defaults to the process
	// environment.
	Lookuper envconfig.Lookuper

	// SkipValidation disables DesiredState.Validate on each entry.
	SkipValidation bool
}

// LoadOption adjusts LoadOptions.
type LoadOption func(*LoadOptions)

// WithFilesystem reads state files from fsys.
func WithFilesystem(fsys rfs.Filesystem) LoadOption {
	return func(o *LoadOptions) {
		o.Filesystem = fsys
	}
}

// WithLookuper resolves environment overrides through l.
func WithLookuper(l envconfig.Lookuper) LoadOption {
	return func(o *LoadOptions) {
		o.Lookuper = l
	}
}

// WithoutValidation skips DesiredState.Validate.
func WithoutValidation() LoadOption {
	return func(o *LoadOptions) {
		o.SkipValidation = true
	}
}

// Load reads the state file at path. The format is chosen by extension:
// .yaml and .yml are YAML, .cue is CUE.
func Load(ctx context.Context, path string, opts ...LoadOption) (*State, error) {
	options := LoadOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Filesystem == nil {
		options.Filesystem = billy.NewBaseOSFS()
	}
	if options.Lookuper == nil {
		options.Lookuper = envconfig.OsLookuper()
	}

	return loadState(ctx, path, options)
}
