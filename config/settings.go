package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// VCS engines.
const (
	EngineGoGit = "gogit"
	EngineCLI   = "cli"
)

// Settings configure how reposync runs, independent of what it reconciles.
type Settings struct {
	// Engine selects the VCS implementation: gogit or cli.
	Engine string `env:"ENGINE, default=gogit"`

	// KnownHosts is the known_hosts file. Empty means $HOME/.ssh/known_hosts.
	KnownHosts string `env:"KNOWN_HOSTS"`

	// SSHKey is a private key file used instead of ssh-agent by the gogit
	// engine.
	SSHKey string `env:"SSH_KEY"`

	// SSHKeyPassphrase decrypts SSHKey.
	SSHKeyPassphrase string `env:"SSH_KEY_PASSPHRASE"`

	// Keyscan scans host keys with ssh-keyscan instead of in-process.
	Keyscan bool `env:"KEYSCAN, default=false"`

	// Timeout bounds each reconciliation. Zero disables the bound.
	Timeout time.Duration `env:"TIMEOUT, default=0s"`

	// ShallowDepth limits clone history for the gogit engine.
	ShallowDepth int `env:"SHALLOW_DEPTH, default=0"`

	// MetricsTextfile receives Prometheus metrics after the run.
	MetricsTextfile string `env:"METRICS_TEXTFILE"`
}

// LoadSettings reads REPOSYNC_* variables from l.
func LoadSettings(ctx context.Context, l envconfig.Lookuper) (*Settings, error) {
	var s Settings
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &s,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to read settings from environment")
	}

	if err := validateEngine(s.Engine); err != nil {
		return nil, err
	}
	return &s, nil
}

// overrides are REPOSYNC_* variables that replace state file values. Unset
// variables leave the file value alone.
type overrides struct {
	Branch        *string `env:"BRANCH, noinit"`
	ReplaceDest   *bool   `env:"REPLACE_DEST, noinit"`
	AcceptHostKey *bool   `env:"ACCEPT_HOSTKEY, noinit"`
	Update        *bool   `env:"UPDATE, noinit"`
	Clone         *bool   `env:"CLONE, noinit"`
	Recursive     *bool   `env:"RECURSIVE, noinit"`
}

func loadOverrides(ctx context.Context, l envconfig.Lookuper) (*overrides, error) {
	var o overrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &o,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to read overrides from environment")
	}
	return &o, nil
}

// ApplyEnv applies REPOSYNC_* overrides from l to s.
func ApplyEnv(ctx context.Context, s *reconcile.DesiredState, l envconfig.Lookuper) error {
	o, err := loadOverrides(ctx, l)
	if err != nil {
		return err
	}
	o.apply(s)
	return nil
}

func (o *overrides) apply(s *reconcile.DesiredState) {
	if o.Branch != nil {
		s.Branch = *o.Branch
	}
	if o.ReplaceDest != nil {
		s.ReplaceDestination = *o.ReplaceDest
	}
	if o.AcceptHostKey != nil {
		s.AcceptHostKey = *o.AcceptHostKey
	}
	if o.Update != nil {
		s.AllowUpdate = *o.Update
	}
	if o.Clone != nil {
		s.AllowClone = *o.Clone
	}
	if o.Recursive != nil {
		s.RecursiveSubmodules = *o.Recursive
	}
}
