package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/config"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git/cli"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/trust"
)

// runtime holds the collaborators of one command invocation.
type runtime struct {
	settings   *config.Settings
	trustStore *trust.KnownHosts
	vcs        reconcile.VCS
	fs         *billy.FS
	observer   *metrics.Observer
}

// settingsFlags are the flags that override config.Settings.
type settingsFlags struct {
	engine          string
	knownHosts      string
	sshKey          string
	keyscan         bool
	timeout         string
	metricsTextfile string
}

// loadSettings reads settings from the environment, then applies the flags
// the user set explicitly.
func loadSettings(ctx context.Context, changed func(string) bool, f settingsFlags, l envconfig.Lookuper) (*config.Settings, error) {
	s, err := config.LoadSettings(ctx, l)
	if err != nil {
		return nil, err
	}

	if changed("engine") {
		s.Engine = f.engine
	}
	if changed("known-hosts") {
		s.KnownHosts = f.knownHosts
	}
	if changed("ssh-key") {
		s.SSHKey = f.sshKey
	}
	if changed("keyscan") {
		s.Keyscan = f.keyscan
	}
	if changed("timeout") {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", f.timeout, err)
		}
		s.Timeout = d
	}
	if changed("metrics-textfile") {
		s.MetricsTextfile = f.metricsTextfile
	}

	if s.Engine != config.EngineGoGit && s.Engine != config.EngineCLI {
		return nil, fmt.Errorf("invalid --engine %q, want %s or %s", s.Engine, config.EngineGoGit, config.EngineCLI)
	}
	return s, nil
}

// newRuntime builds the collaborators selected by settings.
func newRuntime(settings *config.Settings, logger *slog.Logger) *runtime {
	storeOpts := []trust.Option{
		trust.WithPath(settings.KnownHosts),
		trust.WithLogger(logger),
	}
	if settings.Keyscan {
		storeOpts = append(storeOpts, trust.WithKeyscan())
	}
	store := trust.NewKnownHosts(storeOpts...)

	fsys := billy.NewBaseOSFS()

	rt := &runtime{
		settings:   settings,
		trustStore: store,
		fs:         fsys,
	}

	switch settings.Engine {
	case config.EngineCLI:
		rt.vcs = cli.NewGateway(
			cli.WithExecutor(gitExecutor(settings)),
			cli.WithFilesystem(fsys),
			cli.WithLogger(logger),
		)
	default:
		var auth git.AuthProvider
		if settings.SSHKey != "" {
			auth = git.SSHKeyAuth(settings.SSHKey, settings.SSHKeyPassphrase, store)
		} else {
			auth = git.SSHAgentAuth(store)
		}
		rt.vcs = git.NewGateway(
			git.WithAuth(auth),
			git.WithFilesystem(fsys),
			git.WithLogger(logger),
			git.WithShallowDepth(settings.ShallowDepth),
		)
	}

	if settings.MetricsTextfile != "" {
		rt.observer = metrics.NewObserver()
	}
	return rt
}

// gitExecutor runs the git binary with ssh pointed at the configured
// known_hosts file and key.
func gitExecutor(settings *config.Settings) *executor.WrappedExecutor {
	opts := []executor.Option{executor.WithEnvVar("GIT_TERMINAL_PROMPT", "0")}

	var sshArgs []string
	if settings.KnownHosts != "" {
		sshArgs = append(sshArgs, "-o", "UserKnownHostsFile="+shellQuote(settings.KnownHosts), "-o", "StrictHostKeyChecking=yes")
	}
	if settings.SSHKey != "" {
		sshArgs = append(sshArgs, "-i", shellQuote(settings.SSHKey), "-o", "IdentitiesOnly=yes")
	}
	if len(sshArgs) > 0 {
		opts = append(opts, executor.WithEnvVar("GIT_SSH_COMMAND", "ssh "+strings.Join(sshArgs, " ")))
	}

	return executor.NewWrappedExecutor("git", opts...)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// reconciler returns a Reconciler over the runtime's collaborators.
func (rt *runtime) reconciler(logger *slog.Logger, checkMode bool) *reconcile.Reconciler {
	opts := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithTimeout(rt.settings.Timeout),
	}
	if checkMode {
		opts = append(opts, reconcile.WithCheckMode())
	}
	if rt.observer != nil {
		opts = append(opts, reconcile.WithObserver(rt.observer))
	}
	return reconcile.New(rt.vcs, rt.trustStore, rt.fs, opts...)
}

// flushMetrics writes the metrics textfile when one is configured.
func (rt *runtime) flushMetrics(logger *slog.Logger) {
	if rt.observer == nil {
		return
	}
	if err := rt.observer.WriteToTextfile(rt.settings.MetricsTextfile); err != nil {
		logger.Warn("failed to write metrics", "path", rt.settings.MetricsTextfile, "error", err)
	}
}
