package main

import (
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/config"
	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

type applyOptions struct {
	global *globalOptions

	file          string
	repo          string
	dest          string
	branch        string
	replaceDest   bool
	acceptHostKey bool
	update        bool
	clone         bool
	recursive     bool
	check         bool

	settings settingsFlags
}

func newApplyCmd(global *globalOptions) *cobra.Command {
	o := &applyOptions{global: global}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile a destination onto a repository branch",
		Long: `Reconcile a destination directory onto a branch of a remote repository.

The destination is cloned, updated, replaced or left alone depending on what
it currently holds and what the flags permit. The result is printed as JSON.
With -f, every entry of a state file is reconciled in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "State file (.yaml, .yml or .cue) listing repositories")
	f.StringVar(&o.repo, "repo", "", "Repository address")
	f.StringVar(&o.repo, "name", "", "Alias of --repo")
	f.StringVar(&o.dest, "dest", "", "Absolute destination path")
	f.StringVar(&o.branch, "branch", reconcile.DefaultBranch, "Branch to check out")
	f.BoolVar(&o.replaceDest, "replace-dest", false, "Replace a destination that is not a checkout")
	f.BoolVar(&o.acceptHostKey, "accept-hostkey", false, "Record the remote SSH host key before connecting")
	f.BoolVar(&o.update, "update", false, "Pull into an existing checkout")
	f.BoolVar(&o.clone, "clone", false, "Clone when the destination is absent")
	f.BoolVar(&o.recursive, "recursive", true, "Clone and update submodules recursively")
	f.BoolVar(&o.check, "check", false, "Report what would change without changing anything")
	addSettingsFlags(f, &o.settings)

	return cmd
}

// addSettingsFlags registers the flags that override config.Settings.
func addSettingsFlags(f *pflag.FlagSet, s *settingsFlags) {
	f.StringVar(&s.engine, "engine", config.EngineGoGit, "VCS engine: gogit or cli")
	f.StringVar(&s.knownHosts, "known-hosts", "", "known_hosts file (default $HOME/.ssh/known_hosts)")
	f.StringVar(&s.sshKey, "ssh-key", "", "SSH private key file used instead of ssh-agent")
	f.BoolVar(&s.keyscan, "keyscan", false, "Scan host keys with ssh-keyscan")
	f.StringVar(&s.timeout, "timeout", "0s", "Bound on each reconciliation, 0 for none")
	f.StringVar(&s.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file")
}

// fileResult is written per entry of a state file.
type fileResult struct {
	Dest   string            `json:"dest"`
	Result *reconcile.Result `json:"result"`
}

func runApply(cmd *cobra.Command, o *applyOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := o.global.logger

	settings, err := loadSettings(ctx, cmd.Flags().Changed, o.settings, envconfig.OsLookuper())
	if err != nil {
		return reportFailure(out, err, o.dest)
	}

	states, err := o.desiredStates(cmd)
	if err != nil {
		return reportFailure(out, err, o.dest)
	}

	rt := newRuntime(settings, logger)
	defer rt.flushMetrics(logger)
	r := rt.reconciler(logger, o.check)

	if o.file == "" {
		result, err := r.Reconcile(ctx, states[0])
		if err != nil {
			return reportFailure(out, err, states[0].Destination)
		}
		return writeJSON(out, result)
	}

	failed := false
	for _, desired := range states {
		result, err := r.Reconcile(ctx, desired)
		if err != nil {
			failed = true
			if werr := writeJSON(out, newFailure(err, desired.Destination)); werr != nil {
				return werr
			}
			continue
		}
		if err := writeJSON(out, fileResult{Dest: desired.Destination, Result: result}); err != nil {
			return err
		}
	}
	if failed {
		return errReported
	}
	return nil
}

// desiredStates builds the states to reconcile. Flags the user set win over
// the environment, which wins over the state file.
func (o *applyOptions) desiredStates(cmd *cobra.Command) ([]reconcile.DesiredState, error) {
	flags := cmd.Flags()

	if o.file != "" {
		if flags.Changed("repo") || flags.Changed("name") || flags.Changed("dest") {
			return nil, reposyncerrors.New(reposyncerrors.CodeInvalidInput, "--repo, --name and --dest cannot be combined with --file")
		}

		path, err := fs.GetAbs(o.file)
		if err != nil {
			return nil, reposyncerrors.Wrap(err, reposyncerrors.CodeInvalidInput, "resolving state file path")
		}

		state, err := config.Load(cmd.Context(), path)
		if err != nil {
			return nil, err
		}
		for i := range state.Repositories {
			o.applyFlags(flags, &state.Repositories[i])
		}
		return state.Repositories, nil
	}

	s := reconcile.NewDesiredState(o.repo, o.dest)
	if err := config.ApplyEnv(cmd.Context(), &s, envconfig.OsLookuper()); err != nil {
		return nil, err
	}
	o.applyFlags(flags, &s)
	return []reconcile.DesiredState{s}, nil
}

func (o *applyOptions) applyFlags(flags *pflag.FlagSet, s *reconcile.DesiredState) {
	if flags.Changed("branch") {
		s.Branch = o.branch
	}
	if flags.Changed("replace-dest") {
		s.ReplaceDestination = o.replaceDest
	}
	if flags.Changed("accept-hostkey") {
		s.AcceptHostKey = o.acceptHostKey
	}
	if flags.Changed("update") {
		s.AllowUpdate = o.update
	}
	if flags.Changed("clone") {
		s.AllowClone = o.clone
	}
	if flags.Changed("recursive") {
		s.RecursiveSubmodules = o.recursive
	}
}
