package main

import (
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

func newInspectCmd(global *globalOptions) *cobra.Command {
	var (
		dest     string
		settings settingsFlags
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report what a destination currently holds without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if dest == "" {
				return reportFailure(out, reposyncerrors.New(reposyncerrors.CodeInvalidInput, "--dest is required"), "")
			}

			s, err := loadSettings(cmd.Context(), cmd.Flags().Changed, settings, envconfig.OsLookuper())
			if err != nil {
				return reportFailure(out, err, dest)
			}

			rt := newRuntime(s, global.logger)
			current, err := rt.reconciler(global.logger, true).Inspect(cmd.Context(), dest)
			if err != nil {
				return reportFailure(out, err, dest)
			}
			return writeJSON(out, current)
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Absolute destination path")
	addSettingsFlags(cmd.Flags(), &settings)

	return cmd
}
