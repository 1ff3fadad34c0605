package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/fs/billy"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

func loadFrom(t *testing.T, path, content string, env map[string]string) (*State, error) {
	t.Helper()

	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile(path, []byte(content), 0o644))

	return Load(context.Background(), path,
		WithFilesystem(fsys),
		WithLookuper(envconfig.MapLookuper(env)),
	)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		env     map[string]string
		want    []reconcile.DesiredState
	}{
		{
			name: "yaml with defaults",
			path: "/etc/reposync/state.yaml",
			content: `
repositories:
  - repo: git@github.com:org/app.git
    dest: /srv/app
    clone: true
`,
			want: []reconcile.DesiredState{
				reconcile.NewDesiredState("git@github.com:org/app.git", "/srv/app", reconcile.WithClone(true)),
			},
		},
		{
			name: "yaml with every key",
			path: "/etc/reposync/state.yml",
			content: `
repositories:
  - repo: git@github.com:org/app.git
    dest: /srv/app
    branch: main
    replace_dest: true
    accept_hostkey: true
    update: true
    clone: true
    recursive: false
  - name: https://github.com/org/docs.git
    dest: /srv/docs
`,
			want: []reconcile.DesiredState{
				{
					Repository:         "git@github.com:org/app.git",
					Destination:        "/srv/app",
					Branch:             "main",
					ReplaceDestination: true,
					AcceptHostKey:      true,
					AllowUpdate:        true,
					AllowClone:         true,
				},
				reconcile.NewDesiredState("https://github.com/org/docs.git", "/srv/docs"),
			},
		},
		{
			name: "cue",
			path: "/etc/reposync/state.cue",
			content: `
_defaults: {
	branch: "main"
	update: true
}

repositories: [
	_defaults & {repo: "git@github.com:org/app.git", dest: "/srv/app"},
	_defaults & {repo: "git@github.com:org/api.git", dest: "/srv/api", clone: true},
]
`,
			want: []reconcile.DesiredState{
				reconcile.NewDesiredState("git@github.com:org/app.git", "/srv/app",
					reconcile.WithBranch("main"), reconcile.WithUpdate(true)),
				reconcile.NewDesiredState("git@github.com:org/api.git", "/srv/api",
					reconcile.WithBranch("main"), reconcile.WithUpdate(true), reconcile.WithClone(true)),
			},
		},
		{
			name: "environment overrides every entry",
			path: "/etc/reposync/state.yaml",
			content: `
repositories:
  - repo: git@github.com:org/app.git
    dest: /srv/app
    branch: main
  - repo: git@github.com:org/api.git
    dest: /srv/api
    update: true
`,
			env: map[string]string{
				"REPOSYNC_BRANCH":    "release",
				"REPOSYNC_UPDATE":    "false",
				"REPOSYNC_RECURSIVE": "false",
			},
			want: []reconcile.DesiredState{
				reconcile.NewDesiredState("git@github.com:org/app.git", "/srv/app",
					reconcile.WithBranch("release"), reconcile.WithRecursive(false)),
				reconcile.NewDesiredState("git@github.com:org/api.git", "/srv/api",
					reconcile.WithBranch("release"), reconcile.WithRecursive(false)),
			},
		},
		{
			name:    "empty file",
			path:    "/etc/reposync/state.yaml",
			content: "",
			want:    []reconcile.DesiredState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := loadFrom(t, tt.path, tt.content, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.Repositories)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
	}{
		{
			name:    "unknown key",
			path:    "/state.yaml",
			content: "repositories:\n  - repo: r\n    dest: /srv/app\n    destination: /srv/other\n",
		},
		{
			name:    "relative destination",
			path:    "/state.yaml",
			content: "repositories:\n  - repo: r\n    dest: srv/app\n",
		},
		{
			name:    "missing destination",
			path:    "/state.yaml",
			content: "repositories:\n  - repo: r\n",
		},
		{
			name:    "missing repository",
			path:    "/state.yaml",
			content: "repositories:\n  - dest: /srv/app\n",
		},
		{
			name:    "wrong type",
			path:    "/state.yaml",
			content: "repositories:\n  - repo: r\n    dest: /srv/app\n    clone: yes please\n",
		},
		{
			name:    "repo and name disagree",
			path:    "/state.yaml",
			content: "repositories:\n  - repo: r\n    name: s\n    dest: /srv/app\n",
		},
		{
			name:    "malformed yaml",
			path:    "/state.yaml",
			content: "repositories: [\n",
		},
		{
			name:    "malformed cue",
			path:    "/state.cue",
			content: "repositories: [",
		},
		{
			name:    "unsupported extension",
			path:    "/state.toml",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFrom(t, tt.path, tt.content, nil)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), "/nope.yaml",
			WithFilesystem(billy.NewInMemoryFS()),
			WithLookuper(envconfig.MapLookuper(nil)))
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := loadFrom(t, "/state.yaml", "repositories: []\n", map[string]string{"REPOSYNC_CLONE": "maybe"})
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})
}

func TestApplyEnv(t *testing.T) {
	s := reconcile.NewDesiredState("r", "/srv/app", reconcile.WithClone(true))

	require.NoError(t, ApplyEnv(context.Background(), &s, envconfig.MapLookuper(map[string]string{
		"REPOSYNC_ACCEPT_HOSTKEY": "true",
		"REPOSYNC_REPLACE_DEST":   "true",
		"UNRELATED":               "x",
	})))

	assert.True(t, s.AcceptHostKey)
	assert.True(t, s.ReplaceDestination)
	assert.True(t, s.AllowClone)
	assert.Equal(t, "master", s.Branch)
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := LoadSettings(context.Background(), envconfig.MapLookuper(nil))
		require.NoError(t, err)
		assert.Equal(t, &Settings{Engine: EngineGoGit}, s)
	})

	t.Run("from environment", func(t *testing.T) {
		s, err := LoadSettings(context.Background(), envconfig.MapLookuper(map[string]string{
			"REPOSYNC_ENGINE":           "cli",
			"REPOSYNC_KNOWN_HOSTS":      "/etc/ssh/ssh_known_hosts",
			"REPOSYNC_KEYSCAN":          "true",
			"REPOSYNC_TIMEOUT":          "90s",
			"REPOSYNC_SHALLOW_DEPTH":    "1",
			"REPOSYNC_METRICS_TEXTFILE": "/var/lib/node_exporter/reposync.prom",
		}))
		require.NoError(t, err)
		assert.Equal(t, EngineCLI, s.Engine)
		assert.Equal(t, "/etc/ssh/ssh_known_hosts", s.KnownHosts)
		assert.True(t, s.Keyscan)
		assert.Equal(t, 90*time.Second, s.Timeout)
		assert.Equal(t, 1, s.ShallowDepth)
		assert.Equal(t, "/var/lib/node_exporter/reposync.prom", s.MetricsTextfile)
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := LoadSettings(context.Background(), envconfig.MapLookuper(map[string]string{
			"REPOSYNC_ENGINE": "svn",
		}))
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})
}
