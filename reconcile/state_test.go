package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

func TestNewDesiredStateDefaults(t *testing.T) {
	s := NewDesiredState(testRepo, testDest)

	assert.Equal(t, DesiredState{
		Repository:          testRepo,
		Destination:         testDest,
		Branch:              "master",
		RecursiveSubmodules: true,
	}, s)
}

func TestDesiredStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   DesiredState
		wantErr bool
	}{
		{"valid", NewDesiredState(testRepo, testDest), false},
		{"missing repository", NewDesiredState("", testDest), true},
		{"missing destination", NewDesiredState(testRepo, ""), true},
		{"relative destination", NewDesiredState(testRepo, "srv/app"), true},
		{"empty branch", NewDesiredState(testRepo, testDest, WithBranch("")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, reposyncerrors.CodeInvalidInput, reposyncerrors.GetCode(err))
		})
	}
}

func TestDesiredStateDecoding(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		s := NewDesiredState("", "")
		require.NoError(t, yaml.Unmarshal([]byte(`
repo: git@git.example.com:org/app.git
dest: /srv/app
branch: main
update: true
recursive: false
`), &s))

		assert.Equal(t, "main", s.Branch)
		assert.True(t, s.AllowUpdate)
		assert.False(t, s.AllowClone)
		assert.False(t, s.RecursiveSubmodules)
	})

	t.Run("json keeps defaults for omitted keys", func(t *testing.T) {
		s := NewDesiredState("", "")
		require.NoError(t, json.Unmarshal([]byte(`{"repo":"r","dest":"/d","clone":true}`), &s))

		assert.Equal(t, "master", s.Branch)
		assert.True(t, s.AllowClone)
		assert.True(t, s.RecursiveSubmodules)
	})
}
