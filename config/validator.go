package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// stateSchema constrains state files. Definitions are closed, so unknown
// keys are rejected.
const stateSchema = `
#Repository: {
	repo?:           string & !=""
	name?:           string & !=""
	dest:            string & =~"^/"
	branch?:         string & !=""
	replace_dest?:   bool
	accept_hostkey?: bool
	update?:         bool
	clone?:          bool
	recursive?:      bool
}

repositories: [...#Repository]
`

// checkSchema unifies value with the state schema and returns it as JSON.
func checkSchema(cueCtx *cue.Context, value cue.Value) ([]byte, error) {
	schema := cueCtx.CompileString(stateSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s", cueerrors.Details(err, nil))
	}

	return unified.MarshalJSON()
}

// validateState runs DesiredState.Validate on every entry and reports all
// failures together.
func validateState(state *State) error {
	var problems []string
	for i, s := range state.Repositories {
		if err := s.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("repositories[%d]: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// validateEngine rejects unknown VCS engines.
func validateEngine(engine string) error {
	switch engine {
	case EngineGoGit, EngineCLI:
		return nil
	default:
		return errors.Newf(errors.CodeInvalidConfig, "unknown engine %q, want %q or %q", engine, EngineGoGit, EngineCLI)
	}
}
