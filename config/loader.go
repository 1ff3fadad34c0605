package config

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// entry is one element of the repositories list. name is accepted as an
// alias of repo.
type entry struct {
	Name string `json:"name"`
	reconcile.DesiredState
}

// loadState reads, checks and decodes a state file, then applies
// environment overrides to every entry.
func loadState(ctx context.Context, path string, opts LoadOptions) (*State, error) {
	data, err := opts.Filesystem.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeNotFound, "failed to read state file",
			map[string]interface{}{"path": path})
	}

	cueCtx := cuecontext.New()
	value, err := parse(cueCtx, path, data)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse state file",
			map[string]interface{}{"path": path})
	}

	raw, err := checkSchema(cueCtx, value)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "state file does not match schema",
			map[string]interface{}{"path": path})
	}

	state, err := decodeEntries(raw)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to decode state file",
			map[string]interface{}{"path": path})
	}

	overrides, err := loadOverrides(ctx, opts.Lookuper)
	if err != nil {
		return nil, err
	}
	for i := range state.Repositories {
		overrides.apply(&state.Repositories[i])
	}

	if !opts.SkipValidation {
		if err := validateState(state); err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "invalid state file",
				map[string]interface{}{"path": path})
		}
	}

	return state, nil
}

// parse turns the file content into a CUE value.
func parse(cueCtx *cue.Context, path string, data []byte) (cue.Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v := cueCtx.CompileBytes(data, cue.Filename(path))
		return v, v.Err()
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, err
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		v := cueCtx.Encode(doc)
		return v, v.Err()
	default:
		return cue.Value{}, errors.Newf(errors.CodeInvalidInput, "unsupported state file extension %q", filepath.Ext(path))
	}
}

// decodeEntries decodes the repositories list, starting every entry from
// the DesiredState defaults so omitted keys keep them.
func decodeEntries(raw []byte) (*State, error) {
	var doc struct {
		Repositories []json.RawMessage `json:"repositories"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	state := &State{Repositories: make([]reconcile.DesiredState, 0, len(doc.Repositories))}
	for i, msg := range doc.Repositories {
		e := entry{DesiredState: reconcile.NewDesiredState("", "")}

		dec := json.NewDecoder(bytes.NewReader(msg))
		if err := dec.Decode(&e); err != nil {
			return nil, err
		}

		switch {
		case e.Repository == "":
			e.Repository = e.Name
		case e.Name != "" && e.Name != e.Repository:
			return nil, errors.Newf(errors.CodeInvalidConfig,
				"repositories[%d]: repo %q and name %q disagree", i, e.Repository, e.Name)
		}

		state.Repositories = append(state.Repositories, e.DesiredState)
	}
	return state, nil
}
