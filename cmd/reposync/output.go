package main

import (
	"encoding/json"
	"errors"
	"io"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

// errReported means the failure was already written to stdout as JSON.
var errReported = errors.New("failure reported")

// failure is the JSON document written for a failed invocation.
type failure struct {
	Failed bool   `json:"failed"`
	Msg    string `json:"msg"`
	Kind   string `json:"kind,omitempty"`
	Code   string `json:"code"`
	Dest   string `json:"dest,omitempty"`
}

func newFailure(err error, dest string) failure {
	return failure{
		Failed: true,
		Msg:    err.Error(),
		Kind:   string(reconcile.KindOf(err)),
		Code:   string(reposyncerrors.GetCode(err)),
		Dest:   dest,
	}
}

// writeJSON writes v as a single line.
func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// reportFailure writes err as a failure document and returns errReported.
func reportFailure(w io.Writer, err error, dest string) error {
	if werr := writeJSON(w, newFailure(err, dest)); werr != nil {
		return errors.Join(err, werr)
	}
	return errReported
}
