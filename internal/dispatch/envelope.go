package dispatch

import (
	"context"
	"net/http"

	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
)

// Success is the envelope of a completed operation. Data may be null (findOne with no match).
type Success struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Serve decodes raw, dispatches it and returns the status and envelope to send back.
// It never returns a bare error: every outcome is an envelope.
func (d *Dispatcher) Serve(ctx context.Context, raw []byte) (int, interface{}) {
	req, err := DecodeRequest(raw)
	if err != nil {
		return FailureOf(err)
	}
	out, err := d.Dispatch(ctx, req)
	if err != nil {
		return FailureOf(err)
	}
	return http.StatusOK, Success{Success: true, Data: out}
}

// FailureOf maps err to its status and failure envelope.
func FailureOf(err error) (int, Failure) {
	msg := err.Error()
	if ae, ok := apperrors.As(err); ok {
		msg = ae.Message
	}
	return apperrors.StatusOf(err), Failure{Error: msg}
}
