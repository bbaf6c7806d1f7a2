package dispatch

import (
	"context"
	"encoding/json"

	mqmodels "sw/ocpp/central/internal/models/mq"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/juju/errors"
)

// commandError describes a dispatch failure for the node that asked for it.
func commandError(err error) *mqmodels.MqCommandError {
	if err == nil {
		return nil
	}
	var callErr *ocpp.CallError
	var ocppErr *ocpp.Error
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return &mqmodels.MqCommandError{Kind: mqmodels.CommandError_NotConnected, Description: err.Error()}
	case errors.As(err, &callErr):
		return &mqmodels.MqCommandError{
			Kind:        mqmodels.CommandError_CallError,
			Code:        string(callErr.ErrorCode),
			Description: callErr.ErrorDescription,
			Details:     string(callErr.ErrorDetails),
		}
	case errors.As(err, &ocppErr):
		return &mqmodels.MqCommandError{
			Kind:        mqmodels.CommandError_Invalid,
			Code:        string(ocppErr.Code),
			Description: ocppErr.Reason,
			Details:     ocppErr.Details,
		}
	case errors.Is(err, errors.Timeout), errors.Is(err, context.DeadlineExceeded):
		return &mqmodels.MqCommandError{Kind: mqmodels.CommandError_Timeout, Description: err.Error()}
	case errors.Is(err, session.ErrSessionClosed):
		return &mqmodels.MqCommandError{Kind: mqmodels.CommandError_Closed, Description: err.Error()}
	}
	return &mqmodels.MqCommandError{Kind: mqmodels.CommandError_Failed, Description: err.Error()}
}

// asError rebuilds the error a command failed with on the remote node.
func asError(e *mqmodels.MqCommandError, chargePointId string) error {
	switch e.Kind {
	case mqmodels.CommandError_NotConnected:
		return errors.Annotatef(session.ErrNotConnected, "%q", chargePointId)
	case mqmodels.CommandError_CallError:
		details := json.RawMessage(e.Details)
		if !json.Valid(details) {
			details = json.RawMessage(`{}`)
		}
		return &ocpp.CallError{
			UniqueId:         ocpp.UnknownUniqueId,
			ErrorCode:        ocpp.ParseErrorCode(e.Code),
			ErrorDescription: e.Description,
			ErrorDetails:     details,
		}
	case mqmodels.CommandError_Invalid:
		return &ocpp.Error{Code: ocpp.ParseErrorCode(e.Code), UniqueId: ocpp.UnknownUniqueId, Reason: e.Description, Details: e.Details}
	case mqmodels.CommandError_Timeout:
		return errors.Timeoutf("command for %s", chargePointId)
	case mqmodels.CommandError_Closed:
		return session.ErrSessionClosed
	}
	return errors.New(e.Description)
}
