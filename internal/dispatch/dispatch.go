// Package dispatch sends Calls to charge points on behalf of an operator, either
// through the sessions of this process or through the node hosting the charge point.
package dispatch

import (
	"context"
	"encoding/json"

	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/juju/errors"
)

// Dispatcher sends action with payload to a charge point and returns the payload of
// its CallResult. Errors are session.ErrNotConnected, an *ocpp.Error for an invalid
// request, an *ocpp.CallError from the charge point, an errors.Timeout error or
// session.ErrSessionClosed.
type Dispatcher interface {
	Dispatch(ctx context.Context, chargePointId string, action string, payload json.RawMessage) (json.RawMessage, error)
	Connected() []string
}

// Local dispatches to the sessions of this process.
type Local struct {
	registry *session.Registry
	codec    *ocpp.Codec
}

func NewLocal(registry *session.Registry, codec *ocpp.Codec) *Local {
	if codec == nil {
		codec = ocpp.NewCodec(nil)
	}
	return &Local{registry: registry, codec: codec}
}

func (l *Local) Dispatch(ctx context.Context, chargePointId string, action string, payload json.RawMessage) (json.RawMessage, error) {
	s, err := l.registry.Get(chargePointId)
	if err != nil {
		return nil, err
	}
	request, err := l.codec.DecodeRequest(action, payload, "")
	if err != nil {
		return nil, err
	}
	response, err := s.Request(ctx, request)
	if err != nil {
		return nil, err
	}
	result, err := json.Marshal(response)
	if err != nil {
		return nil, errors.Annotatef(err, "marshalling %s response", action)
	}
	return result, nil
}

func (l *Local) Connected() []string {
	return l.registry.ChargePointIds()
}
