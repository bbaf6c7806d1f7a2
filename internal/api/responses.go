package api

import (
	"context"
	"net/http"

	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/go-chi/render"
	"github.com/juju/errors"
)

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText  string `json:"status"`
	ErrorText   string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrBadRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrDispatch maps a dispatch.Dispatcher error to its response.
func ErrDispatch(err error) render.Renderer {
	var callErr *ocpp.CallError
	var ocppErr *ocpp.Error
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound, StatusText: "Charge point not connected.", ErrorText: err.Error()}
	case errors.As(err, &callErr):
		e := callErr.AsError()
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusBadGateway,
			StatusText:     "Charge point returned an error.",
			Code:           string(e.Code),
			Description:    e.Reason,
			Details:        e.Details,
		}
	case errors.As(err, &ocppErr):
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusBadRequest,
			StatusText:     "Invalid request.",
			ErrorText:      err.Error(),
			Code:           string(ocppErr.Code),
			Description:    ocppErr.Reason,
			Details:        ocppErr.Details,
		}
	case errors.Is(err, errors.Timeout), errors.Is(err, context.DeadlineExceeded):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusGatewayTimeout, StatusText: "Timed out waiting for response.", ErrorText: err.Error()}
	case errors.Is(err, session.ErrSessionClosed):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusConflict, StatusText: "Session closed.", ErrorText: err.Error()}
	}
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError, StatusText: "Command failed.", ErrorText: err.Error()}
}
