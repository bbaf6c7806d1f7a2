package ocpp

import (
	"encoding/json"
	"fmt"
)

type ErrorCode string

const (
	NotImplemented               ErrorCode = "NotImplemented"
	NotSupported                 ErrorCode = "NotSupported"
	InternalError                ErrorCode = "InternalError"
	ProtocolError                ErrorCode = "ProtocolError"
	SecurityError                ErrorCode = "SecurityError"
	FormationViolation           ErrorCode = "FormationViolation"
	PropertyConstraintViolation  ErrorCode = "PropertyConstraintViolation"
	OccurenceConstraintViolation ErrorCode = "OccurenceConstraintViolation"
	TypeConstraintViolation      ErrorCode = "TypeConstraintViolation"
	GenericError                 ErrorCode = "GenericError"
)

// UnknownUniqueId is reported when a frame is too malformed to recover its unique id.
const UnknownUniqueId = "UNKNOWN"

// Reasons are sent verbatim on the wire; charge points match on them.
var errorReasons = map[ErrorCode]string{
	NotImplemented:               "Requested Action is not known by receiver",
	NotSupported:                 "Requested Action is recognized but not supported by the receiver",
	InternalError:                "An internal error occurred and the receiver was not able to process the requested Action successfully",
	ProtocolError:                "Payload for Action is incomplete",
	SecurityError:                "During the processing of Action a security issue occurred preventing receiver from completing the Action successfully",
	FormationViolation:           "Payload for Action is syntactically incorrect or not conform to the PDU structure for Action",
	PropertyConstraintViolation:  "Payload is syntactically correct but at least one field contains an invalid value",
	OccurenceConstraintViolation: "Payload for Action is syntactically correct but at least one of the fields violates occurence constraints",
	TypeConstraintViolation:      "Payload for Action is syntactically correct but at least one of the fields violates data type constraints (e.g. “somestring”: 12)",
	GenericError:                 "Any other error not covered by the previous ones",
}

// Reason returns the canonical description for the code.
func (c ErrorCode) Reason() string {
	return errorReasons[c]
}

func (c ErrorCode) IsValid() bool {
	_, ok := errorReasons[c]
	return ok
}

// ParseErrorCode maps a wire error code to the taxonomy. Unknown codes become GenericError.
func ParseErrorCode(s string) ErrorCode {
	code := ErrorCode(s)
	if !code.IsValid() {
		return GenericError
	}
	return code
}

// Error is a protocol error raised locally, either while decoding a frame or by a call handler.
type Error struct {
	Code     ErrorCode
	UniqueId string
	Reason   string
	Details  string
}

func NewError(code ErrorCode, uniqueId string, details string) *Error {
	if uniqueId == "" {
		uniqueId = UnknownUniqueId
	}
	return &Error{Code: code, UniqueId: uniqueId, Reason: code.Reason(), Details: details}
}

// NewGenericError builds a GenericError with a free-form reason.
func NewGenericError(reason string, uniqueId string, details string) *Error {
	err := NewError(GenericError, uniqueId, details)
	if reason != "" {
		err.Reason = reason
	}
	return err
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s [%s]: %s (%s)", e.Code, e.UniqueId, e.Reason, e.Details)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.UniqueId, e.Reason)
}

// WithUniqueId returns a copy of the error bound to another call.
func (e *Error) WithUniqueId(uniqueId string) *Error {
	c := *e
	if uniqueId == "" {
		uniqueId = UnknownUniqueId
	}
	c.UniqueId = uniqueId
	return &c
}

// CallError converts the error into the CallError frame answering its call.
func (e *Error) CallError() *CallError {
	details := json.RawMessage(`{}`)
	if e.Details != "" {
		details, _ = json.Marshal(map[string]string{"description": e.Details})
	}
	return &CallError{
		UniqueId:         e.UniqueId,
		ErrorCode:        e.Code,
		ErrorDescription: e.Reason,
		ErrorDetails:     details,
	}
}
