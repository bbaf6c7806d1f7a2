package ocpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReasonsAreVerbatim(t *testing.T) {
	tests := map[ErrorCode]string{
		NotImplemented:               "Requested Action is not known by receiver",
		NotSupported:                 "Requested Action is recognized but not supported by the receiver",
		InternalError:                "An internal error occurred and the receiver was not able to process the requested Action successfully",
		ProtocolError:                "Payload for Action is incomplete",
		SecurityError:                "During the processing of Action a security issue occurred preventing receiver from completing the Action successfully",
		FormationViolation:           "Payload for Action is syntactically incorrect or not conform to the PDU structure for Action",
		PropertyConstraintViolation:  "Payload is syntactically correct but at least one field contains an invalid value",
		OccurenceConstraintViolation: "Payload for Action is syntactically correct but at least one of the fields violates occurence constraints",
		TypeConstraintViolation:      "Payload for Action is syntactically correct but at least one of the fields violates data type constraints (e.g. “somestring”: 12)",
	}
	for code, reason := range tests {
		assert.Equal(t, reason, code.Reason(), string(code))
		assert.Equal(t, reason, NewError(code, "1", "").Reason)
	}
}

func TestParseErrorCode(t *testing.T) {
	assert.Equal(t, FormationViolation, ParseErrorCode("FormationViolation"))
	assert.Equal(t, OccurenceConstraintViolation, ParseErrorCode("OccurenceConstraintViolation"))
	assert.Equal(t, GenericError, ParseErrorCode("OccurrenceConstraintViolation"))
	assert.Equal(t, GenericError, ParseErrorCode(""))
}

func TestNewErrorDefaultsUniqueId(t *testing.T) {
	err := NewError(FormationViolation, "", "")

	assert.Equal(t, UnknownUniqueId, err.UniqueId)
	assert.Equal(t, "abc", err.WithUniqueId("abc").UniqueId)
	assert.Equal(t, UnknownUniqueId, err.UniqueId)
}

func TestGenericErrorReason(t *testing.T) {
	err := NewGenericError("database unavailable", "7", "")
	assert.Equal(t, GenericError, err.Code)
	assert.Equal(t, "database unavailable", err.Reason)

	err = NewGenericError("", "7", "")
	assert.Equal(t, GenericError.Reason(), err.Reason)
}

func TestErrorToCallError(t *testing.T) {
	ce := NewError(PropertyConstraintViolation, "abc", "chargePointVendor violates max=20").CallError()

	assert.Equal(t, "abc", ce.UniqueId)
	assert.Equal(t, PropertyConstraintViolation, ce.ErrorCode)
	assert.JSONEq(t, `{"description":"chargePointVendor violates max=20"}`, string(ce.ErrorDetails))

	ce = NewError(InternalError, "abc", "").CallError()
	assert.JSONEq(t, `{}`, string(ce.ErrorDetails))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NotImplemented [x]: Requested Action is not known by receiver",
		NewError(NotImplemented, "x", "").Error())
	assert.Contains(t, NewError(NotImplemented, "x", "Foo").Error(), "(Foo)")
}
