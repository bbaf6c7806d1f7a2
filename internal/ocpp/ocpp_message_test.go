package ocpp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueId(t *testing.T) {
	result := GenerateUniqueId()

	_, err := uuid.Parse(result)
	assert.NoError(t, err)
}

func TestCallErrorAsError(t *testing.T) {
	ce := &CallError{
		UniqueId:         "42",
		ErrorCode:        NotSupported,
		ErrorDescription: "nope",
		ErrorDetails:     json.RawMessage(`{"description":"Reset is disabled"}`),
	}

	err := ce.AsError()

	assert.Equal(t, NotSupported, err.Code)
	assert.Equal(t, "42", err.UniqueId)
	assert.Equal(t, "nope", err.Reason)
	assert.Equal(t, "Reset is disabled", err.Details)
	assert.Contains(t, ce.Error(), "NotSupported")
}

func TestCallErrorAsErrorKeepsForeignDetails(t *testing.T) {
	ce := &CallError{UniqueId: "1", ErrorCode: GenericError, ErrorDetails: json.RawMessage(`{"vendor":"x"}`)}
	assert.Equal(t, `{"vendor":"x"}`, ce.AsError().Details)

	ce.ErrorDetails = json.RawMessage(`{}`)
	assert.Empty(t, ce.AsError().Details)
}

func TestDateTimeMarshalsUtcMillis(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	dt := NewDateTime(time.Date(2024, 9, 27, 9, 59, 59, 123000000, loc))

	b, err := json.Marshal(dt)

	require.NoError(t, err)
	assert.Equal(t, `"2024-09-27T08:59:59.123Z"`, string(b))
}

func TestDateTimeUnmarshal(t *testing.T) {
	var dt DateTime
	require.NoError(t, json.Unmarshal([]byte(`"2024-09-27T08:59:59Z"`), &dt))
	assert.Equal(t, 2024, dt.Year())

	err := json.Unmarshal([]byte(`"yesterday"`), &dt)
	var dateErr *DateTimeError
	assert.ErrorAs(t, err, &dateErr)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "Call", MessageTypeCall.String())
	assert.Equal(t, "CallResult", MessageTypeCallResult.String())
	assert.Equal(t, "CallError", MessageTypeCallError.String())
	assert.Equal(t, "MessageType(9)", MessageType(9).String())
}
