package ocpp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noPending(string) (string, bool) { return "", false }

func requireFailure(t *testing.T, err error) *DecodeFailure {
	t.Helper()
	require.Error(t, err)
	var failure *DecodeFailure
	require.ErrorAs(t, err, &failure)
	return failure
}

func TestDecodeBootNotificationCall(t *testing.T) {
	codec := NewCodec(nil)

	msg, err := codec.Decode([]byte(`[2,"abc","BootNotification",{"chargePointVendor":"V","chargePointModel":"M"}]`), noPending)

	require.NoError(t, err)
	call, ok := msg.(*IncomingCall)
	require.True(t, ok)
	assert.Equal(t, "abc", call.UniqueId)
	assert.Equal(t, "BootNotification", call.ActionName)
	assert.Equal(t, MessageTypeCall, call.GetMessageType())
	boot := call.Payload.(*OcppBootNotification)
	assert.Equal(t, "V", boot.ChargePointVendor)
	assert.Equal(t, "M", boot.ChargePointModel)
}

func TestEncodeBootNotificationResult(t *testing.T) {
	codec := NewCodec(nil)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	text, err := codec.Encode(&OutgoingCallResult{
		UniqueId: "abc",
		Payload:  &OcppBootNotificationResponse{Status: BootStatus_Accepted, CurrentTime: NewDateTime(now), Interval: 10},
	})

	require.NoError(t, err)
	assert.Equal(t, `[3,"abc",{"status":"Accepted","currentTime":"2024-01-02T03:04:05.000Z","interval":10}]`, string(text))
}

func TestDecodeValueTooLongIsPropertyConstraintViolation(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Decode([]byte(`[2,"x","BootNotification",{"chargePointVendor":"ex dolor too long to fit twenty chars"}]`), noPending)

	failure := requireFailure(t, err)
	assert.Equal(t, PropertyConstraintViolation, failure.Err.Code)
	assert.Equal(t, "x", failure.Err.UniqueId)
	assert.Equal(t, MessageTypeCall, failure.MessageType)
	assert.Contains(t, failure.Err.Details, "chargePointVendor")
}

func TestDecodeMissingRequiredFieldIsFormationViolation(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Decode([]byte(`[2,"x","BootNotification",{"chargePointVendor":"V"}]`), noPending)

	failure := requireFailure(t, err)
	assert.Equal(t, FormationViolation, failure.Err.Code)
	assert.Contains(t, failure.Err.Details, "chargePointModel")
}

func TestDecodePayloadClassification(t *testing.T) {
	codec := NewCodec(nil)
	tests := []struct {
		name  string
		frame string
		code  ErrorCode
	}{
		{"unknown field", `[2,"1","Heartbeat",{"foo":1}]`, FormationViolation},
		{"payload not an object", `[2,"1","Heartbeat",[]]`, FormationViolation},
		{"payload is a string", `[2,"1","Heartbeat","{}"]`, FormationViolation},
		{"wrong type", `[2,"1","BootNotification",{"chargePointVendor":12,"chargePointModel":"M"}]`, PropertyConstraintViolation},
		{"invalid enum", `[2,"1","Reset",{"type":"Medium"}]`, PropertyConstraintViolation},
		{"out of range", `[2,"1","UnlockConnector",{"connectorId":0}]`, PropertyConstraintViolation},
		{"bad dateTime", `[2,"1","StartTransaction",{"connectorId":1,"idTag":"t","meterStart":0,"timestamp":"noon"}]`, PropertyConstraintViolation},
		{"empty list", `[2,"1","MeterValues",{"connectorId":1,"meterValue":[]}]`, PropertyConstraintViolation},
		{"missing list", `[2,"1","MeterValues",{"connectorId":1}]`, FormationViolation},
		{"nested missing", `[2,"1","MeterValues",{"connectorId":1,"meterValue":[{"timestamp":"2024-01-01T00:00:00Z","sampledValue":[{}]}]}]`, FormationViolation},
		{"missing connectorId", `[2,"1","StatusNotification",{"errorCode":"NoError","status":"Available"}]`, FormationViolation},
		{"missing meterStart", `[2,"1","StartTransaction",{"connectorId":1,"idTag":"t","timestamp":"2024-01-01T00:00:00Z"}]`, FormationViolation},
		{"missing transactionId", `[2,"1","StopTransaction",{"meterStop":10,"timestamp":"2024-01-01T00:00:00Z"}]`, FormationViolation},
		{"null transactionId", `[2,"1","StopTransaction",{"meterStop":10,"timestamp":"2024-01-01T00:00:00Z","transactionId":null}]`, FormationViolation},
		{"zero connectorId", `[2,"1","StatusNotification",{"connectorId":0,"errorCode":"NoError","status":"Available"}]`, ""},
		{"zero meter values", `[2,"1","StopTransaction",{"meterStop":0,"timestamp":"2024-01-01T00:00:00Z","transactionId":0}]`, ""},
		{"empty vendor", `[2,"1","BootNotification",{"chargePointVendor":"","chargePointModel":"M"}]`, PropertyConstraintViolation},
		{"empty nested value", `[2,"1","MeterValues",{"connectorId":1,"meterValue":[{"timestamp":"2024-01-01T00:00:00Z","sampledValue":[{"value":""}]}]}]`, PropertyConstraintViolation},
		{"missing beats empty", `[2,"1","BootNotification",{"chargePointVendor":""}]`, FormationViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.frame), noPending)

			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			failure := requireFailure(t, err)
			assert.Equal(t, tt.code, failure.Err.Code)
			assert.Equal(t, "1", failure.Err.UniqueId)
		})
	}
}

func TestDecodeCallResultMissingNumberIsFormationViolation(t *testing.T) {
	codec := NewCodec(nil)
	resolve := func(string) (string, bool) { return MsgType_StartTransaction, true }

	_, err := codec.Decode([]byte(`[3,"s1",{"idTagInfo":{"status":"Accepted"}}]`), resolve)

	failure := requireFailure(t, err)
	assert.Equal(t, MessageTypeCallResult, failure.MessageType)
	assert.Equal(t, FormationViolation, failure.Err.Code)
	assert.Contains(t, failure.Err.Details, "transactionId")
}

func TestDecodeUnknownActionIsNotImplemented(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Decode([]byte(`[2,"u1","SelfDestruct",{}]`), noPending)

	failure := requireFailure(t, err)
	assert.Equal(t, NotImplemented, failure.Err.Code)
	assert.Equal(t, "u1", failure.Err.UniqueId)
}

func TestDecodeMalformedFramesAreFormationViolations(t *testing.T) {
	codec := NewCodec(nil)
	tests := []struct {
		frame    string
		uniqueId string
	}{
		{``, UnknownUniqueId},
		{`not json`, UnknownUniqueId},
		{`{"a":1}`, UnknownUniqueId},
		{`"text"`, UnknownUniqueId},
		{`null`, UnknownUniqueId},
		{`[]`, UnknownUniqueId},
		{`[2]`, UnknownUniqueId},
		{`[2,"abc","Heartbeat"]`, "abc"},
		{`[2,"abc","Heartbeat",{},{}]`, "abc"},
		{`[3,"abc"]`, "abc"},
		{`[3,"abc",{},{}]`, "abc"},
		{`[4,"abc","GenericError","x"]`, "abc"},
		{`[1,"abc",{}]`, "abc"},
		{`[5,"abc",{}]`, "abc"},
		{`["2","abc","Heartbeat",{}]`, "abc"},
		{`[2.5,"abc","Heartbeat",{}]`, "abc"},
		{`[2,17,"Heartbeat",{}]`, UnknownUniqueId},
		{`[2,"","Heartbeat",{}]`, UnknownUniqueId},
		{`[2,"abc",17,{}]`, "abc"},
		{`[4,"abc",1,"x",{}]`, "abc"},
		{`[4,"abc","GenericError","x","details"]`, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.frame), noPending)

			failure := requireFailure(t, err)
			assert.Equal(t, FormationViolation, failure.Err.Code)
			assert.Equal(t, tt.uniqueId, failure.Err.UniqueId)
		})
	}
}

func TestDecodeCallResultResolvesAction(t *testing.T) {
	codec := NewCodec(nil)
	resolve := func(id string) (string, bool) {
		if id == "r1" {
			return MsgType_Reset, true
		}
		return "", false
	}

	msg, err := codec.Decode([]byte(`[3,"r1",{"status":"Accepted"}]`), resolve)

	require.NoError(t, err)
	result := msg.(*IncomingCallResult)
	assert.Equal(t, MsgType_Reset, result.ActionName)
	assert.Equal(t, "Accepted", result.Payload.(*OcppResetResponse).Status)
}

func TestDecodeCallResultUnknownUniqueId(t *testing.T) {
	codec := NewCodec(nil)

	msg, err := codec.Decode([]byte(`[3,"nobody",{"status":"Accepted"}]`), noPending)

	require.NoError(t, err)
	result := msg.(*IncomingCallResult)
	assert.Equal(t, "nobody", result.UniqueId)
	assert.Empty(t, result.ActionName)
	assert.Nil(t, result.Payload)
	assert.JSONEq(t, `{"status":"Accepted"}`, string(result.RawPayload))
}

func TestDecodeCallResultInvalidPayload(t *testing.T) {
	codec := NewCodec(nil)
	resolve := func(string) (string, bool) { return MsgType_Reset, true }

	_, err := codec.Decode([]byte(`[3,"r1",{"status":"Maybe"}]`), resolve)

	failure := requireFailure(t, err)
	assert.Equal(t, MessageTypeCallResult, failure.MessageType)
	assert.Equal(t, PropertyConstraintViolation, failure.Err.Code)
	assert.Equal(t, "r1", failure.Err.UniqueId)
}

func TestDecodeCallError(t *testing.T) {
	codec := NewCodec(nil)

	msg, err := codec.Decode([]byte(`[4,"e1","NotSupported","not here",{"description":"d"}]`), noPending)

	require.NoError(t, err)
	ce := msg.(*CallError)
	assert.Equal(t, "e1", ce.UniqueId)
	assert.Equal(t, NotSupported, ce.ErrorCode)
	assert.Equal(t, "not here", ce.ErrorDescription)
	assert.Equal(t, "d", ce.AsError().Details)
}

func TestDecodeCallErrorUnknownCodeIsGenericError(t *testing.T) {
	codec := NewCodec(nil)

	msg, err := codec.Decode([]byte(`[4,"e1","SomethingNew","?",null]`), noPending)

	require.NoError(t, err)
	ce := msg.(*CallError)
	assert.Equal(t, GenericError, ce.ErrorCode)
	assert.JSONEq(t, `{}`, string(ce.ErrorDetails))
}

func TestEncodeCallError(t *testing.T) {
	codec := NewCodec(nil)

	text, err := codec.Encode(NewError(FormationViolation, "", "").CallError())

	require.NoError(t, err)
	assert.Equal(t, `[4,"UNKNOWN","FormationViolation","Payload for Action is syntactically incorrect or not conform to the PDU structure for Action",{}]`, string(text))
}

func TestEncodeNilPayloadIsEmptyObject(t *testing.T) {
	codec := NewCodec(nil)

	text, err := codec.Encode(&OutgoingCallResult{UniqueId: "1"})

	require.NoError(t, err)
	assert.Equal(t, `[3,"1",{}]`, string(text))
}

func TestEncodeUnsupportedMessage(t *testing.T) {
	_, err := NewCodec(nil).Encode(&IncomingCall{UniqueId: "1"})
	assert.Error(t, err)
}

func TestRoundTripCall(t *testing.T) {
	codec := NewCodec(nil)
	connector := 2
	calls := []*OutgoingCall{
		{UniqueId: GenerateUniqueId(), ActionName: MsgType_Reset, Payload: &OcppReset{Type: "Soft"}},
		{UniqueId: GenerateUniqueId(), ActionName: MsgType_RemoteStartTransaction, Payload: &OcppRemoteStartTransaction{ConnectorId: &connector, IdTag: "TAG1"}},
		{UniqueId: GenerateUniqueId(), ActionName: MsgType_GetConfiguration, Payload: &OcppGetConfiguration{Key: []string{"HeartbeatInterval"}}},
		{UniqueId: "boot-1", ActionName: MsgType_BootNotification, Payload: &OcppBootNotification{ChargePointVendor: "V", ChargePointModel: "M", FirmwareVersion: "1.0"}},
		{UniqueId: "hb", ActionName: MsgType_Heartbeat, Payload: &OcppHeartbeat{}},
	}
	for _, call := range calls {
		t.Run(call.ActionName, func(t *testing.T) {
			text, err := codec.Encode(call)
			require.NoError(t, err)

			msg, err := codec.Decode(text, noPending)

			require.NoError(t, err)
			decoded := msg.(*IncomingCall)
			assert.Equal(t, call.UniqueId, decoded.UniqueId)
			assert.Equal(t, call.ActionName, decoded.ActionName)
			assert.Equal(t, call.Payload, decoded.Payload)
		})
	}
}

func TestRoundTripCallResult(t *testing.T) {
	codec := NewCodec(nil)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	result := &OutgoingCallResult{
		UniqueId: "r-9",
		Payload:  &OcppStartTransactionResponse{IdTagInfo: &IdTagInfo{Status: AuthStatus_Accepted, ExpiryDate: NewDateTime(now)}, TransactionId: 77},
	}
	text, err := codec.Encode(result)
	require.NoError(t, err)

	msg, err := codec.Decode(text, func(string) (string, bool) { return MsgType_StartTransaction, true })

	require.NoError(t, err)
	decoded := msg.(*IncomingCallResult)
	assert.Equal(t, "r-9", decoded.UniqueId)
	assert.Equal(t, MessageTypeCallResult, decoded.GetMessageType())
	payload := decoded.Payload.(*OcppStartTransactionResponse)
	assert.Equal(t, 77, payload.TransactionId)
	assert.True(t, now.Equal(payload.IdTagInfo.ExpiryDate.Time))
}

func TestRoundTripCallError(t *testing.T) {
	codec := NewCodec(nil)
	original := NewError(OccurenceConstraintViolation, "e-3", "too many").CallError()
	text, err := codec.Encode(original)
	require.NoError(t, err)

	msg, err := codec.Decode(text, noPending)

	require.NoError(t, err)
	decoded := msg.(*CallError)
	assert.Equal(t, original.UniqueId, decoded.UniqueId)
	assert.Equal(t, original.ErrorCode, decoded.ErrorCode)
	assert.Equal(t, original.ErrorDescription, decoded.ErrorDescription)
	assert.JSONEq(t, string(original.ErrorDetails), string(decoded.ErrorDetails))
}

func TestDecodeRequestForCommand(t *testing.T) {
	codec := NewCodec(nil)

	req, err := codec.DecodeRequest(MsgType_ChangeConfiguration, json.RawMessage(`{"key":"HeartbeatInterval","value":"30"}`), "")

	require.NoError(t, err)
	assert.Equal(t, "30", req.(*OcppChangeConfiguration).Value)

	_, err = codec.DecodeRequest("Nope", json.RawMessage(`{}`), "")
	var ocppErr *Error
	require.ErrorAs(t, err, &ocppErr)
	assert.Equal(t, NotImplemented, ocppErr.Code)
	assert.Equal(t, UnknownUniqueId, ocppErr.UniqueId)
}

func TestCatalogActions(t *testing.T) {
	catalog := DefaultCatalog()

	actions := catalog.Actions()

	assert.Len(t, actions, 22)
	assert.Contains(t, actions, MsgType_BootNotification)
	assert.Contains(t, actions, MsgType_UpdateFirmware)
	for _, action := range actions {
		f, ok := catalog.Feature(action)
		require.True(t, ok)
		assert.Equal(t, action, f.NewRequest().Action())
		assert.Equal(t, action, f.NewResponse().Action())
	}
}
