package ocpp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/go-playground/validator.v9"
)

// ActionResolver returns the action of the pending call with the given unique id.
type ActionResolver func(uniqueId string) (action string, ok bool)

// DecodeFailure is returned by Decode for a frame that could not be turned into a message.
// MessageType is zero when the frame was too malformed to classify.
type DecodeFailure struct {
	MessageType MessageType
	Err         *Error
}

func (f *DecodeFailure) Error() string {
	return f.Err.Error()
}

func (f *DecodeFailure) Unwrap() error {
	return f.Err
}

// Codec translates between OCPP-J frames and messages. It is safe for concurrent use.
type Codec struct {
	catalog  *Catalog
	validate *validator.Validate
}

func NewCodec(catalog *Catalog) *Codec {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Codec{catalog: catalog, validate: newValidator()}
}

func (c *Codec) Catalog() *Catalog {
	return c.catalog
}

// Decode parses a text frame into an *IncomingCall, *IncomingCallResult or *CallError.
// Any failure is a *DecodeFailure.
func (c *Codec) Decode(text []byte, resolve ActionResolver) (Message, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(text, &entries); err != nil {
		return nil, fail(0, NewError(FormationViolation, "", "frame is not a JSON array: "+err.Error()))
	}
	if len(entries) == 0 {
		return nil, fail(0, NewError(FormationViolation, "", "empty frame"))
	}
	uniqueId := bestEffortUniqueId(entries)

	var typeId int
	if err := json.Unmarshal(entries[0], &typeId); err != nil {
		return nil, fail(0, NewError(FormationViolation, uniqueId, "messageTypeId is not an integer"))
	}
	msgType := MessageType(typeId)

	var arity int
	switch msgType {
	case MessageTypeCall:
		arity = 4
	case MessageTypeCallResult:
		arity = 3
	case MessageTypeCallError:
		arity = 5
	default:
		return nil, fail(0, NewError(FormationViolation, uniqueId, fmt.Sprintf("unknown messageTypeId %d", typeId)))
	}
	if len(entries) != arity {
		return nil, fail(msgType, NewError(FormationViolation, uniqueId,
			fmt.Sprintf("%s must have %d elements, got %d", msgType, arity, len(entries))))
	}
	if uniqueId == "" {
		return nil, fail(msgType, NewError(FormationViolation, "", "uniqueId must be a non-empty string"))
	}

	switch msgType {
	case MessageTypeCall:
		return c.decodeCall(uniqueId, entries)
	case MessageTypeCallResult:
		return c.decodeCallResult(uniqueId, entries, resolve)
	default:
		return c.decodeCallError(uniqueId, entries)
	}
}

func (c *Codec) decodeCall(uniqueId string, entries []json.RawMessage) (Message, error) {
	var action string
	if err := json.Unmarshal(entries[2], &action); err != nil || action == "" {
		return nil, fail(MessageTypeCall, NewError(FormationViolation, uniqueId, "action must be a non-empty string"))
	}
	request, err := c.DecodeRequest(action, entries[3], uniqueId)
	if err != nil {
		return nil, fail(MessageTypeCall, err.(*Error))
	}
	return &IncomingCall{UniqueId: uniqueId, ActionName: action, Payload: request}, nil
}

func (c *Codec) decodeCallResult(uniqueId string, entries []json.RawMessage, resolve ActionResolver) (Message, error) {
	raw := entries[2]
	if !isObject(raw) {
		return nil, fail(MessageTypeCallResult, NewError(FormationViolation, uniqueId, "payload is not a JSON object"))
	}
	result := &IncomingCallResult{UniqueId: uniqueId, RawPayload: raw}
	if resolve == nil {
		return result, nil
	}
	action, ok := resolve(uniqueId)
	if !ok {
		return result, nil
	}
	response, err := c.DecodeResponse(action, raw, uniqueId)
	if err != nil {
		return nil, fail(MessageTypeCallResult, err.(*Error))
	}
	result.ActionName = action
	result.Payload = response
	return result, nil
}

func (c *Codec) decodeCallError(uniqueId string, entries []json.RawMessage) (Message, error) {
	var code, description string
	if err := json.Unmarshal(entries[2], &code); err != nil {
		return nil, fail(MessageTypeCallError, NewError(FormationViolation, uniqueId, "errorCode must be a string"))
	}
	if err := json.Unmarshal(entries[3], &description); err != nil {
		return nil, fail(MessageTypeCallError, NewError(FormationViolation, uniqueId, "errorDescription must be a string"))
	}
	details := entries[4]
	if bytes.Equal(bytes.TrimSpace(details), []byte("null")) {
		details = json.RawMessage(`{}`)
	} else if !isObject(details) {
		return nil, fail(MessageTypeCallError, NewError(FormationViolation, uniqueId, "errorDetails must be a JSON object"))
	}
	return &CallError{
		UniqueId:         uniqueId,
		ErrorCode:        ParseErrorCode(code),
		ErrorDescription: description,
		ErrorDetails:     details,
	}, nil
}

// DecodeRequest decodes and validates a Call payload for the action. Errors are *Error.
func (c *Codec) DecodeRequest(action string, payload json.RawMessage, uniqueId string) (Request, error) {
	feature, ok := c.catalog.Feature(action)
	if !ok {
		return nil, NewError(NotImplemented, uniqueId, fmt.Sprintf("unknown action '%s'", action))
	}
	request := feature.NewRequest()
	if err := c.decodePayload(payload, request, uniqueId); err != nil {
		return nil, err
	}
	return request, nil
}

// DecodeResponse decodes and validates a CallResult payload for the action. Errors are *Error.
func (c *Codec) DecodeResponse(action string, payload json.RawMessage, uniqueId string) (Response, error) {
	feature, ok := c.catalog.Feature(action)
	if !ok {
		return nil, NewError(NotImplemented, uniqueId, fmt.Sprintf("unknown action '%s'", action))
	}
	response := feature.NewResponse()
	if err := c.decodePayload(payload, response, uniqueId); err != nil {
		return nil, err
	}
	return response, nil
}

// Encode serialises an *OutgoingCall, *OutgoingCallResult or *CallError.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *OutgoingCall:
		payload, err := marshalPayload(m.Payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]any{MessageTypeCall, m.UniqueId, m.ActionName, payload})
	case *OutgoingCallResult:
		payload, err := marshalPayload(m.Payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]any{MessageTypeCallResult, m.UniqueId, payload})
	case *CallError:
		details := m.ErrorDetails
		if len(details) == 0 {
			details = json.RawMessage(`{}`)
		}
		return json.Marshal([]any{MessageTypeCallError, m.UniqueId, m.ErrorCode, m.ErrorDescription, details})
	}
	return nil, fmt.Errorf("cannot encode %T", msg)
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage(`{}`), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func bestEffortUniqueId(entries []json.RawMessage) string {
	if len(entries) < 2 {
		return ""
	}
	var id string
	if json.Unmarshal(entries[1], &id) != nil {
		return ""
	}
	return id
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func fail(msgType MessageType, err *Error) *DecodeFailure {
	return &DecodeFailure{MessageType: msgType, Err: err}
}
