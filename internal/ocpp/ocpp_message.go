package ocpp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "Call"
	case MessageTypeCallResult:
		return "CallResult"
	case MessageTypeCallError:
		return "CallError"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Request is the payload of a Call.
type Request interface {
	Action() string
}

// Response is the payload of a CallResult.
type Response interface {
	Action() string
}

// Message is any decoded or encodable OCPP-J frame.
type Message interface {
	GetUniqueId() string
	GetMessageType() MessageType
}

type IncomingCall struct {
	UniqueId   string
	ActionName string
	Payload    Request
}

func (m *IncomingCall) GetUniqueId() string         { return m.UniqueId }
func (m *IncomingCall) GetMessageType() MessageType { return MessageTypeCall }

type OutgoingCall struct {
	UniqueId   string
	ActionName string
	Payload    Request
}

func (m *OutgoingCall) GetUniqueId() string         { return m.UniqueId }
func (m *OutgoingCall) GetMessageType() MessageType { return MessageTypeCall }

// IncomingCallResult is a decoded CallResult. ActionName and Payload are empty when the
// unique id did not match a pending call; RawPayload is always kept.
type IncomingCallResult struct {
	UniqueId   string
	ActionName string
	Payload    Response
	RawPayload json.RawMessage
}

func (m *IncomingCallResult) GetUniqueId() string         { return m.UniqueId }
func (m *IncomingCallResult) GetMessageType() MessageType { return MessageTypeCallResult }

type OutgoingCallResult struct {
	UniqueId string
	Payload  Response
}

func (m *OutgoingCallResult) GetUniqueId() string         { return m.UniqueId }
func (m *OutgoingCallResult) GetMessageType() MessageType { return MessageTypeCallResult }

// CallError is used in both directions. Received from a peer it is also the error
// value a pending call fails with.
type CallError struct {
	UniqueId         string
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

func (m *CallError) GetUniqueId() string         { return m.UniqueId }
func (m *CallError) GetMessageType() MessageType { return MessageTypeCallError }

func (m *CallError) Error() string {
	return fmt.Sprintf("call error %s [%s]: %s", m.ErrorCode, m.UniqueId, m.ErrorDescription)
}

// AsError converts a received CallError into the taxonomy error, lifting a
// "description" detail if the peer sent one.
func (m *CallError) AsError() *Error {
	err := &Error{Code: m.ErrorCode, UniqueId: m.UniqueId, Reason: m.ErrorDescription}
	if len(m.ErrorDetails) > 0 {
		var details struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(m.ErrorDetails, &details) == nil && details.Description != "" {
			err.Details = details.Description
		} else if string(m.ErrorDetails) != "{}" {
			err.Details = string(m.ErrorDetails)
		}
	}
	return err
}

func GenerateUniqueId() string {
	return uuid.New().String()
}
