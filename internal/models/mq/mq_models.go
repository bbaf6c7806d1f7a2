package mq

import "encoding/json"

const (
	EnvelopeKind_Frame          = "frame"
	EnvelopeKind_CommandRequest = "commandRequest"
	EnvelopeKind_CommandReply   = "commandReply"
)

// ConnectionInfo identifies a charge point connection in notifications.
type ConnectionInfo struct {
	NetworkId  string
	RemoteAddr string
}

type MqMessageEnvelope struct {
	Kind        string          `json:"kind"`
	ServerNode  string          `json:"serverNode"`
	Client      string          `json:"client"`
	MessageTime string          `json:"messageTime"`
	Body        json.RawMessage `json:"body"`
}

type MqNotifyConnectionChange struct {
	QueuedTime string `json:"queuedTime"`
	ServerNode string `json:"serverNode"`
	NotifyType string `json:"notifyType"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
	NetworkId  string `json:"networkId,omitempty"`
}

// MqOcppFrame is one OCPP-J frame seen by a session. Message is the frame text.
type MqOcppFrame struct {
	Direction     string `json:"direction"`
	MessageTypeId int    `json:"messageTypeId"`
	UniqueId      string `json:"uniqueId"`
	Action        string `json:"action,omitempty"`
	Message       string `json:"message"`
	Time          string `json:"time"`
}

type MqCommandRequest struct {
	RequestId     string          `json:"requestId"`
	TargetNode    string          `json:"targetNode"`
	ChargePointId string          `json:"chargePointId"`
	Action        string          `json:"action"`
	Payload       json.RawMessage `json:"payload"`
	TimeoutMs     int             `json:"timeoutMs,omitempty"`
}

type MqCommandReply struct {
	RequestId     string          `json:"requestId"`
	ChargePointId string          `json:"chargePointId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         *MqCommandError `json:"error,omitempty"`
}

const (
	CommandError_NotConnected = "notConnected"
	CommandError_Invalid      = "invalid"
	CommandError_CallError    = "callError"
	CommandError_Timeout      = "timeout"
	CommandError_Closed       = "closed"
	CommandError_Failed       = "failed"
)

type MqCommandError struct {
	Kind        string `json:"kind"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
}
