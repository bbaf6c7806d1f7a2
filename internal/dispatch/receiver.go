package dispatch

import (
	"context"
	"encoding/json"
	"time"

	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"
	"sw/ocpp/central/internal/mq"
)

// CommandReceiver executes the commands addressed to this node and publishes their
// replies on MessagesIn.
type CommandReceiver struct {
	bus      mq.MqBus
	hostName string
	local    Dispatcher
}

func NewCommandReceiver(bus mq.MqBus, hostName string, local Dispatcher) *CommandReceiver {
	return &CommandReceiver{bus: bus, hostName: hostName, local: local}
}

func (r *CommandReceiver) Start() error {
	return mq.MqSubscribe(r.bus, mq.MqChannelName_MessagesOut, r.hostName, r.HandleMessage)
}

func (r *CommandReceiver) HandleMessage(messageBy []byte) {
	envelope, err := mq.ParseMessageEnvelope(messageBy)
	if err != nil {
		log.Logger.Warn(err.Error())
		return
	}
	if envelope.Kind != mqmodels.EnvelopeKind_CommandRequest {
		return
	}
	var request mqmodels.MqCommandRequest
	if err := json.Unmarshal(envelope.Body, &request); err != nil {
		log.Logger.Warnf("Bad command request from %s: %s", envelope.ServerNode, err)
		return
	}
	if request.TargetNode != r.hostName {
		return
	}
	// Commands wait for the charge point, so they must not hold up the receive loop.
	go r.execute(request)
}

func (r *CommandReceiver) execute(request mqmodels.MqCommandRequest) {
	timeout := DefaultCommandTimeout
	if request.TimeoutMs > 0 {
		timeout = time.Duration(request.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Logger.Debugf("Command %s: %s to %s", request.RequestId, request.Action, request.ChargePointId)
	payload, err := r.local.Dispatch(ctx, request.ChargePointId, request.Action, request.Payload)
	reply := mqmodels.MqCommandReply{
		RequestId:     request.RequestId,
		ChargePointId: request.ChargePointId,
		Payload:       payload,
		Error:         commandError(err),
	}
	if err != nil {
		log.Logger.Infof("Command %s failed: %s", request.RequestId, err)
	}

	err = mq.MqSendEnvelopeRetry(r.bus, mq.MqChannelName_MessagesIn, mqmodels.EnvelopeKind_CommandReply, r.hostName, request.ChargePointId, reply)
	if err != nil {
		log.Logger.Errorf("Cannot reply to command %s: %s", request.RequestId, err)
	}
}
