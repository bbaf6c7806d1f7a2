package mq

import (
	"context"

	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"
	"sw/ocpp/central/internal/telemetry"
)

const DefaultForwarderQueueSize = 1024

// FrameForwarder publishes every frame it observes on MessagesIn. Frames are queued
// and published by Run, so a slow broker never stalls a session. Frames arriving
// while the queue is full are dropped.
type FrameForwarder struct {
	bus      MqBus
	hostName string
	frames   chan session.Frame
}

func NewFrameForwarder(bus MqBus, hostName string, queueSize int) *FrameForwarder {
	if queueSize <= 0 {
		queueSize = DefaultForwarderQueueSize
	}
	return &FrameForwarder{bus: bus, hostName: hostName, frames: make(chan session.Frame, queueSize)}
}

func (f *FrameForwarder) ObserveFrame(frame session.Frame) {
	select {
	case f.frames <- frame:
	default:
		log.Logger.Warnf("MQ[%s] queue full, dropping %s frame %s of %s", MqChannelName_MessagesIn, frame.Direction, frame.UniqueId, frame.ChargePointId)
	}
}

// Run publishes queued frames until ctx is done.
func (f *FrameForwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-f.frames:
			body := FrameBody(frame)
			if err := MqSendEnvelopeRetry(f.bus, MqChannelName_MessagesIn, mqmodels.EnvelopeKind_Frame, f.hostName, frame.ChargePointId, body); err != nil {
				log.Logger.Errorf("Dropping frame %s of %s: %s", frame.UniqueId, frame.ChargePointId, err.Error())
				telemetry.TrackTraceWarning("MQ publish failed, frame dropped: " + err.Error())
			}
		}
	}
}

func FrameBody(frame session.Frame) mqmodels.MqOcppFrame {
	return mqmodels.MqOcppFrame{
		Direction:     string(frame.Direction),
		MessageTypeId: int(frame.MessageType),
		UniqueId:      frame.UniqueId,
		Action:        frame.Action,
		Message:       string(frame.Text),
		Time:          frame.Time.UTC().Format(ocpp.DateTimeFormat),
	}
}
