package dispatch

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"
	"sw/ocpp/central/internal/mq"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

const DefaultCommandTimeout = 15 * time.Second

// MqDispatcher sends commands over the bus to the csms-server node hosting the charge
// point. Node placement is learnt from the connection notifications on Notify.
type MqDispatcher struct {
	bus      mq.MqBus
	hostName string
	codec    *ocpp.Codec
	timeout  time.Duration
	clock    clock.Clock

	// nodes maps charge point ids to the node holding their session.
	nodes   *xsync.MapOf[string, string]
	waiting *xsync.MapOf[string, chan mqmodels.MqCommandReply]
}

func NewMqDispatcher(bus mq.MqBus, hostName string, codec *ocpp.Codec, timeout time.Duration, clk clock.Clock) *MqDispatcher {
	if codec == nil {
		codec = ocpp.NewCodec(nil)
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &MqDispatcher{
		bus:      bus,
		hostName: hostName,
		codec:    codec,
		timeout:  timeout,
		clock:    clk,
		nodes:    xsync.NewMapOf[string, string](),
		waiting:  xsync.NewMapOf[string, chan mqmodels.MqCommandReply](),
	}
}

// Start subscribes to connection notifications and command replies.
func (d *MqDispatcher) Start() error {
	if err := mq.MqSubscribe(d.bus, mq.MqChannelName_Notify, "", d.HandleNotify); err != nil {
		return err
	}
	return mq.MqSubscribe(d.bus, mq.MqChannelName_MessagesIn, "", d.HandleMessage)
}

func (d *MqDispatcher) HandleNotify(messageBy []byte) {
	var notify mqmodels.MqNotifyConnectionChange
	if err := json.Unmarshal(messageBy, &notify); err != nil {
		log.Logger.Warnf("Bad notify message: %s", err)
		return
	}

	switch notify.NotifyType {
	case mq.NotifyMsg_ClientConnected:
		d.nodes.Store(notify.NetworkId, notify.ServerNode)
	case mq.NotifyMsg_ClientDisconnected:
		d.forget(notify.NetworkId, notify.ServerNode)
	case mq.NotifyMsg_NodeConnected, mq.NotifyMsg_NodeDisconnected:
		// A node that (re)starts holds no sessions yet.
		d.nodes.Range(func(chargePointId string, node string) bool {
			if node == notify.ServerNode {
				d.forget(chargePointId, node)
			}
			return true
		})
	}
}

// forget removes chargePointId unless it has since moved to another node.
func (d *MqDispatcher) forget(chargePointId string, node string) {
	d.nodes.Compute(chargePointId, func(current string, loaded bool) (string, bool) {
		return current, !loaded || current == node
	})
}

func (d *MqDispatcher) HandleMessage(messageBy []byte) {
	envelope, err := mq.ParseMessageEnvelope(messageBy)
	if err != nil {
		log.Logger.Warn(err.Error())
		return
	}
	if envelope.Kind != mqmodels.EnvelopeKind_CommandReply {
		return
	}
	var reply mqmodels.MqCommandReply
	if err := json.Unmarshal(envelope.Body, &reply); err != nil {
		log.Logger.Warnf("Bad command reply from %s: %s", envelope.ServerNode, err)
		return
	}
	waiter, ok := d.waiting.LoadAndDelete(reply.RequestId)
	if !ok {
		log.Logger.Warnf("No waiting command for reply %s", reply.RequestId)
		return
	}
	waiter <- reply
}

func (d *MqDispatcher) Dispatch(ctx context.Context, chargePointId string, action string, payload json.RawMessage) (json.RawMessage, error) {
	node, ok := d.nodes.Load(chargePointId)
	if !ok {
		return nil, errors.Annotatef(session.ErrNotConnected, "%q", chargePointId)
	}
	if _, err := d.codec.DecodeRequest(action, payload, ""); err != nil {
		return nil, err
	}

	request := mqmodels.MqCommandRequest{
		RequestId:     uuid.New().String(),
		TargetNode:    node,
		ChargePointId: chargePointId,
		Action:        action,
		Payload:       payload,
		TimeoutMs:     int(d.timeout / time.Millisecond),
	}
	waiter := make(chan mqmodels.MqCommandReply, 1)
	d.waiting.Store(request.RequestId, waiter)
	defer d.waiting.Delete(request.RequestId)

	err := mq.MqSendEnvelopeRetry(d.bus, mq.MqChannelName_MessagesOut, mqmodels.EnvelopeKind_CommandRequest, d.hostName, chargePointId, request)
	if err != nil {
		return nil, errors.Annotatef(err, "sending %s to %s", action, node)
	}

	select {
	case reply := <-waiter:
		if reply.Error != nil {
			return nil, asError(reply.Error, chargePointId)
		}
		return reply.Payload, nil
	case <-d.clock.After(d.timeout):
		return nil, errors.Timeoutf("%s for %s on %s", action, chargePointId, node)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *MqDispatcher) Connected() []string {
	ids := make([]string, 0, d.nodes.Size())
	d.nodes.Range(func(chargePointId string, _ string) bool {
		ids = append(ids, chargePointId)
		return true
	})
	slices.Sort(ids)
	return ids
}
