package mq

import (
	"encoding/json"
	"time"

	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/helpers"
	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

// MqBus publishes JSON messages on named channels and delivers the messages of
// subscribed channels to a callback. Every subscriber of a channel sees every message.
type MqBus interface {
	MqConnect() error
	Close() error
	MqMessagePublish(channelName string, json string) error
	MqMessagePublishRetry(channelName string, json string) error
	SetupMqTopicReceiver(channelName string, routingKey string) error
	// RunMqTopicReceiver starts delivering messages of a channel set up with
	// SetupMqTopicReceiver. It returns once delivery has started; delivery stops on Close.
	RunMqTopicReceiver(channelName string, process func(messageBy []byte)) error
}

// SetupMqConnection builds the bus selected by config.Type. For mangos_mq the process
// publishes on publisherListenUrl and subscribes to every subscriberDialUrls entry.
func SetupMqConnection(config conf.MqConfig, publisherListenUrl string, subscriberDialUrls ...string) (MqBus, error) {
	log.Logger.Info("MqType = " + config.Type)
	switch config.Type {
	case MqType_Mangos:
		return &MangosMqConnection{PublisherListenUrl: publisherListenUrl, SubscriberDialUrls: subscriberDialUrls}, nil
	case MqType_Rabbit:
		return &RabbitMqConnection{AmqpServerURL: config.RabbitMq.ServerUrl}, nil
	case MqType_Redis:
		return &RedisMqConnection{HostIp: config.RedisMq.HostPort, DbId: config.RedisMq.DbId, Password: config.RedisMq.Password}, nil
	}
	return nil, errors.NotValidf("mq type %q", config.Type)
}

// MqSubscribe sets up and starts a receiver for one channel.
func MqSubscribe(m MqBus, channelName string, routingKey string, process func(messageBy []byte)) error {
	if err := m.SetupMqTopicReceiver(channelName, routingKey); err != nil {
		return errors.Annotatef(err, "subscribing to %s", channelName)
	}
	return m.RunMqTopicReceiver(channelName, process)
}

// publishRetry tries publish up to MqChannel_SendMaxRetries times to ride out
// transient broker errors.
func publishRetry(clk clock.Clock, publish func(string, string) error, channelName string, json string) error {
	if clk == nil {
		clk = clock.WallClock
	}
	err := retry.Call(retry.CallArgs{
		Func:     func() error { return publish(channelName, json) },
		Attempts: MqChannel_SendMaxRetries,
		Delay:    MqChannel_SendRetryWaitMs * time.Millisecond,
		Clock:    clk,
		NotifyFunc: func(lastErr error, attempt int) {
			if attempt < MqChannel_SendMaxRetries {
				log.Logger.Warnf("MQ[%s] problem, wait: %dms, retry %d/%d, error: %s", channelName, MqChannel_SendRetryWaitMs, attempt, MqChannel_SendMaxRetries, lastErr.Error())
			}
		},
	})
	if err != nil {
		err = retry.LastError(err)
		log.Logger.Errorf("MQ[%s] error, failed to send message after %d attempts. Error: %s, message: %s", channelName, MqChannel_SendMaxRetries, err.Error(), json)
		return err
	}
	return nil
}

func MqNotifyNodeConnected(m MqBus, hostName string) error {
	notify := GetMqNotifyNodeConnectionChange_Message(hostName, NotifyMsg_NodeConnected)
	jsonString, _ := JsonMarshallString(notify)

	return m.MqMessagePublishRetry(MqChannelName_Notify, jsonString)
}

func MqNotifyNodeDisconnected(m MqBus, hostName string) error {
	notify := GetMqNotifyNodeConnectionChange_Message(hostName, NotifyMsg_NodeDisconnected)
	jsonString, _ := JsonMarshallString(notify)

	return m.MqMessagePublishRetry(MqChannelName_Notify, jsonString)
}

func MqNotifyClientConnected(m MqBus, hostName string, connInfo *mqmodels.ConnectionInfo) error {
	notify := GetMqNotifyClientConnectionChange_Message(hostName, connInfo, NotifyMsg_ClientConnected)
	jsonString, _ := JsonMarshallString(notify)

	return m.MqMessagePublishRetry(MqChannelName_Notify, jsonString)
}

func MqNotifyClientDisconnected(m MqBus, hostName string, connInfo *mqmodels.ConnectionInfo) error {
	notify := GetMqNotifyClientConnectionChange_Message(hostName, connInfo, NotifyMsg_ClientDisconnected)
	jsonString, _ := JsonMarshallString(notify)

	return m.MqMessagePublishRetry(MqChannelName_Notify, jsonString)
}

func GetMqNotifyNodeConnectionChange_Message(hostName string, notifyType string) mqmodels.MqNotifyConnectionChange {
	return mqmodels.MqNotifyConnectionChange{
		QueuedTime: helpers.GenerateDateNowMs(),
		ServerNode: hostName,
		NotifyType: notifyType,
	}
}

func GetMqNotifyClientConnectionChange_Message(hostName string, connInfo *mqmodels.ConnectionInfo, notifyType string) mqmodels.MqNotifyConnectionChange {
	return mqmodels.MqNotifyConnectionChange{
		QueuedTime: helpers.GenerateDateNowMs(),
		ServerNode: hostName,
		NotifyType: notifyType,
		RemoteAddr: connInfo.RemoteAddr,
		NetworkId:  connInfo.NetworkId,
	}
}

func JsonMarshallString(body any) (string, error) {
	jsonBy, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(jsonBy), nil
}

func MqCreateMessageEnvelope(kind string, hostName string, networkId string, body any) (string, error) {
	bodyBy, err := json.Marshal(body)
	if err != nil {
		return "", errors.Annotatef(err, "marshalling %s body", kind)
	}
	mqMsgEnvelope := mqmodels.MqMessageEnvelope{
		Kind:        kind,
		MessageTime: helpers.GenerateDateNowMs(),
		ServerNode:  hostName,
		Client:      networkId,
		Body:        bodyBy,
	}
	return JsonMarshallString(mqMsgEnvelope)
}

// MqSendEnvelopeRetry wraps body in an envelope and publishes it on channelName.
func MqSendEnvelopeRetry(m MqBus, channelName string, kind string, hostName string, networkId string, body any) error {
	json, err := MqCreateMessageEnvelope(kind, hostName, networkId, body)
	if err != nil {
		return err
	}
	return m.MqMessagePublishRetry(channelName, json)
}

func ParseMessageEnvelope(messageBy []byte) (*mqmodels.MqMessageEnvelope, error) {
	var envelope mqmodels.MqMessageEnvelope
	if err := json.Unmarshal(messageBy, &envelope); err != nil {
		return nil, errors.Annotate(err, "parsing envelope")
	}
	return &envelope, nil
}
