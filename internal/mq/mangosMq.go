package mq

import (
	"strings"
	"sync"

	log "sw/ocpp/central/internal/logging"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// register transports
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

// MangosMqConnection is a brokerless bus. Each process publishes on its own pub
// socket and dials the pub sockets of its peers. Messages travel as channelName|json.
type MangosMqConnection struct {
	PublisherListenUrl string
	SubscriberDialUrls []string
	Clock              clock.Clock

	sockPub   mangos.Socket
	sockSub   mangos.Socket
	handlers  *xsync.MapOf[string, func([]byte)]
	receiving sync.Once
}

func (r *MangosMqConnection) Close() error {
	log.Logger.Info("Close mangos_mq")

	if r.sockPub != nil {
		r.sockPub.Close()
	}
	if r.sockSub != nil {
		r.sockSub.Close()
	}
	return nil
}

func (r *MangosMqConnection) MqConnect() error {
	r.handlers = xsync.NewMapOf[string, func([]byte)]()

	if r.PublisherListenUrl != "" {
		log.Logger.Infof("Listening on MQ URL for subscribers: %s", r.PublisherListenUrl)
		pubSock, err := pub.NewSocket()
		if err != nil {
			return errors.Annotate(err, "new pub socket")
		}
		if err := pubSock.Listen(r.PublisherListenUrl); err != nil {
			pubSock.Close()
			return errors.Annotatef(err, "listen on %s", r.PublisherListenUrl)
		}
		r.sockPub = pubSock
	}

	if len(r.SubscriberDialUrls) > 0 {
		subSock, err := sub.NewSocket()
		if err != nil {
			return errors.Annotate(err, "new sub socket")
		}
		// Asynchronous dials keep retrying in the background, so peers may start in any order.
		for _, url := range r.SubscriberDialUrls {
			log.Logger.Infof("Connecting to MQ publisher URL: %s", url)
			if err := subSock.DialOptions(url, map[string]interface{}{mangos.OptionDialAsynch: true}); err != nil {
				subSock.Close()
				return errors.Annotatef(err, "dial %s", url)
			}
		}
		r.sockSub = subSock
	}
	return nil
}

func (r *MangosMqConnection) MqMessagePublish(channelName string, json string) error {
	if r.sockPub == nil {
		return errors.NotSupportedf("publishing without a listen url")
	}
	log.Logger.Debugf("MQ[%s] send: %s", channelName, json)
	if err := r.sockPub.Send([]byte(channelName + "|" + json)); err != nil {
		return errors.Annotatef(err, "publishing to %s", channelName)
	}
	return nil
}

func (r *MangosMqConnection) MqMessagePublishRetry(channelName string, json string) error {
	return publishRetry(r.Clock, r.MqMessagePublish, channelName, json)
}

func (r *MangosMqConnection) SetupMqTopicReceiver(channelName string, routingKey string) error {
	if r.sockSub == nil {
		return errors.NotSupportedf("subscribing without dial urls")
	}
	log.Logger.Debugf("MQ subscribe: %s", channelName)

	if err := r.sockSub.SetOption(mangos.OptionSubscribe, []byte(channelName+"|")); err != nil {
		return errors.Annotatef(err, "subscribe %s", channelName)
	}
	return nil
}

func (r *MangosMqConnection) RunMqTopicReceiver(channelName string, process func(messageBy []byte)) error {
	if r.sockSub == nil {
		return errors.NotSupportedf("receiving without dial urls")
	}
	r.handlers.Store(channelName, process)
	r.receiving.Do(func() {
		go r.receiveMqTopicMessages()
	})
	return nil
}

// receiveMqTopicMessages runs until the sub socket is closed. All channels share the
// socket, so messages are routed to their handler by the channel prefix.
func (r *MangosMqConnection) receiveMqTopicMessages() {
	for {
		msgBy, err := r.sockSub.Recv()
		if err != nil {
			if !errors.Is(err, mangos.ErrClosed) {
				log.Logger.Errorf("cannot receive: %s", err.Error())
			}
			return
		}

		channelName, body, ok := strings.Cut(string(msgBy), "|")
		if !ok {
			continue
		}
		if process, found := r.handlers.Load(channelName); found {
			log.Logger.Debugf("MQ[%s] recv: %s", channelName, body)
			process([]byte(body))
		}
	}
}
