package mq

import (
	"sync"

	log "sw/ocpp/central/internal/logging"

	"github.com/go-redis/redis"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// RedisMqConnection uses redis PUBLISH/SUBSCRIBE. Channel names are used as is.
type RedisMqConnection struct {
	HostIp   string
	Password string
	DbId     int
	Clock    clock.Clock

	clientRedis *redis.Client
	mu          sync.Mutex
	receivers   map[string]*redis.PubSub
}

func (r *RedisMqConnection) Close() error {
	log.Logger.Info("Close redis MQ: ", r.HostIp)

	r.mu.Lock()
	for _, pubSub := range r.receivers {
		_ = pubSub.Close()
	}
	r.receivers = nil
	r.mu.Unlock()
	if r.clientRedis == nil {
		return nil
	}
	return r.clientRedis.Close()
}

func (r *RedisMqConnection) MqConnect() error {
	log.Logger.Infof("Connecting to redis MQ: %s DbId: %d", r.HostIp, r.DbId)

	client := redis.NewClient(&redis.Options{
		Addr:     r.HostIp,
		Password: r.Password,
		DB:       r.DbId,
	})

	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return errors.Annotatef(err, "connecting to redis %s", r.HostIp)
	}
	log.Logger.Info("Connected to redis...")
	r.clientRedis = client
	r.receivers = make(map[string]*redis.PubSub)
	return nil
}

func (r *RedisMqConnection) MqMessagePublish(channelName string, json string) error {
	log.Logger.Debugf("MQ[%s] send: %s", channelName, json)
	return r.clientRedis.Publish(channelName, json).Err()
}

func (r *RedisMqConnection) MqMessagePublishRetry(channelName string, json string) error {
	return publishRetry(r.Clock, r.MqMessagePublish, channelName, json)
}

func (r *RedisMqConnection) SetupMqTopicReceiver(channelName string, routingKey string) error {
	pubSub := r.clientRedis.Subscribe(channelName)
	// Wait for the subscription to be confirmed so no message published after
	// setup is missed.
	if _, err := pubSub.Receive(); err != nil {
		pubSub.Close()
		return errors.Annotatef(err, "subscribing to %s", channelName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[channelName] = pubSub
	return nil
}

func (r *RedisMqConnection) RunMqTopicReceiver(channelName string, process func(messageBy []byte)) error {
	r.mu.Lock()
	pubSub, ok := r.receivers[channelName]
	r.mu.Unlock()
	if !ok {
		return errors.NotFoundf("receiver for %s", channelName)
	}

	go func() {
		for msg := range pubSub.Channel() {
			log.Logger.Debugf("MQ[%s] recv: %s", channelName, msg.Payload)
			process([]byte(msg.Payload))
		}
	}()
	return nil
}
