package mq

import (
	"sync"

	log "sw/ocpp/central/internal/logging"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/streadway/amqp"
)

// RabbitMqConnection maps every channel to a fanout exchange. Each receiver binds its
// own exclusive queue, so all subscribers see every message.
type RabbitMqConnection struct {
	AmqpServerURL string
	Clock         clock.Clock

	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	exchanges map[string]bool
	queues    map[string]string
}

func (r *RabbitMqConnection) Close() error {
	log.Logger.Info("Close RabbitMQ: ", r.AmqpServerURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	_ = r.channel.Close()
	return r.conn.Close()
}

func (r *RabbitMqConnection) MqConnect() error {
	log.Logger.Infof("Connect to RabbitMQ: %s", r.AmqpServerURL)

	connectRabbitMQ, err := amqp.Dial(r.AmqpServerURL)
	if err != nil {
		return errors.Annotatef(err, "connecting to RabbitMQ %s", r.AmqpServerURL)
	}

	channelRabbitMQ, err := connectRabbitMQ.Channel()
	if err != nil {
		connectRabbitMQ.Close()
		return errors.Annotate(err, "opening RabbitMQ channel")
	}

	log.Logger.Debug("Connected to RabbitMQ")
	r.mu.Lock()
	r.conn = connectRabbitMQ
	r.channel = channelRabbitMQ
	r.exchanges = make(map[string]bool)
	r.queues = make(map[string]string)
	r.mu.Unlock()
	return nil
}

// declareExchange must be called with r.mu held.
func (r *RabbitMqConnection) declareExchange(channelName string) error {
	if r.exchanges[channelName] {
		return nil
	}
	err := r.channel.ExchangeDeclare(
		channelName, // name
		"fanout",    // type
		false,       // durable
		false,       // auto-deleted
		false,       // internal
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return errors.Annotatef(err, "MQ[%s] ExchangeDeclare", channelName)
	}
	r.exchanges[channelName] = true
	return nil
}

func (r *RabbitMqConnection) SetupMqTopicReceiver(channelName string, routingKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil {
		return errors.New("RabbitMQ not connected")
	}
	if err := r.declareExchange(channelName); err != nil {
		return err
	}

	q, err := r.channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return errors.Annotatef(err, "MQ[%s] QueueDeclare", channelName)
	}
	log.Logger.Debugf("MQ[%s] init queue=%s, routingKey=%s", channelName, q.Name, routingKey)

	if err := r.channel.QueueBind(q.Name, routingKey, channelName, false, nil); err != nil {
		return errors.Annotatef(err, "MQ[%s] QueueBind", channelName)
	}
	r.queues[channelName] = q.Name
	return nil
}

func (r *RabbitMqConnection) RunMqTopicReceiver(channelName string, process func(messageBy []byte)) error {
	r.mu.Lock()
	queueName, ok := r.queues[channelName]
	var messages <-chan amqp.Delivery
	var err error
	if ok {
		messages, err = r.channel.Consume(
			queueName, // queue name
			"",        // consumer
			true,      // auto-ack
			true,      // exclusive
			false,     // no local
			false,     // no wait
			nil,       // arguments
		)
	}
	r.mu.Unlock()
	if !ok {
		return errors.NotFoundf("receiver for %s", channelName)
	}
	if err != nil {
		return errors.Annotatef(err, "MQ[%s] Consume", channelName)
	}

	go func() {
		for message := range messages {
			log.Logger.Debugf("MQ[%s] recv: %s", channelName, message.Body)
			process(message.Body)
		}
		log.Logger.Infof("MQ[%s] consumer stopped", channelName)
	}()
	return nil
}

func (r *RabbitMqConnection) MqMessagePublish(channelName string, json string) error {
	message := amqp.Publishing{
		ContentType: "application/json",
		Body:        []byte(json),
	}

	log.Logger.Debugf("MQ[%s] send: %s", channelName, json)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil {
		return errors.New("RabbitMQ not connected")
	}
	if err := r.declareExchange(channelName); err != nil {
		return err
	}
	return r.channel.Publish(
		channelName, // exchange
		"",          // routing key
		false,       // mandatory
		false,       // immediate
		message,     // message to publish
	)
}

func (r *RabbitMqConnection) MqMessagePublishRetry(channelName string, json string) error {
	return publishRetry(r.Clock, r.MqMessagePublish, channelName, json)
}
