// Package journal stores the OCPP frames published by the csms-server nodes.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"sw/ocpp/central/internal/helpers"
	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"
	"sw/ocpp/central/internal/mq"
	"sw/ocpp/central/internal/ocpp"

	"github.com/juju/errors"
)

const (
	StoreType_Table = "table"
	StoreType_Sql   = "sql"
)

const storeTimeout = 10 * time.Second

// Entry is one stored frame.
type Entry struct {
	ChargePointId string
	ServerNode    string
	Direction     string
	MessageTypeId int
	UniqueId      string
	Action        string
	Body          string
	Time          time.Time
}

// Store persists entries. Adding an entry that is already stored returns an
// errors.AlreadyExists error.
type Store interface {
	Add(ctx context.Context, entry Entry) error
}

// EntryFromEnvelope extracts the frame carried by a MessagesIn envelope. ok is false
// for envelopes that carry something else, such as command replies.
func EntryFromEnvelope(envelope *mqmodels.MqMessageEnvelope) (entry Entry, ok bool, err error) {
	if envelope.Kind != mqmodels.EnvelopeKind_Frame {
		return Entry{}, false, nil
	}
	var frame mqmodels.MqOcppFrame
	if err := json.Unmarshal(envelope.Body, &frame); err != nil {
		return Entry{}, true, errors.Annotatef(err, "frame from %s", envelope.ServerNode)
	}
	if envelope.Client == "" {
		return Entry{}, true, errors.NotValidf("frame from %s without charge point", envelope.ServerNode)
	}
	return Entry{
		ChargePointId: envelope.Client,
		ServerNode:    envelope.ServerNode,
		Direction:     frame.Direction,
		MessageTypeId: frame.MessageTypeId,
		UniqueId:      frame.UniqueId,
		Action:        frame.Action,
		Body:          frame.Message,
		Time:          frameTime(frame.Time, envelope.MessageTime),
	}, true, nil
}

func frameTime(values ...string) time.Time {
	for _, value := range values {
		if t, err := time.Parse(ocpp.DateTimeFormat, value); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t.UTC()
		}
	}
	return helpers.Now().UTC()
}

// Journal records frame envelopes into a Store.
type Journal struct {
	store Store
}

func New(store Store) *Journal {
	return &Journal{store: store}
}

// Start records every frame published on MessagesIn.
func (j *Journal) Start(bus mq.MqBus) error {
	return mq.MqSubscribe(bus, mq.MqChannelName_MessagesIn, "", j.Record)
}

func (j *Journal) Record(messageBy []byte) {
	envelope, err := mq.ParseMessageEnvelope(messageBy)
	if err != nil {
		log.Logger.Errorf("MQ Received Message, unmarshall error: %s", err.Error())
		return
	}
	entry, ok, err := EntryFromEnvelope(envelope)
	if !ok {
		return
	}
	if err != nil {
		log.Logger.Errorf("Cannot record message: %s", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	log.Logger.Debugf("Add message %s %s %s", entry.ChargePointId, entry.Direction, entry.UniqueId)
	err = j.store.Add(ctx, entry)
	switch {
	case errors.Is(err, errors.AlreadyExists):
		log.Logger.Debugf("Message already stored: %s", err.Error())
	case err != nil:
		log.Logger.Errorf("Error: %s", err.Error())
	}
}
