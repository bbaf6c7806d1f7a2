package mq

import (
	log "sw/ocpp/central/internal/logging"
	mqmodels "sw/ocpp/central/internal/models/mq"
)

// ConnectionNotifier announces charge point connections of this node on Notify.
type ConnectionNotifier struct {
	bus      MqBus
	hostName string
}

func NewConnectionNotifier(bus MqBus, hostName string) *ConnectionNotifier {
	return &ConnectionNotifier{bus: bus, hostName: hostName}
}

func (n *ConnectionNotifier) ClientConnected(chargePointId string, remoteAddr string) {
	info := &mqmodels.ConnectionInfo{NetworkId: chargePointId, RemoteAddr: remoteAddr}
	if err := MqNotifyClientConnected(n.bus, n.hostName, info); err != nil {
		log.Logger.Errorf("%s : problem sending MQ notify connected %s", remoteAddr, err)
	}
}

func (n *ConnectionNotifier) ClientDisconnected(chargePointId string, remoteAddr string) {
	info := &mqmodels.ConnectionInfo{NetworkId: chargePointId, RemoteAddr: remoteAddr}
	if err := MqNotifyClientDisconnected(n.bus, n.hostName, info); err != nil {
		log.Logger.Errorf("%s : problem sending MQ notify disconnected %s", remoteAddr, err)
	}
}
