package main

import (
	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/dispatch"
	mq "sw/ocpp/central/internal/mq"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type ServiceState struct {
	Config          *conf.Configuration
	HostName        string
	MqBus           mq.MqBus
	Dispatcher      *dispatch.MqDispatcher
	Gatherer        *prometheus.Registry
	AppInsightsHook logrus.Hook
}
