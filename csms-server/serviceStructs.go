package main

import (
	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/db"
	"sw/ocpp/central/internal/handler"
	"sw/ocpp/central/internal/metrics"
	mq "sw/ocpp/central/internal/mq"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type ServiceState struct {
	Config          *conf.Configuration
	HostName        string
	Cache           *redis.Client
	MqBus           mq.MqBus
	Db              *db.DB
	Transactions    handler.Transactions
	Metrics         *metrics.Collector
	Gatherer        *prometheus.Registry
	AppInsightsHook logrus.Hook
}
