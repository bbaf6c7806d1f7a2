package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sw/ocpp/central/internal/api"
	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/dispatch"
	helpers "sw/ocpp/central/internal/helpers"
	httplistener "sw/ocpp/central/internal/http"
	"sw/ocpp/central/internal/logging"
	"sw/ocpp/central/internal/metrics"
	mq "sw/ocpp/central/internal/mq"
	"sw/ocpp/central/internal/service"
	"sw/ocpp/central/internal/telemetry"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
)

var (
	log        = logging.Logger
	configPath = pflag.StringP("config", "c", conf.DefaultConfigPath, "path of the yaml configuration")
)

func initialise(config *conf.Configuration) (*ServiceState, error) {
	state := &ServiceState{Config: config, HostName: helpers.GetHostName()}

	telemetryHook, err := telemetry.NewTelemetryClient(config.Logging.AppInsightsInstrumentationKey, state.HostName)
	if err != nil {
		return state, errors.Annotate(err, "telemetry")
	}
	if telemetryHook != nil {
		state.AppInsightsHook = telemetryHook
		log.AddHook(telemetryHook)
	}

	state.Gatherer, err = metrics.NewRegistry(nil)
	if err != nil {
		return state, errors.Annotate(err, "metrics")
	}

	state.MqBus, err = mq.SetupMqConnection(config.Mq, config.Mq.MangosMq.DeviceListenUrl, config.Mq.MangosMq.CsmsListenUrl)
	if err != nil {
		return state, err
	}
	if err = state.MqBus.MqConnect(); err != nil {
		return state, err
	}

	httpConfig := config.Services.DeviceManager.HttpConfig
	state.Dispatcher = dispatch.NewMqDispatcher(state.MqBus, state.HostName, nil, httpConfig.Timeout(), nil)
	if err = state.Dispatcher.Start(); err != nil {
		return state, err
	}
	return state, nil
}

func setupRestApi(state *ServiceState, config conf.HttpConfig) (*httplistener.Server, error) {
	log.Info("Starting REST API Server")
	listenNetPort := fmt.Sprintf("%s:%d", config.ListenAddress, config.ListenPort)
	log.Info("REST API listening on: ", listenNetPort)

	srv, err := httplistener.ListenAndServeWithClose(listenNetPort, api.NewRouter(state.Dispatcher, state.Gatherer, config), config.IdleTimeout())
	if err != nil {
		log.Error("Failed to start REST API server")
		return nil, err
	}
	log.Info("REST server started")
	return srv, nil
}

func dispose(state *ServiceState) {
	if state.MqBus != nil {
		log.Debug("Close MqChannel")
		state.MqBus.Close()
	}
}

func main() {
	pflag.Parse()

	logging.LoggingSetup(true, "device-manager") // start with debug enabled until overridden in config later
	log.Infof("--- OCPP Device Manager - v%s (%s %s) ---", service.Version, service.CommitHash, service.BuildTimestamp)

	config, err := conf.ReadConfig(*configPath)
	if err != nil {
		log.Errorf("Error in configuration: %s", err.Error())
		os.Exit(1)
	}
	logging.LoggingSetup(config.Services.DeviceManager.Debug, "device-manager")

	state, err := initialise(config)
	if err != nil {
		log.Errorf("Error in initialisation: %s", err.Error())
		dispose(state)
		os.Exit(1)
	}

	srv, err := setupRestApi(state, config.Services.DeviceManager.HttpConfig)
	if err != nil {
		log.Errorf("Error: %s", err.Error())
		dispose(state)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	log.Debug("Service closing...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Failed to stop REST server: %s", err)
	}
	cancel()
	dispose(state)
}
