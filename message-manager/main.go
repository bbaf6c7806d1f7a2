package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/db"
	helpers "sw/ocpp/central/internal/helpers"
	"sw/ocpp/central/internal/journal"
	"sw/ocpp/central/internal/logging"
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

type ServiceState struct {
	Config   *conf.Configuration
	HostName string
	MqBus    mq.MqBus
	Db       *db.DB
}

func openStore(ctx context.Context, state *ServiceState) (journal.Store, error) {
	config := state.Config.Services.MessageManager
	switch config.StoreType {
	case journal.StoreType_Sql:
		var err error
		dbConfig := state.Config.DbConfig
		state.Db, err = db.ConnectDb(dbConfig.DbType, dbConfig.DbConnectionString)
		if err != nil {
			return nil, err
		}
		if err = db.CreateTables(state.Db); err != nil {
			return nil, err
		}
		return journal.NewSqlStore(state.Db), nil
	case journal.StoreType_Table:
		tableClient, err := journal.GetTableClient(config.TableName, config.StorageAccountName, config.StorageAccountKey)
		if err != nil {
			return nil, err
		}
		if err = journal.CreateTable(ctx, tableClient); err != nil {
			return nil, err
		}
		return journal.NewTableStore(tableClient), nil
	}
	return nil, errors.NotValidf("store_type %q", config.StoreType)
}

func initialise(ctx context.Context, config *conf.Configuration) (*ServiceState, error) {
	state := &ServiceState{Config: config, HostName: helpers.GetHostName()}

	telemetryHook, err := telemetry.NewTelemetryClient(config.Logging.AppInsightsInstrumentationKey, state.HostName)
	if err != nil {
		return state, errors.Annotate(err, "telemetry")
	}
	if telemetryHook != nil {
		log.AddHook(telemetryHook)
	}

	if !config.Services.MessageManager.StoreMessages {
		log.Warn("Not storing messages")
		return state, nil
	}

	store, err := openStore(ctx, state)
	if err != nil {
		return state, err
	}

	state.MqBus, err = mq.SetupMqConnection(config.Mq, "", config.Mq.MangosMq.CsmsListenUrl)
	if err != nil {
		return state, err
	}
	if err = state.MqBus.MqConnect(); err != nil {
		return state, err
	}
	if err = journal.New(store).Start(state.MqBus); err != nil {
		return state, err
	}
	return state, nil
}

func dispose(state *ServiceState) {
	if state.MqBus != nil {
		log.Debug("Close MqChannel")
		state.MqBus.Close()
	}
	if state.Db != nil {
		log.Debug("Close db")
		state.Db.Close()
	}
}

func main() {
	pflag.Parse()

	logging.LoggingSetup(true, "messageManager") // start with debug enabled until overridden in config later
	log.Infof("--- OCPP Message Manager - v%s (%s %s) ---", service.Version, service.CommitHash, service.BuildTimestamp)

	config, err := conf.ReadConfig(*configPath)
	if err != nil {
		log.Errorf("Error in configuration: %s", err.Error())
		os.Exit(1)
	}
	logging.LoggingSetup(config.Services.MessageManager.Debug, "messageManager")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := initialise(ctx, config)
	if err != nil {
		log.Errorf("Error in initialisation: %s", err.Error())
		dispose(state)
		stop()
		os.Exit(1)
	}

	log.Debug("block...")
	<-ctx.Done()
	log.Debug("Service closing...")
	dispose(state)
}
