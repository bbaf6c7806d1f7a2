package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sw/ocpp/central/internal/api"
	"sw/ocpp/central/internal/auth"
	redisManage "sw/ocpp/central/internal/cache"
	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/db"
	"sw/ocpp/central/internal/dispatch"
	"sw/ocpp/central/internal/endpoint"
	"sw/ocpp/central/internal/handler"
	helpers "sw/ocpp/central/internal/helpers"
	httplistener "sw/ocpp/central/internal/http"
	"sw/ocpp/central/internal/logging"
	"sw/ocpp/central/internal/metrics"
	mq "sw/ocpp/central/internal/mq"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/service"
	"sw/ocpp/central/internal/session"
	"sw/ocpp/central/internal/telemetry"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	log        = logging.Logger
	configPath = pflag.StringP("config", "c", conf.DefaultConfigPath, "path of the yaml configuration")
)

func initialise(config *conf.Configuration) (*ServiceState, error) {
	state := &ServiceState{Config: config, HostName: helpers.GetHostName()}
	serverConfig := config.Services.CsmsServer

	telemetryHook, err := telemetry.NewTelemetryClient(config.Logging.AppInsightsInstrumentationKey, state.HostName)
	if err != nil {
		return state, errors.Annotate(err, "telemetry")
	}
	if telemetryHook != nil {
		state.AppInsightsHook = telemetryHook
		log.AddHook(telemetryHook)
	}

	state.Metrics = metrics.NewCollector()
	state.Gatherer, err = metrics.NewRegistry(state.Metrics)
	if err != nil {
		return state, errors.Annotate(err, "metrics")
	}

	// Setup auth cache
	cacheConfig := serverConfig.Cache
	if len(cacheConfig.HostPort) > 0 {
		state.Cache, err = redisManage.ConnectRedis(cacheConfig.HostPort, cacheConfig.Password, cacheConfig.DbId)
		if err != nil {
			return state, err
		}
	} else if serverConfig.EnableAuth || serverConfig.BasicAuth {
		return state, errors.NotValidf("charge point auth without services.csms_server.cache")
	} else {
		log.Warn("Not connecting to redis auth cache")
	}

	if dbConfig := config.DbConfig; dbConfig.DbConnectionString != "" {
		state.Db, err = db.ConnectDb(dbConfig.DbType, dbConfig.DbConnectionString)
		if err != nil {
			return state, err
		}
		if err = db.CreateTables(state.Db); err != nil {
			return state, err
		}
		state.Transactions = db.NewSqlTransactions(state.Db)
	} else {
		log.Warn("No db_config.connection_string, transactions are kept in memory")
		state.Transactions = handler.NewMemoryTransactions()
	}

	if serverConfig.StandaloneMode {
		return state, nil
	}
	state.MqBus, err = mq.SetupMqConnection(config.Mq, config.Mq.MangosMq.CsmsListenUrl, config.Mq.MangosMq.DeviceListenUrl)
	if err != nil {
		return state, err
	}
	if err = state.MqBus.MqConnect(); err != nil {
		return state, err
	}
	return state, nil
}

func run(ctx context.Context, state *ServiceState) error {
	config := state.Config.Services.CsmsServer
	registry := session.NewRegistry()
	codec := ocpp.NewCodec(nil)
	local := dispatch.NewLocal(registry, codec)

	var authenticator auth.Authenticator = auth.AllowAll{}
	if state.Cache != nil {
		authenticator = auth.NewRedisAuthenticator(state.Cache)
	}
	params := endpoint.Params{
		Config:        config,
		Authenticator: authenticator,
		Registry:      registry,
		Codec:         codec,
		Handler:       handler.NewCoreHandler(config.HeartbeatInterval, state.Transactions),
		Metrics:       state.Metrics,
		HostName:      state.HostName,
	}

	g, ctx := errgroup.WithContext(ctx)
	if state.MqBus != nil {
		forwarder := mq.NewFrameForwarder(state.MqBus, state.HostName, 0)
		params.Observer = forwarder
		params.Listener = mq.NewConnectionNotifier(state.MqBus, state.HostName)
		g.Go(func() error { return forwarder.Run(ctx) })

		if err := dispatch.NewCommandReceiver(state.MqBus, state.HostName, local).Start(); err != nil {
			return err
		}
		if err := mq.MqNotifyNodeConnected(state.MqBus, state.HostName); err != nil {
			log.Errorf("Problem sending MQ notify node connected: %s", err)
		}
	}

	listenNetPort := fmt.Sprintf("%s:%d", config.ListenAddress, config.ListenPort)
	log.Info("OCPP listening on: ", listenNetPort, config.PathPrefix)
	ocppServer, err := httplistener.ListenAndServeWithClose(listenNetPort, endpoint.NewServer(params), 0)
	if err != nil {
		return err
	}
	servers := []*httplistener.Server{ocppServer}

	if config.Api.ListenPort > 0 {
		apiNetPort := fmt.Sprintf("%s:%d", config.Api.ListenAddress, config.Api.ListenPort)
		log.Info("REST API listening on: ", apiNetPort)
		apiServer, err := httplistener.ListenAndServeWithClose(apiNetPort, api.NewRouter(local, state.Gatherer, config.Api), config.Api.IdleTimeout())
		if err != nil {
			ocppServer.Close()
			return err
		}
		servers = append(servers, apiServer)
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Debug("Service closing...")
		if state.MqBus != nil {
			if err := mq.MqNotifyNodeDisconnected(state.MqBus, state.HostName); err != nil {
				log.Errorf("Problem sending MQ notify node disconnected: %s", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warnf("HTTP shutdown: %s", err)
			}
		}
		// Websocket connections are hijacked, so Shutdown leaves their sessions running.
		registry.CloseAll()
		return nil
	})
	return g.Wait()
}

func dispose(state *ServiceState) {
	if state.MqBus != nil {
		log.Debug("Close MQ")
		state.MqBus.Close()
	}
	if state.Cache != nil {
		log.Debug("Close cache")
		state.Cache.Close()
	}
	if state.Db != nil {
		log.Debug("Close db")
		state.Db.Close()
	}
}

func main() {
	pflag.Parse()

	logging.LoggingSetup(true, "csms-server") // start with debug enabled until overridden in config later
	log.Infof("--- CSMS OCPP Server - v%s (%s %s) ---", service.Version, service.CommitHash, service.BuildTimestamp)

	config, err := conf.ReadConfig(*configPath)
	if err != nil {
		log.Errorf("Error in configuration: %s", err.Error())
		os.Exit(1)
	}
	logging.LoggingSetup(config.Services.CsmsServer.Debug, "csms-server")
	log.Debugf("standalone_mode: %t", config.Services.CsmsServer.StandaloneMode)
	log.Debugf("enable_auth: %t", config.Services.CsmsServer.EnableAuth)

	state, err := initialise(config)
	if err != nil {
		log.Errorf("Error in initialisation: %s", err.Error())
		dispose(state)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, state)
	stop()
	dispose(state)
	if err != nil {
		log.Errorf("Error: %s", err.Error())
		os.Exit(1)
	}
}
