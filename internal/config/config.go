package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	log "sw/ocpp/central/internal/logging"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const DefaultConfigPath = "../cfg/conf.yaml"

func LogCwd() {
	ex, err := os.Executable()
	if err != nil {
		return
	}
	log.Logger.Info("CWD: " + filepath.Dir(ex))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("services.csms_server.listen_address", "0.0.0.0")
	v.SetDefault("services.csms_server.listen_port", 8887)
	v.SetDefault("services.csms_server.path_prefix", "/ocpp/16/")
	v.SetDefault("services.csms_server.max_message_size", 8192)
	v.SetDefault("services.csms_server.heartbeat_interval", 60)
	v.SetDefault("services.csms_server.session.response_timeout_ms", 10000)
	v.SetDefault("services.csms_server.session.send_timeout_ms", 5000)
	v.SetDefault("services.csms_server.session.handler_timeout_ms", 30000)
	v.SetDefault("services.csms_server.session.ping_period_ms", 15000)
	v.SetDefault("services.csms_server.session.pong_wait_ms", 15000)
	v.SetDefault("services.csms_server.session.reply_queue_size", 16)
	v.SetDefault("services.csms_server.session.max_frames_per_second", 0)
	v.SetDefault("services.message_manager.store_type", "table")
	v.SetDefault("services.message_manager.table_name", "messages")
	v.SetDefault("services.device_manager.http_config.timeoutms", 15000)
	v.SetDefault("mq.type", "mangos_mq")
	v.SetDefault("db_config.type", "sqlite3")
}

// ReadConfig loads path, then a .env file if present, then CSMS_* environment
// overrides. A missing config file is not an error.
func ReadConfig(path string) (*Configuration, error) {
	LogCwd()
	if err := godotenv.Load(); err == nil {
		log.Logger.Info("Loaded .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CSMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Logger.Warn("No config file: ", err.Error())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Annotatef(err, "parsing %s", path)
	}
	return &config, nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (c SessionConfig) ResponseTimeout() time.Duration { return millis(c.ResponseTimeoutMs) }
func (c SessionConfig) SendTimeout() time.Duration     { return millis(c.SendTimeoutMs) }
func (c SessionConfig) HandlerTimeout() time.Duration  { return millis(c.HandlerTimeoutMs) }
func (c SessionConfig) PingPeriod() time.Duration      { return millis(c.PingPeriodMs) }
func (c SessionConfig) PongWait() time.Duration        { return millis(c.PongWaitMs) }

func (c HttpConfig) Timeout() time.Duration     { return millis(c.TimeoutMs) }
func (c HttpConfig) IdleTimeout() time.Duration { return millis(c.IdleTimeoutMs) }
