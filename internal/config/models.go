package config

type CacheConfig struct {
	HostPort string `mapstructure:"host_port"`
	Password string `mapstructure:"password"`
	DbId     int    `mapstructure:"db_id"`
}

type CsmsServerConfig struct {
	Debug              bool          `mapstructure:"debug"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	BasicAuth          bool          `mapstructure:"basic_auth"`
	StandaloneMode     bool          `mapstructure:"standalone_mode"`
	ListenAddress      string        `mapstructure:"listen_address"`
	ListenPort         int           `mapstructure:"listen_port"`
	PathPrefix         string        `mapstructure:"path_prefix"`
	RequireSubprotocol bool          `mapstructure:"require_subprotocol"`
	MaxMessageSize     int64         `mapstructure:"max_message_size"`
	HeartbeatInterval  int           `mapstructure:"heartbeat_interval"`
	Cache              CacheConfig   `mapstructure:"cache"`
	Session            SessionConfig `mapstructure:"session"`
	Api                HttpConfig    `mapstructure:"api"`
}

type SessionConfig struct {
	ResponseTimeoutMs  int     `mapstructure:"response_timeout_ms"`
	SendTimeoutMs      int     `mapstructure:"send_timeout_ms"`
	HandlerTimeoutMs   int     `mapstructure:"handler_timeout_ms"`
	PingPeriodMs       int     `mapstructure:"ping_period_ms"`
	PongWaitMs         int     `mapstructure:"pong_wait_ms"`
	ReplyQueueSize     int     `mapstructure:"reply_queue_size"`
	MaxFramesPerSecond float64 `mapstructure:"max_frames_per_second"`
}

type MessageManagerConfig struct {
	Debug              bool   `mapstructure:"debug"`
	StoreMessages      bool   `mapstructure:"store_messages"`
	StoreType          string `mapstructure:"store_type"`
	StorageAccountName string `mapstructure:"storage_account_name"`
	StorageAccountKey  string `mapstructure:"storage_account_key"`
	TableName          string `mapstructure:"table_name"`
}

type DeviceManagerConfig struct {
	Debug      bool       `mapstructure:"debug"`
	HttpConfig HttpConfig `mapstructure:"http_config"`
}

type Configuration struct {
	Schema   string `mapstructure:"schema"`
	Services struct {
		CsmsServer     CsmsServerConfig     `mapstructure:"csms_server"`
		MessageManager MessageManagerConfig `mapstructure:"message_manager"`
		DeviceManager  DeviceManagerConfig  `mapstructure:"device_manager"`
	} `mapstructure:"services"`
	Logging struct {
		AppInsightsInstrumentationKey string `mapstructure:"appinsights_instrumentation_key"`
	} `mapstructure:"logging"`
	Mq       MqConfig `mapstructure:"mq"`
	DbConfig DbConfig `mapstructure:"db_config"`
}

type DbConfig struct {
	DbType             string `mapstructure:"type"`
	DbConnectionString string `mapstructure:"connection_string"`
}

type HttpConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	ListenPort    int    `mapstructure:"listen_port"`
	HttpUser      string `mapstructure:"http_user"`
	HttpPassword  string `mapstructure:"http_password"`
	TimeoutMs     int    `mapstructure:"timeoutms"`
	IdleTimeoutMs int    `mapstructure:"idle_timeoutms"`
}

type MqConfig struct {
	Type     string `mapstructure:"type"`
	MangosMq struct {
		CsmsListenUrl   string `mapstructure:"csms_listen_url"`
		DeviceListenUrl string `mapstructure:"device_listen_url"`
	} `mapstructure:"mangos_mq"`
	RabbitMq struct {
		ServerUrl string `mapstructure:"server_url"`
	} `mapstructure:"rabbit_mq"`
	RedisMq CacheConfig `mapstructure:"redis_mq"`
}
