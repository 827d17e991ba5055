package config

import (
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/weiawesome/wes-io-chat/pkg/config"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	MessageStore MessageStoreConfig `mapstructure:"message_store"`
	Cassandra    CassandraConfig
	Redis        RedisConfig
	Cache        CacheConfig
	PubSub       pubsub.Config `mapstructure:"pubsub"`
	Push         PushConfig
	Chat         ChatConfig
	WebSocket    WebSocketConfig `mapstructure:"websocket"`
	Metrics      MetricsConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// MessageStoreConfig selects where messages live: "gorm" (same database as
// rooms) or "cassandra".
type MessageStoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type CassandraConfig struct {
	Hosts          []string      `mapstructure:"hosts"`
	Keyspace       string        `mapstructure:"keyspace"`
	Consistency    string        `mapstructure:"consistency"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type PushConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	URL         string        `mapstructure:"url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	MaxMessageLength    int     `mapstructure:"max_message_length"`
	DefaultMessageLimit int     `mapstructure:"default_message_limit"`
	MaxMessageLimit     int     `mapstructure:"max_message_limit"`
	PublicRoomLimit     int     `mapstructure:"public_room_limit"`
	DeepLinkScheme      string  `mapstructure:"deep_link_scheme"`
	SendRatePerSec      float64 `mapstructure:"send_rate_per_sec"`
	SendBurst           int     `mapstructure:"send_burst"`
}

type WebSocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	// A local .env is optional; real environment variables win.
	_ = godotenv.Load()

	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chat_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("message_store.driver", "gorm")
	v.SetDefault("cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("cassandra.keyspace", "chat")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.connect_timeout", "10s")
	v.SetDefault("cassandra.timeout", "5s")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.prefix", "chat:room")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "wes-io-chat")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("push.enabled", true)
	v.SetDefault("push.url", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.timeout", "10s")
	v.SetDefault("chat.max_message_length", 2000)
	v.SetDefault("chat.default_message_limit", 50)
	v.SetDefault("chat.max_message_limit", 100)
	v.SetDefault("chat.public_room_limit", 20)
	v.SetDefault("chat.deep_link_scheme", "wesiochat")
	v.SetDefault("chat.send_rate_per_sec", 5)
	v.SetDefault("chat.send_burst", 10)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_interval", "54s")
	v.SetDefault("websocket.max_message_size", 512)
	v.SetDefault("websocket.send_buffer", 64)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":           "PORT",
		"database.driver":       "DB_DRIVER",
		"database.host":         "DB_HOST",
		"database.port":         "DB_PORT",
		"database.user":         "DB_USER",
		"database.password":     "DB_PASSWORD",
		"database.dbname":       "DB_NAME",
		"database.sslmode":      "DB_SSLMODE",
		"database.file_path":    "DB_FILE_PATH",
		"message_store.driver":  "MESSAGE_STORE",
		"cassandra.keyspace":    "CASSANDRA_KEYSPACE",
		"redis.address":         "REDIS_ADDRESS",
		"redis.password":        "REDIS_PASSWORD",
		"pubsub.driver":         "PUBSUB_DRIVER",
		"pubsub.redis.address":  "REDIS_ADDRESS",
		"pubsub.redis.password": "REDIS_PASSWORD",
		"pubsub.kafka.brokers":  "KAFKA_BROKERS",
		"push.url":              "PUSH_URL",
		"push.access_token":     "PUSH_ACCESS_TOKEN",
		"log.level":             "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if origins := pkgconfig.GetEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = splitCSV(origins)
	}

	// CASSANDRA_HOSTS: comma-separated, e.g. "cassandra:9042" or "host1:9042,host2:9042"
	if hosts := pkgconfig.GetEnv("CASSANDRA_HOSTS", ""); hosts != "" {
		cfg.Cassandra.Hosts = splitCSV(hosts)
	}

	return &cfg, nil
}
