package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Env                    string `mapstructure:"env"`
	Port                   int    `mapstructure:"port"`
	InstanceID             string `mapstructure:"instance_id"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	RateLimitPerMin        int    `mapstructure:"rate_limit_per_min"`
}

func (a AppConfig) PortString() string { return fmt.Sprintf("%d", a.Port) }

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	BadgerPath string `mapstructure:"badger_path"`
}

type MongoConfig struct {
	URI                   string `mapstructure:"uri"`
	DB                    string `mapstructure:"db"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

type RedisConfig struct {
	Addr               string `mapstructure:"addr"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db"`
	Prefix             string `mapstructure:"prefix"`
	PresenceTTLSeconds int    `mapstructure:"presence_ttl_seconds"`
	SendLimit          int    `mapstructure:"send_limit"`
	SendWindowSeconds  int    `mapstructure:"send_window_seconds"`
}

type EventsConfig struct {
	Driver string `mapstructure:"driver"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
	Relay   bool     `mapstructure:"relay"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type JWTConfig struct {
	Alg           string `mapstructure:"alg"`
	PublicKeyPath string `mapstructure:"public_key_path"`
	HSSecret      string `mapstructure:"hs_secret"`
}

type MediaConfig struct {
	Driver                string `mapstructure:"driver"`
	Bucket                string `mapstructure:"bucket"`
	Region                string `mapstructure:"region"`
	Endpoint              string `mapstructure:"endpoint"`
	PathStyle             bool   `mapstructure:"path_style"`
	PublicBaseURL         string `mapstructure:"public_base_url"`
	MaxBytes              int64  `mapstructure:"max_bytes"`
	ThumbnailWidth        int    `mapstructure:"thumbnail_width"`
	UploadTimeoutSeconds  int    `mapstructure:"upload_timeout_seconds"`
	BreakerFailures       uint32 `mapstructure:"breaker_failures"`
	BreakerTimeoutSeconds int    `mapstructure:"breaker_timeout_seconds"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
}

type ConsulConfig struct {
	Addr        string `mapstructure:"addr"`
	ServiceName string `mapstructure:"service_name"`
	Address     string `mapstructure:"address"`
}

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Events EventsConfig `mapstructure:"events"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	NATS   NATSConfig   `mapstructure:"nats"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Media  MediaConfig  `mapstructure:"media"`
	WS     WSConfig     `mapstructure:"ws"`
	Consul ConsulConfig `mapstructure:"consul"`

	// derived
	PingInterval    time.Duration `mapstructure:"-"`
	WriteDeadline   time.Duration `mapstructure:"-"`
	PongWait        time.Duration `mapstructure:"-"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
	UploadTimeout   time.Duration `mapstructure:"-"`
	PresenceTTL     time.Duration `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8084)
	v.SetDefault("app.instance_id", "")
	v.SetDefault("app.shutdown_timeout_seconds", 10)
	v.SetDefault("app.rate_limit_per_min", 300)

	v.SetDefault("log.level", "info")

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.badger_path", "data/badger")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.db", "chat_db")
	v.SetDefault("mongo.connect_timeout_seconds", 30)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "dm")
	v.SetDefault("redis.presence_ttl_seconds", 120)
	v.SetDefault("redis.send_limit", 60)
	v.SetDefault("redis.send_window_seconds", 60)

	v.SetDefault("events.driver", "none")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "dm.events")
	v.SetDefault("kafka.group_id", "")
	v.SetDefault("kafka.relay", false)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "dm")

	v.SetDefault("jwt.alg", "HS256")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("jwt.hs_secret", "")

	v.SetDefault("media.driver", "none")
	v.SetDefault("media.bucket", "")
	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("media.endpoint", "")
	v.SetDefault("media.path_style", false)
	v.SetDefault("media.public_base_url", "")
	v.SetDefault("media.max_bytes", 10<<20)
	v.SetDefault("media.thumbnail_width", 320)
	v.SetDefault("media.upload_timeout_seconds", 30)
	v.SetDefault("media.breaker_failures", 5)
	v.SetDefault("media.breaker_timeout_seconds", 30)

	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 65536)
	v.SetDefault("ws.send_buffer", 256)

	v.SetDefault("consul.addr", "")
	v.SetDefault("consul.service_name", "dm-service")
	v.SetDefault("consul.address", "")
}

// Load reads .env, then the YAML file at path (if it exists), then environment variables
// such as MONGO_URI or KAFKA_BROKERS, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.derive()

	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) derive() {
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.PongWait = c.PingInterval * 2
	c.ShutdownTimeout = time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
	c.UploadTimeout = time.Duration(c.Media.UploadTimeoutSeconds) * time.Second
	c.PresenceTTL = time.Duration(c.Redis.PresenceTTLSeconds) * time.Second
	c.JWT.Alg = strings.ToUpper(c.JWT.Alg)
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	c.Events.Driver = strings.ToLower(c.Events.Driver)
	c.Media.Driver = strings.ToLower(c.Media.Driver)
}

func (c *Config) IsDevelopment() bool { return c.App.Env == "development" }

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}
	if cfg.WS.SendBuffer <= 0 {
		return errors.New("ws.send_buffer must be positive")
	}
	if cfg.WS.PingIntervalSeconds <= 0 {
		return errors.New("ws.ping_interval_seconds must be positive")
	}
	// presence entries are refreshed once per ping interval
	if cfg.Redis.Addr != "" && cfg.PresenceTTL <= cfg.PingInterval {
		return errors.New("redis.presence_ttl_seconds must exceed ws.ping_interval_seconds")
	}

	switch cfg.Store.Driver {
	case "mongo":
		if cfg.Mongo.URI == "" {
			return errors.New("mongo.uri missing")
		}
		if cfg.Mongo.DB == "" {
			return errors.New("mongo.db missing")
		}
	case "badger":
	default:
		return fmt.Errorf("invalid store.driver %q (use mongo or badger)", cfg.Store.Driver)
	}

	switch cfg.Events.Driver {
	case "none":
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers missing")
		}
		if cfg.Kafka.Topic == "" {
			return errors.New("kafka.topic missing")
		}
	case "nats":
		if cfg.NATS.URL == "" {
			return errors.New("nats.url missing")
		}
	default:
		return fmt.Errorf("invalid events.driver %q (use none, kafka or nats)", cfg.Events.Driver)
	}
	if cfg.Kafka.Relay && cfg.Events.Driver != "kafka" {
		return errors.New("kafka.relay requires events.driver=kafka")
	}

	switch cfg.Media.Driver {
	case "none":
	case "s3":
		if cfg.Media.Bucket == "" {
			return errors.New("media.bucket missing")
		}
	default:
		return fmt.Errorf("invalid media.driver %q (use none or s3)", cfg.Media.Driver)
	}

	switch cfg.JWT.Alg {
	case "RS256":
		if cfg.JWT.PublicKeyPath == "" {
			return errors.New("jwt.public_key_path required for RS256")
		}
	case "HS256":
		if cfg.JWT.HSSecret == "" {
			return errors.New("jwt.hs_secret required for HS256")
		}
	default:
		return errors.New("invalid jwt.alg (use RS256 or HS256)")
	}

	return nil
}
