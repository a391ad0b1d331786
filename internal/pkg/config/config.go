package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Mqtt      MqttConfig      `envPrefix:"MQTT_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Search    SearchConfig    `envPrefix:"SEARCH_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Pipeline  PipelineConfig  `envPrefix:"PIPELINE_"`
	Retention RetentionConfig `envPrefix:"RETENTION_"`
	LogLevel  string          `env:"LOG_LEVEL" envDefault:"INFO"`
}

type MqttConfig struct {
	Broker   string `env:"BROKER" envDefault:"tcp://localhost:1883"`
	ClientID string `env:"CLIENT_ID" envDefault:"smartbuilding-bridge"`
	Username string `env:"USER"`
	Password string `env:"PASS"`
	Topic    string `env:"TOPIC" envDefault:"sensors/data"`
	QoS      byte   `env:"QOS" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers        []string      `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic          string        `env:"TOPIC" envDefault:"raw-data"`
	GroupID        string        `env:"GROUP_ID" envDefault:"iot-group"`
	PollTimeout    time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
	CommitInterval time.Duration `env:"COMMIT_INTERVAL" envDefault:"1s"`
}

type DatabaseConfig struct {
	URL              string `env:"URL,required"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER" envDefault:"./migrations"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type SearchConfig struct {
	Addresses []string `env:"ADDRESSES" envDefault:"http://localhost:9200" envSeparator:","`
	Username  string   `env:"USERNAME"`
	Password  string   `env:"PASSWORD"`
	Index     string   `env:"INDEX" envDefault:"sensor-readings"`
}

type ServerConfig struct {
	Addr         string        `env:"ADDR" envDefault:"0.0.0.0:8000"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type PipelineConfig struct {
	// LatestTTL bounds how long a device is reported online without a new reading.
	LatestTTL time.Duration `env:"LATEST_TTL" envDefault:"60s"`
}

type RetentionConfig struct {
	Days     int    `env:"DAYS" envDefault:"30"`
	Schedule string `env:"SCHEDULE" envDefault:"0 3 * * *"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads the configuration from the given key/value pairs instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environment})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
