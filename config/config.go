package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

const (
	StorageDriverMongo    = "mongo"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Database    DatabaseConfig    `yaml:"database"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	ParcelTrack ParcelTrackConfig `yaml:"parceltrack"`
	Log         LogConfig         `yaml:"log"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "mongo" | "postgres"
}

type MongoConfig struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ParcelUpdatedTopicName string `yaml:"parcel_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ParcelTrackConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	ParcelCacheTTLSeconds   int `yaml:"parcel_cache_ttl_seconds"`
	LocationCacheTTLSeconds int `yaml:"location_cache_ttl_seconds"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	NotifierHTTPAddr              string  `yaml:"notifier_http_addr"`
	NotifierNearbyRadiusMeters    float64 `yaml:"notifier_nearby_radius_meters"`
	NotifierNearbyCooldownSeconds int     `yaml:"notifier_nearby_cooldown_seconds"`
	NotifierDefaultSpeedMps       float64 `yaml:"notifier_default_speed_mps"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// LoadConfig reads the YAML file and applies the MONGO_URL / MONGO_DB_NAME
// environment overrides on top of it.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if v := os.Getenv("MONGO_URL"); v != "" {
		config.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		config.Mongo.Name = v
	}

	return &config, nil
}

func (c *Config) PostgresConnString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}
