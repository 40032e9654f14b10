package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	Dsn          string `env:"DSN" envDefault:"postgres://localhost:5432/civic"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`
	JwtSecret    string `env:"JWT_SECRET"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddress  string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CacheBackend  string `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheSize     int    `env:"CACHE_SIZE" envDefault:"4096"`
	LockBackend   string `env:"LOCK_BACKEND" envDefault:"local"`

	PubSubProjectID       string `env:"PUBSUB_PROJECT_ID"`
	PubSubTopic           string `env:"PUBSUB_TOPIC"`
	PubSubCredentialsJSON string `env:"PUBSUB_CREDENTIALS_JSON"`
	RedisFanout           bool   `env:"REDIS_FANOUT" envDefault:"false"`
	FanoutQueueSize       int    `env:"FANOUT_QUEUE_SIZE" envDefault:"256"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	DuplicateRadiusMeters     float64 `env:"DUPLICATE_RADIUS_METERS" envDefault:"50"`
	ListNearbyRadiusMeters    float64 `env:"LIST_NEARBY_RADIUS_METERS" envDefault:"5000"`
	CitizenNearbyRadiusMeters float64 `env:"CITIZEN_NEARBY_RADIUS_METERS" envDefault:"500"`

	CitizenDashboardTTL   time.Duration `env:"CITIZEN_DASHBOARD_TTL" envDefault:"300s"`
	AuthorityDashboardTTL time.Duration `env:"AUTHORITY_DASHBOARD_TTL" envDefault:"300s"`
	AdminDashboardTTL     time.Duration `env:"ADMIN_DASHBOARD_TTL" envDefault:"600s"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}

// CloudinaryEnabled reports whether photo uploads can be forwarded to Cloudinary.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
