package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DBURL            string
	RedisAddr        string
	MQTTBroker       string
	MQTTClientID     string
	LogLevel         string
	JWTSecret        string
	HTTPPort         int
	MDNSLocalName    string
	IngestTimeout    time.Duration
	AsynqConcurrency int
}

// LoadConfig reads configuration from .env and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; env vars win either way
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("MQTT_CLIENT_ID", "homehub-engine")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_PORT", 5069)
	viper.SetDefault("MDNS_LOCAL_NAME", "homehub.local")
	viper.SetDefault("INGEST_TIMEOUT_MS", 2000)
	viper.SetDefault("ASYNQ_CONCURRENCY", 10)

	cfg := &Config{
		DBURL:            viper.GetString("DB_URL"),
		RedisAddr:        viper.GetString("REDIS_ADDR"),
		MQTTBroker:       viper.GetString("MQTT_BROKER"),
		MQTTClientID:     viper.GetString("MQTT_CLIENT_ID"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
		JWTSecret:        viper.GetString("JWT_SECRET"),
		HTTPPort:         viper.GetInt("HTTP_PORT"),
		MDNSLocalName:    viper.GetString("MDNS_LOCAL_NAME"),
		IngestTimeout:    time.Duration(viper.GetInt("INGEST_TIMEOUT_MS")) * time.Millisecond,
		AsynqConcurrency: viper.GetInt("ASYNQ_CONCURRENCY"),
	}
	return cfg, nil
}
