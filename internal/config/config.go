package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string

	// OSRMBaseURL is the primary routing provider. PublicOSRMBaseURL is
	// tried when the primary fails before falling back to a synthetic
	// straight-line route.
	OSRMBaseURL       string
	PublicOSRMBaseURL string
	RouteTimeout      time.Duration

	// TickInterval is how often the simulation advances every car.
	TickInterval time.Duration

	// RedisURL and MQTTBroker are optional; the latest-position cache
	// and the live position feed stay disabled when empty.
	RedisURL   string
	MQTTBroker string

	LogLevel string
}

// Load builds a Config from the environment, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8000"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "carsim"),
		OSRMBaseURL:       getEnv("OSRM_URL", "http://localhost:5000"),
		PublicOSRMBaseURL: getEnv("PUBLIC_OSRM_URL", "http://router.project-osrm.org"),
		RouteTimeout:      getEnvSeconds("OSRM_TIMEOUT_SECONDS", 30*time.Second),
		TickInterval:      getEnvSeconds("SIMULATION_UPDATE_INTERVAL", 200*time.Millisecond),
		RedisURL:          getEnv("REDIS_URL", ""),
		MQTTBroker:        getEnv("MQTT_BROKER", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

// getEnvSeconds reads a duration expressed in (possibly fractional)
// seconds, e.g. "0.2".
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || secs <= 0 {
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}
