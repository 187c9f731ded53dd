package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	HTTPAddr       string
	ObsHTTPAddr    string
	DatabaseURL    string
	RedisAddr      string
	JWTSecret      string
	ServiceName    string
	MetricsEnabled bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:       fixPort(getEnv("HTTP_ADDR", ":8080")),
		ObsHTTPAddr:    fixPort(getEnv("OBS_HTTP_ADDR", ":8090")),
		DatabaseURL:    mustEnv("DATABASE_URL"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:      mustEnv("JWT_SECRET"),
		ServiceName:    getEnv("SERVICE_NAME", "messaging-service"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

func fixPort(port string) string {
	if port != "" && !strings.HasPrefix(port, ":") {
		return ":" + port
	}
	return port
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true"
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env: %s", k)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
