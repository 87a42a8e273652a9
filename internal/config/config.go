package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIBaseURL       string
	WSBaseURL        string
	Env              string
	HeartbeatSeconds int
	TypingThrottleMS int
	DebugPort        string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		APIBaseURL:       getenv("API_BASE_URL", "http://localhost:8000/api/v1"),
		WSBaseURL:        getenv("WS_BASE_URL", "ws://localhost:8000/api/v1/ws"),
		Env:              getenv("APP_ENV", "dev"),
		HeartbeatSeconds: getenvInt("HEARTBEAT_SECONDS", 30),
		TypingThrottleMS: getenvInt("TYPING_THROTTLE_MS", 2000),
		DebugPort:        getenv("DEBUG_PORT", "9100"),
	}
}
