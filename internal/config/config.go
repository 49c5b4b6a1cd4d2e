// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tbuchmann/postcarder/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr  string
	DBPath      string
	AuthMethod  model.AuthMethod
	ImageExport bool
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional. Defaults: POSTCARDER_LISTEN_ADDR
// (127.0.0.1:8080), POSTCARDER_DB_PATH (postcarder.db), POSTCARDER_AUTH_METHOD
// (mixed), POSTCARDER_IMAGE_EXPORT (false), POSTCARDER_HTTP_TIMEOUT (2m).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("POSTCARDER_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "postcarder.db"
	if v, ok := os.LookupEnv("POSTCARDER_DB_PATH"); ok {
		dbPath = v
	}

	method := model.AuthMethodMixed
	if v, ok := os.LookupEnv("POSTCARDER_AUTH_METHOD"); ok {
		method = model.AuthMethod(v)
		if !method.Valid() {
			return nil, fmt.Errorf("POSTCARDER_AUTH_METHOD has invalid value %q: choose mixed, legacy, or swissid", v)
		}
	}

	imageExport := false
	if v, ok := os.LookupEnv("POSTCARDER_IMAGE_EXPORT"); ok {
		switch v {
		case "1", "true", "yes":
			imageExport = true
		case "0", "false", "no":
			imageExport = false
		default:
			return nil, fmt.Errorf("POSTCARDER_IMAGE_EXPORT has invalid boolean %q", v)
		}
	}

	httpTimeout := 2 * time.Minute
	if v, ok := os.LookupEnv("POSTCARDER_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("POSTCARDER_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		httpTimeout = parsed
	}

	return &Config{
		ListenAddr:  listenAddr,
		DBPath:      dbPath,
		AuthMethod:  method,
		ImageExport: imageExport,
		HTTPTimeout: httpTimeout,
	}, nil
}
