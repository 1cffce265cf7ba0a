// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

type Config struct {
	SocketURL  string        `env:"SCENYX_SOCKET_URL" envDefault:"ws://localhost:8080/ws/live"`
	APIURL     string        `env:"SCENYX_API_URL" envDefault:"http://localhost:8080"`
	APITimeout time.Duration `env:"SCENYX_API_TIMEOUT" envDefault:"10s"`

	UserID   string `env:"SCENYX_USER_ID,required"`
	UserName string `env:"SCENYX_USER_NAME"`
	Token    string `env:"SCENYX_TOKEN,required"`

	ConnectTimeout time.Duration `env:"SCENYX_CONNECT_TIMEOUT" envDefault:"10s"`
	AuthTimeout    time.Duration `env:"SCENYX_AUTH_TIMEOUT" envDefault:"10s"`

	ChatHistory  int           `env:"SCENYX_CHAT_HISTORY" envDefault:"100"`
	SongEstimate time.Duration `env:"SCENYX_SONG_ESTIMATE" envDefault:"4m"`

	GeoTimeout  time.Duration `env:"SCENYX_GEO_TIMEOUT" envDefault:"10s"`
	GeoAttempts int           `env:"SCENYX_GEO_ATTEMPTS" envDefault:"3"`
	GeoBackoff  time.Duration `env:"SCENYX_GEO_BACKOFF" envDefault:"1s"`
	GeoCacheAge time.Duration `env:"SCENYX_GEO_CACHE_AGE" envDefault:"30m"`
	Latitude    *float64      `env:"SCENYX_LATITUDE"`
	Longitude   *float64      `env:"SCENYX_LONGITUDE"`
	ValkeyAddr  string        `env:"SCENYX_VALKEY_ADDR"`

	BridgeAddr    string `env:"SCENYX_BRIDGE_ADDR" envDefault:"127.0.0.1:7070"`
	BridgeKeyHash string `env:"SCENYX_BRIDGE_KEY_HASH"`
	CORSOrigin    string `env:"SCENYX_CORS_ORIGIN" envDefault:"http://127.0.0.1:5173"`
}

// Load reads files (default ".env") into the environment without overriding
// variables already set, then parses the environment. Missing files are
// ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return errors.New("config: SCENYX_LATITUDE and SCENYX_LONGITUDE must be set together")
	}
	if c.ChatHistory <= 0 {
		return errors.New("config: SCENYX_CHAT_HISTORY must be positive")
	}
	if c.GeoAttempts <= 0 {
		return errors.New("config: SCENYX_GEO_ATTEMPTS must be positive")
	}
	return nil
}

// Position returns the configured fixed position, if any.
func (c Config) Position() *models.Position {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &models.Position{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

// DisplayName is the name sent on authenticate.
func (c Config) DisplayName() string {
	if c.UserName != "" {
		return c.UserName
	}
	return c.UserID
}
