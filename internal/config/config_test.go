package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	req := require.New(t)
	path := writeConfig(t, `
app:
  port: 9000
store:
  driver: badger
jwt:
  alg: hs256
  hs_secret: secret
`)

	cfg, err := Load(path)

	req.NoError(err)
	req.Equal(9000, cfg.App.Port)
	req.Equal("badger", cfg.Store.Driver)
	req.Equal("HS256", cfg.JWT.Alg)
	req.Equal(256, cfg.WS.SendBuffer)
	req.Equal(25*time.Second, cfg.PingInterval)
	req.Equal(50*time.Second, cfg.PongWait)
	req.Equal(int64(10<<20), cfg.Media.MaxBytes)
	req.True(cfg.IsDevelopment())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	req := require.New(t)
	path := writeConfig(t, `
mongo:
  uri: mongodb://file:27017
jwt:
  hs_secret: secret
`)
	t.Setenv("MONGO_URI", "mongodb://env:27017")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)

	req.NoError(err)
	req.Equal("mongodb://env:27017", cfg.Mongo.URI)
	req.Equal([]string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"mongo without uri", "jwt:\n  hs_secret: s\n"},
		{"unknown store", "store:\n  driver: sqlite\njwt:\n  hs_secret: s\n"},
		{"hs256 without secret", "store:\n  driver: badger\n"},
		{"rs256 without key", "store:\n  driver: badger\njwt:\n  alg: RS256\n"},
		{"kafka without brokers", "store:\n  driver: badger\nevents:\n  driver: kafka\njwt:\n  hs_secret: s\n"},
		{"relay without kafka", "store:\n  driver: badger\nkafka:\n  relay: true\njwt:\n  hs_secret: s\n"},
		{"presence ttl shorter than ping", "store:\n  driver: badger\nredis:\n  addr: localhost:6379\n  presence_ttl_seconds: 10\njwt:\n  hs_secret: s\n"},
		{"s3 without bucket", "store:\n  driver: badger\nmedia:\n  driver: s3\njwt:\n  hs_secret: s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("JWT_HS_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	req.NoError(err)
	req.Equal("badger", cfg.Store.Driver)
}
