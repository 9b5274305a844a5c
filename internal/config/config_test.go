package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
database:
  host: db
  port: 5433
  user: access
  password: from-file
  name: access
jwt:
  secret: file-secret
cache:
  directory_ttl: 30s
access:
  default_time_zone: America/Chicago
`

func loadSample(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(sampleYAML)))
	cfg, err := decode(v)
	require.NoError(t, err)
	return cfg
}

func TestDecodeFileAndDefaults(t *testing.T) {
	cfg := loadSample(t)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.TimeoutSeconds)
	assert.Equal(t, 30*time.Second, cfg.Cache.DirectoryTTL)
	assert.Equal(t, "access.events", cfg.Redis.Channel)
	assert.Equal(t, "America/Chicago", cfg.Access.DefaultTimeZone)
	assert.Equal(t, "host=db port=5433 user=access password=from-file dbname=access sslmode=disable", cfg.Database.DSN())
}

func TestSecretsOverrideFile(t *testing.T) {
	t.Setenv("ACCESS_DB_PASSWORD", "from-env")
	t.Setenv("ACCESS_JWT_SECRET", "env-secret")

	cfg := loadSample(t)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Access: AccessConfig{DefaultTimeZone: "UTC"}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Access.DefaultTimeZone = "Nowhere/Special"
	assert.Error(t, cfg.Validate())
}
