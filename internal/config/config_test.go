package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Backend.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Activation.ResetDelay)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 10*time.Second, cfg.Tracking.PollInterval)
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, cfg.CORS.AllowedMethods)
	assert.False(t, cfg.Database.UsePostgres())
}

func TestFromViper_TrimsBackendURL(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"BACKEND_BASE_URL": "https://api.example.com/v1/",
	}))

	assert.Equal(t, "https://api.example.com/v1", cfg.Backend.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return fromViper(newTestViper(map[string]interface{}{
			"BACKEND_BASE_URL": "https://api.example.com",
			"SESSION_SECRET":   "0123456789abcdef0123456789abcdef",
		}))
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Backend.BaseURL = ""
	assert.ErrorContains(t, cfg.Validate(), "BACKEND_BASE_URL")

	cfg = valid()
	cfg.Backend.BaseURL = "ftp://example.com"
	assert.ErrorContains(t, cfg.Validate(), "http(s)")

	cfg = valid()
	cfg.Session.Secret = "short"
	assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a , ,b "))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "vltd", SSLMode: "disable"}

	assert.True(t, db.UsePostgres())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vltd sslmode=disable", db.DSN())
}
