package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BatchSize int           `env:"TEST_CFG_BATCH_SIZE" envDefault:"100"`
	Culture   string        `env:"TEST_CFG_CULTURE" envDefault:"en-US"`
	Reserved  []string      `env:"TEST_CFG_RESERVED" envDefault:"admin,cart" envSeparator:","`
	Timeout   time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"15s"`
	Parallel  bool          `env:"TEST_CFG_PARALLEL" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "en-US", cfg.Culture)
	assert.Equal(t, []string{"admin", "cart"}, cfg.Reserved)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.False(t, cfg.Parallel)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_BATCH_SIZE", "250")
	t.Setenv("TEST_CFG_CULTURE", "de-DE")
	t.Setenv("TEST_CFG_RESERVED", "login")
	t.Setenv("TEST_CFG_PARALLEL", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "de-DE", cfg.Culture)
	assert.Equal(t, []string{"login"}, cfg.Reserved)
	assert.True(t, cfg.Parallel)
}

type requiredConfig struct {
	Brokers string `env:"TEST_CFG_BROKERS,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_BATCH_SIZE", "lots")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_WithEnvironmentIgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_BATCH_SIZE", "250")

	var cfg testConfig
	require.NoError(t, Load(&cfg, WithEnvironment(map[string]string{"TEST_CFG_CULTURE": "tr-TR"})))

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "tr-TR", cfg.Culture)
}

func TestLoad_WithPrefix(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg,
		WithPrefix("STAGING_"),
		WithEnvironment(map[string]string{"STAGING_TEST_CFG_BATCH_SIZE": "42", "TEST_CFG_BATCH_SIZE": "7"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.BatchSize)
}

type fileConfig struct {
	Password string `env:"TEST_CFG_PASSWORD_FILE,file"`
}

func TestLoad_FileField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("s3cret"), 0o600))

	var cfg fileConfig
	require.NoError(t, Load(&cfg, WithEnvironment(map[string]string{"TEST_CFG_PASSWORD_FILE": path})))

	assert.Equal(t, "s3cret", cfg.Password)
}

type twoRequired struct {
	Brokers string `env:"TEST_CFG_BROKERS,required"`
	Topic   string `env:"TEST_CFG_TOPIC,required"`
}

func TestLoad_ReportsEveryMissingField(t *testing.T) {
	var cfg twoRequired
	err := Load(&cfg, WithEnvironment(map[string]string{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_CFG_BROKERS")
	assert.Contains(t, err.Error(), "TEST_CFG_TOPIC")
}
