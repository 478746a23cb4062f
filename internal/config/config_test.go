package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SETTLEMENT_WEBHOOK_HMAC_KEY", "hook-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 15*time.Second, cfg.SettlementPollInterval)
	assert.Equal(t, time.Hour, cfg.ReconciliationInterval)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 200, cfg.BatchMaxSize)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "csrf_token", cfg.CSRFCookieName)
}

func TestLoadPrefixedOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REMIT_STORE_DRIVER", "Memory")
	t.Setenv("REMIT_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SETTLEMENT_POLL_INTERVAL", "2s")
	t.Setenv("BATCH_CONCURRENCY", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.SettlementPollInterval)
	assert.Equal(t, 1, cfg.BatchConcurrency)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}, want: "JWT_SECRET is required"},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}, want: "at least 32"},
		{name: "missing webhook key", env: map[string]string{"SETTLEMENT_WEBHOOK_HMAC_KEY": ""}, want: "SETTLEMENT_WEBHOOK_HMAC_KEY"},
		{name: "bad duration", env: map[string]string{"SETTLEMENT_POLL_INTERVAL": "soon"}, want: "invalid SETTLEMENT_POLL_INTERVAL"},
		{name: "negative duration", env: map[string]string{"IDEMPOTENCY_TTL": "-1m"}, want: "must be positive"},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "sqlite"}, want: "STORE_DRIVER"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadSkipSignatureWithoutKey(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SETTLEMENT_WEBHOOK_HMAC_KEY", "")
	t.Setenv("WEBHOOK_SKIP_SIG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.WebhookSkipSignature)
}

func TestLoadForCLIIgnoresServerSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/remit")

	cfg, err := LoadForCLI()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/remit", cfg.DatabaseURL)
}
