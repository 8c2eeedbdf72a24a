package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "storefront_session", cfg.Session.CookieName)
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "order-events", cfg.Kafka.Topic)
}

func TestLoadParsesBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://shop.example.com", cfg.Payment.PublicBaseURL)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.Server.AllowedOrigins)
}

func TestValidateProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Session:     SessionConfig{Secret: defaultSessionSecret},
		Database:    DatabaseConfig{Password: "secret"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Session.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Payment.StripeSecretKey = "sk_live_x"
	assert.Error(t, cfg.Validate())

	cfg.Payment.StripeWebhookSecret = "whsec_x"
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Database: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", d.DSN())
}
