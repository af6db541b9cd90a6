package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", c.HTTPAddr)
	assert.Equal(t, StorePostgres, c.Store)
	assert.Equal(t, TxModeTransaction, c.OrderTxMode)
	assert.Equal(t, 5*time.Second, c.StoreTimeout)
	assert.Equal(t, 24*time.Hour, c.JWTTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("STORE", "mongo")
		_, err := Load()
		assert.ErrorContains(t, err, "STORE")
	})

	t.Run("unknown tx mode", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("ORDER_TX_MODE", "twopc")
		_, err := Load()
		assert.ErrorContains(t, err, "ORDER_TX_MODE")
	})
}
