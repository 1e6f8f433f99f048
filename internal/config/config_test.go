package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, int64(1100), cfg.CheckoutTaxBps)
	assert.Equal(t, int64(15000), cfg.CheckoutShippingFee)
	assert.Equal(t, 720*time.Hour, cfg.SubscriptionPeriod)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("tax", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("CHECKOUT_TAX_BPS", "eleven")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("JWT_TTL", "forever")
		_, err := Load()
		assert.Error(t, err)
	})
}
