package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/db/models"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func TestGetReturnsNotFoundWithoutError(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db, config.SettlementConfig{})

	_, ok, err := repo.Get(context.Background(), "missing_key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetInsertsThenOverwrites(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db, config.SettlementConfig{})
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "greeting", "hello"))
	value, ok, err := repo.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", value)

	require.NoError(t, repo.Set(ctx, "greeting", "habari"))
	value, ok, err = repo.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "habari", value)

	var count int64
	require.NoError(t, db.Table("settings").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDriverPayConfigFallsBackToEnvironmentDefaults(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db, config.SettlementConfig{
		DriverPayPerDeliveryEnabled: true,
		DriverPayPerDeliveryAmount:  "25.50",
	})

	cfg, err := repo.DriverPayConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Amount.Equal(dec("25.50")))
}

func TestDriverPayConfigRowsOverrideDefaults(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db, config.SettlementConfig{
		DriverPayPerDeliveryEnabled: false,
		DriverPayPerDeliveryAmount:  "0",
	})
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, models.SettingDriverPayPerDeliveryEnabled, "true"))
	require.NoError(t, repo.Set(ctx, models.SettingDriverPayPerDeliveryAmount, " 30.00 "))

	cfg, err := repo.DriverPayConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Amount.Equal(dec("30.00")))
}

func TestDriverPayConfigIgnoresUnparseableRows(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db, config.SettlementConfig{
		DriverPayPerDeliveryEnabled: true,
		DriverPayPerDeliveryAmount:  "30.00",
	})
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, models.SettingDriverPayPerDeliveryEnabled, "definitely"))
	require.NoError(t, repo.Set(ctx, models.SettingDriverPayPerDeliveryAmount, "lots"))

	cfg, err := repo.DriverPayConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Amount.Equal(dec("30.00")))
}
