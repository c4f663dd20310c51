package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateKey(t *testing.T) {
	d := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "fx:USD:KRW:2025-03-14:MID", RateKey("USD", "KRW", d, "MID"))
}

func TestMemoryRateCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRateCache()

	_, ok := c.Get(ctx, "fx:USD:KRW:2025-03-14:MID")
	assert.False(t, ok)

	c.Set(ctx, "fx:USD:KRW:2025-03-14:MID", decimal.RequireFromString("1350"))
	r, ok := c.Get(ctx, "fx:USD:KRW:2025-03-14:MID")
	assert.True(t, ok)
	assert.True(t, r.Equal(decimal.NewFromInt(1350)))

	c.Invalidate(ctx, "fx:USD:KRW:2025-03-14:MID")
	_, ok = c.Get(ctx, "fx:USD:KRW:2025-03-14:MID")
	assert.False(t, ok)
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	c := New(&config.RedisConfig{Enabled: false}, zap.NewNop())
	assert.IsType(t, NoopRateCache{}, c)

	c.Set(context.Background(), "k", decimal.NewFromInt(1))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
