package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() pricing.ResolveKey {
	return pricing.ResolveKey{
		CropYear:      2026,
		ProductID:     uuid.New(),
		ProcessID:     uuid.New(),
		AdvanceNumber: 1,
		Date:          "2026-08-15",
	}
}

func TestInMemoryScheduleCache_SetAndGet(t *testing.T) {
	cache := NewInMemoryScheduleCache(time.Minute)
	key := testKey()
	schedule := &pricing.PriceSchedule{
		CropYear:      2026,
		AdvanceNumber: 1,
		PricePerLb:    decimal.RequireFromString("0.45"),
	}

	cache.Set(context.Background(), key, schedule)

	got, ok := cache.Get(context.Background(), key)
	require.True(t, ok)
	assert.True(t, got.PricePerLb.Equal(decimal.RequireFromString("0.45")))
	assert.Equal(t, 1, cache.Len())
}

func TestInMemoryScheduleCache_MissOnUnknownKey(t *testing.T) {
	cache := NewInMemoryScheduleCache(time.Minute)

	got, ok := cache.Get(context.Background(), testKey())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestInMemoryScheduleCache_ExpiredEntryEvicted(t *testing.T) {
	cache := NewInMemoryScheduleCache(time.Millisecond)
	key := testKey()
	cache.Set(context.Background(), key, &pricing.PriceSchedule{CropYear: 2026})

	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get(context.Background(), key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestInMemoryScheduleCache_DistinctTiersDoNotCollide(t *testing.T) {
	cache := NewInMemoryScheduleCache(time.Minute)
	key1 := testKey()
	key2 := key1
	key2.AdvanceNumber = 2

	cache.Set(context.Background(), key1, &pricing.PriceSchedule{AdvanceNumber: 1})
	cache.Set(context.Background(), key2, &pricing.PriceSchedule{AdvanceNumber: 2})

	got1, ok1 := cache.Get(context.Background(), key1)
	got2, ok2 := cache.Get(context.Background(), key2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, 1, got1.AdvanceNumber)
	assert.Equal(t, 2, got2.AdvanceNumber)
}
