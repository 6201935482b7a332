package pool

import (
	"context"
	"strings"
	"time"
)

// ParameterPool is the store the load generator draws request parameters
// from. Implementations are safe for concurrent use.
type ParameterPool interface {
	// Add stores a value under its semantic type and reports how many
	// values were evicted to make room.
	Add(ctx context.Context, value *ParameterValue) (evicted int, err error)

	// Get returns the next value for the semantic type, nil when empty.
	Get(ctx context.Context, semanticType SemanticType) (*ParameterValue, error)

	// GetRandom returns a uniformly random value for the semantic type,
	// nil when empty.
	GetRandom(ctx context.Context, semanticType SemanticType) (*ParameterValue, error)

	// GetAll returns every live value for the semantic type.
	GetAll(ctx context.Context, semanticType SemanticType) ([]*ParameterValue, error)

	// Count returns how many values the semantic type holds.
	Count(ctx context.Context, semanticType SemanticType) (int, error)

	// Remove drops one value and reports whether it was present.
	Remove(ctx context.Context, value *ParameterValue) (bool, error)

	// Clear drops every value for the semantic type and reports how many
	// were dropped.
	Clear(ctx context.Context, semanticType SemanticType) (int, error)

	// ClearAll empties the pool.
	ClearAll(ctx context.Context) error

	// Cleanup drops expired values and reports how many were dropped.
	Cleanup(ctx context.Context) (int, error)

	// Stats snapshots the pool counters.
	Stats(ctx context.Context) (Stats, error)

	// Types lists the semantic types that currently hold values.
	Types(ctx context.Context) ([]SemanticType, error)

	// Close stops background sweeps and rejects further operations.
	Close() error
}

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	// TotalValues is how many values are currently held.
	TotalValues int64

	// ValuesByType breaks TotalValues down per semantic type.
	ValuesByType map[SemanticType]int64

	// HitCount counts Get calls that returned a value.
	HitCount int64

	// MissCount counts Get calls that came back empty.
	MissCount int64

	// EvictionCount counts values dropped to make room.
	EvictionCount int64

	// ExpiredCount counts values removed because their TTL ran out.
	ExpiredCount int64

	// AddCount counts values ever added.
	AddCount int64

	// Uptime is how long the pool has been running.
	Uptime time.Duration
}

// HitRate returns the Get hit rate as a percentage, 0 when no Gets ran.
func (s Stats) HitRate() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total) * 100
}

// EvictionPolicy selects which value a full pool drops.
type EvictionPolicy int

const (
	// EvictionFIFO drops the oldest value.
	EvictionFIFO EvictionPolicy = iota

	// EvictionLRU drops the value read least recently.
	EvictionLRU

	// EvictionRandom drops a uniformly random value.
	EvictionRandom
)

func (e EvictionPolicy) String() string {
	switch e {
	case EvictionFIFO:
		return "FIFO"
	case EvictionLRU:
		return "LRU"
	case EvictionRandom:
		return "Random"
	default:
		return "Unknown"
	}
}

// ParseEvictionPolicy parses a policy name case-insensitively, falling
// back to FIFO for anything it does not recognize.
func ParseEvictionPolicy(s string) EvictionPolicy {
	switch strings.ToLower(s) {
	case "lru":
		return EvictionLRU
	case "random":
		return EvictionRandom
	default:
		return EvictionFIFO
	}
}

// PoolConfig controls capacity, expiry and eviction behavior.
type PoolConfig struct {
	// DefaultTTL applies to values added without their own expiry.
	// Zero disables expiry.
	DefaultTTL time.Duration

	// MaxValuesPerType caps values per semantic type. Zero means
	// unlimited.
	MaxValuesPerType int

	// EvictionPolicy selects what to drop when a type is at its cap.
	EvictionPolicy EvictionPolicy

	// CleanupInterval is how often expired values are swept. Zero
	// disables the sweep.
	CleanupInterval time.Duration

	// ShardCount is the shard count for ShardedParameterPool, rounded
	// up to a power of two.
	ShardCount int
}

// DefaultPoolConfig returns the defaults the load generator starts with.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		DefaultTTL:       5 * time.Minute,
		MaxValuesPerType: 1000,
		EvictionPolicy:   EvictionFIFO,
		CleanupInterval:  1 * time.Minute,
		ShardCount:       16,
	}
}
