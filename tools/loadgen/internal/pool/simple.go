package pool

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// SimpleParameterPool guards everything with one RWMutex. It is the
// easy-to-reason-about implementation; ShardedParameterPool is the one to
// use when many workers hammer the pool concurrently.
type SimpleParameterPool struct {
	mu        sync.RWMutex
	byType    map[SemanticType][]*ParameterValue
	config    PoolConfig
	startedAt time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	adds      atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64

	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	closed      atomic.Bool
}

// NewSimpleParameterPool creates a new SimpleParameterPool with the given configuration.
func NewSimpleParameterPool(config PoolConfig) *SimpleParameterPool {
	p := &SimpleParameterPool{
		byType:    make(map[SemanticType][]*ParameterValue),
		config:    config,
		startedAt: time.Now(),
		sweepStop: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		p.sweepTicker = time.NewTicker(config.CleanupInterval)
		go p.sweepLoop()
	}

	return p
}

// Add stores a value, evicting one first if the type is at its cap.
func (p *SimpleParameterPool) Add(ctx context.Context, value *ParameterValue) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.adds.Add(1)

	evicted := 0
	if limit := p.config.MaxValuesPerType; limit > 0 && len(p.byType[value.SemanticType]) >= limit {
		evicted = p.dropOne(value.SemanticType)
	}

	p.byType[value.SemanticType] = append(p.byType[value.SemanticType], value)
	return evicted, nil
}

// dropOne removes a single value per the eviction policy. Caller holds the lock.
func (p *SimpleParameterPool) dropOne(semanticType SemanticType) int {
	values := p.byType[semanticType]
	if len(values) == 0 {
		return 0
	}

	victim := 0
	switch p.config.EvictionPolicy {
	case EvictionLRU:
		coldest := values[0].LastAccessedAt()
		for i, v := range values[1:] {
			if at := v.LastAccessedAt(); at.Before(coldest) {
				coldest = at
				victim = i + 1
			}
		}
	case EvictionRandom:
		victim = rand.IntN(len(values))
	default:
		// FIFO: slot 0 is the oldest
	}

	p.byType[semanticType] = append(values[:victim], values[victim+1:]...)
	p.evictions.Add(1)
	return 1
}

// Get returns the oldest non-expired value for the semantic type.
func (p *SimpleParameterPool) Get(ctx context.Context, semanticType SemanticType) (*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range p.byType[semanticType] {
		if v.IsExpired() {
			continue
		}
		v.Touch()
		p.hits.Add(1)
		return v, nil
	}

	p.misses.Add(1)
	return nil, nil
}

// GetRandom returns a uniformly random non-expired value for the semantic type.
func (p *SimpleParameterPool) GetRandom(ctx context.Context, semanticType SemanticType) (*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.byType[semanticType]
	live := make([]*ParameterValue, 0, len(values))
	for _, v := range values {
		if !v.IsExpired() {
			live = append(live, v)
		}
	}

	if len(live) == 0 {
		p.misses.Add(1)
		return nil, nil
	}

	v := live[rand.IntN(len(live))]
	v.Touch()
	p.hits.Add(1)
	return v, nil
}

// GetAll returns every non-expired value for the semantic type.
func (p *SimpleParameterPool) GetAll(ctx context.Context, semanticType SemanticType) ([]*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	values := p.byType[semanticType]
	result := make([]*ParameterValue, 0, len(values))
	for _, v := range values {
		if !v.IsExpired() {
			result = append(result, v)
		}
	}
	return result, nil
}

// Count returns how many values the semantic type holds, expired included.
func (p *SimpleParameterPool) Count(ctx context.Context, semanticType SemanticType) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byType[semanticType]), nil
}

// Remove drops a specific value. Returns true if it was present.
func (p *SimpleParameterPool) Remove(ctx context.Context, value *ParameterValue) (bool, error) {
	if p.closed.Load() {
		return false, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.byType[value.SemanticType]
	for i, v := range values {
		if v == value {
			p.byType[value.SemanticType] = append(values[:i], values[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Clear drops every value for the semantic type.
func (p *SimpleParameterPool) Clear(ctx context.Context, semanticType SemanticType) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.byType[semanticType])
	delete(p.byType, semanticType)
	return n, nil
}

// ClearAll empties the pool.
func (p *SimpleParameterPool) ClearAll(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.byType = make(map[SemanticType][]*ParameterValue)
	return nil
}

// Cleanup drops expired values across every semantic type.
func (p *SimpleParameterPool) Cleanup(ctx context.Context) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := 0
	for st, values := range p.byType {
		kept := values[:0]
		for _, v := range values {
			if v.IsExpired() {
				dropped++
				continue
			}
			kept = append(kept, v)
		}
		p.byType[st] = kept
	}

	p.expired.Add(int64(dropped))
	return dropped, nil
}

func (p *SimpleParameterPool) sweepLoop() {
	for {
		select {
		case <-p.sweepTicker.C:
			_, _ = p.Cleanup(context.Background())
		case <-p.sweepStop:
			return
		}
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *SimpleParameterPool) Stats(ctx context.Context) (Stats, error) {
	if p.closed.Load() {
		return Stats{}, ErrPoolClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		ValuesByType:  make(map[SemanticType]int64),
		HitCount:      p.hits.Load(),
		MissCount:     p.misses.Load(),
		EvictionCount: p.evictions.Load(),
		ExpiredCount:  p.expired.Load(),
		AddCount:      p.adds.Load(),
		Uptime:        time.Since(p.startedAt),
	}

	for st, values := range p.byType {
		n := int64(len(values))
		stats.TotalValues += n
		stats.ValuesByType[st] = n
	}

	return stats, nil
}

// Types lists the semantic types that currently hold values.
func (p *SimpleParameterPool) Types(ctx context.Context) ([]SemanticType, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	types := make([]SemanticType, 0, len(p.byType))
	for st, values := range p.byType {
		if len(values) > 0 {
			types = append(types, st)
		}
	}
	return types, nil
}

// Close stops the sweep goroutine and rejects further operations.
func (p *SimpleParameterPool) Close() error {
	if p.closed.Swap(true) {
		return ErrPoolClosed
	}

	if p.sweepTicker != nil {
		p.sweepTicker.Stop()
		close(p.sweepStop)
	}
	return nil
}

// EvictionCount returns the total number of values evicted so far.
func (p *SimpleParameterPool) EvictionCount() int64 {
	return p.evictions.Load()
}
