package pool

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// shard holds the ring buffers for the semantic types that hash to it.
type shard struct {
	mu      sync.RWMutex
	buffers map[SemanticType]*RingBuffer

	hits    atomic.Int64
	misses  atomic.Int64
	adds    atomic.Int64
	expired atomic.Int64
}

// ShardedParameterPool spreads semantic types across shards by hash so
// concurrent workers rarely contend on the same lock. Each type lives in
// one ring buffer on one shard.
type ShardedParameterPool struct {
	shards []*shard
	// shardCount - 1; shard count is a power of 2 so hash & mask is a
	// cheap modulo.
	shardMask uint64

	config    PoolConfig
	startedAt time.Time

	evictions atomic.Int64

	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	closed      atomic.Bool
}

// NewShardedParameterPool creates a ShardedParameterPool with the given
// configuration. The shard count is rounded up to a power of 2.
func NewShardedParameterPool(config PoolConfig) *ShardedParameterPool {
	n := config.ShardCount
	if n <= 0 {
		n = 16
	}
	n = nextPowerOfTwo(n)

	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{buffers: make(map[SemanticType]*RingBuffer)}
	}

	p := &ShardedParameterPool{
		shards:    shards,
		shardMask: uint64(n - 1),
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

// nextPowerOfTwo returns the smallest power of 2 >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func (p *ShardedParameterPool) shardFor(semanticType SemanticType) *shard {
	h := fnv.New64a()
	h.Write([]byte(semanticType))
	return p.shards[h.Sum64()&p.shardMask]
}

// bufferFor returns the ring buffer for the semantic type, creating it on
// first use. Caller holds the shard's write lock.
func (s *shard) bufferFor(semanticType SemanticType, capacity int, policy EvictionPolicy) *RingBuffer {
	rb, ok := s.buffers[semanticType]
	if !ok {
		if capacity <= 0 {
			capacity = 1000
		}
		rb = NewRingBuffer(capacity, policy)
		s.buffers[semanticType] = rb
	}
	return rb
}

// Add stores a value in its type's ring buffer.
func (p *ShardedParameterPool) Add(ctx context.Context, value *ParameterValue) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	s := p.shardFor(value.SemanticType)

	s.mu.Lock()
	rb := s.bufferFor(value.SemanticType, p.config.MaxValuesPerType, p.config.EvictionPolicy)
	evicted := rb.Add(value)
	s.adds.Add(1)
	s.mu.Unlock()

	if evicted > 0 {
		p.evictions.Add(int64(evicted))
	}
	return evicted, nil
}

// Get returns the next value for the semantic type, or nil if none is live.
func (p *ShardedParameterPool) Get(ctx context.Context, semanticType SemanticType) (*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	s := p.shardFor(semanticType)

	s.mu.RLock()
	rb, ok := s.buffers[semanticType]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, nil
	}

	v := rb.Get()
	if v == nil || v.IsExpired() {
		s.misses.Add(1)
		return nil, nil
	}

	s.hits.Add(1)
	return v, nil
}

// GetRandom returns a random value for the semantic type, or nil if none is live.
func (p *ShardedParameterPool) GetRandom(ctx context.Context, semanticType SemanticType) (*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	s := p.shardFor(semanticType)

	s.mu.RLock()
	rb, ok := s.buffers[semanticType]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, nil
	}

	v := rb.GetRandom()
	if v == nil || v.IsExpired() {
		s.misses.Add(1)
		return nil, nil
	}

	s.hits.Add(1)
	return v, nil
}

// GetAll returns every live value for the semantic type.
func (p *ShardedParameterPool) GetAll(ctx context.Context, semanticType SemanticType) ([]*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	s := p.shardFor(semanticType)

	s.mu.RLock()
	rb, ok := s.buffers[semanticType]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	values := rb.GetAll()
	live := make([]*ParameterValue, 0, len(values))
	for _, v := range values {
		if !v.IsExpired() {
			live = append(live, v)
		}
	}
	return live, nil
}

// Count returns how many values the semantic type holds.
func (p *ShardedParameterPool) Count(ctx context.Context, semanticType SemanticType) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	s := p.shardFor(semanticType)

	s.mu.RLock()
	rb, ok := s.buffers[semanticType]
	s.mu.RUnlock()

	if !ok {
		return 0, nil
	}
	return rb.Count(), nil
}

// Remove drops a specific value. Returns true if it was present.
func (p *ShardedParameterPool) Remove(ctx context.Context, value *ParameterValue) (bool, error) {
	if p.closed.Load() {
		return false, ErrPoolClosed
	}

	s := p.shardFor(value.SemanticType)

	s.mu.Lock()
	defer s.mu.Unlock()

	rb, ok := s.buffers[value.SemanticType]
	if !ok {
		return false, nil
	}
	return rb.Remove(value), nil
}

// Clear drops every value for the semantic type.
func (p *ShardedParameterPool) Clear(ctx context.Context, semanticType SemanticType) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	s := p.shardFor(semanticType)

	s.mu.Lock()
	defer s.mu.Unlock()

	rb, ok := s.buffers[semanticType]
	if !ok {
		return 0, nil
	}
	cleared := rb.Clear()
	delete(s.buffers, semanticType)
	return cleared, nil
}

// ClearAll empties the pool.
func (p *ShardedParameterPool) ClearAll(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	for _, s := range p.shards {
		s.mu.Lock()
		for st, rb := range s.buffers {
			rb.Clear()
			delete(s.buffers, st)
		}
		s.mu.Unlock()
	}
	return nil
}

// Cleanup drops expired values across every shard.
func (p *ShardedParameterPool) Cleanup(ctx context.Context) (int, error) {
	if p.closed.Load() {
		return 0, ErrPoolClosed
	}

	total := 0
	for _, s := range p.shards {
		s.mu.Lock()
		for _, rb := range s.buffers {
			dropped := rb.RemoveExpired()
			total += dropped
			s.expired.Add(int64(dropped))
		}
		s.mu.Unlock()
	}
	return total, nil
}

func (p *ShardedParameterPool) sweepLoop() {
	for {
		select {
		case <-p.sweepTicker.C:
			_, _ = p.Cleanup(context.Background())
		case <-p.sweepStop:
			return
		}
	}
}

// Stats aggregates counters across every shard.
func (p *ShardedParameterPool) Stats(ctx context.Context) (Stats, error) {
	if p.closed.Load() {
		return Stats{}, ErrPoolClosed
	}

	stats := Stats{
		ValuesByType:  make(map[SemanticType]int64),
		EvictionCount: p.evictions.Load(),
		Uptime:        time.Since(p.startedAt),
	}

	for _, s := range p.shards {
		s.mu.RLock()
		stats.HitCount += s.hits.Load()
		stats.MissCount += s.misses.Load()
		stats.AddCount += s.adds.Load()
		stats.ExpiredCount += s.expired.Load()

		for st, rb := range s.buffers {
			n := int64(rb.Count())
			stats.TotalValues += n
			stats.ValuesByType[st] += n
		}
		s.mu.RUnlock()
	}

	return stats, nil
}

// Types lists the semantic types that currently hold values.
func (p *ShardedParameterPool) Types(ctx context.Context) ([]SemanticType, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	types := make([]SemanticType, 0)
	seen := make(map[SemanticType]bool)

	for _, s := range p.shards {
		s.mu.RLock()
		for st, rb := range s.buffers {
			if rb.Count() > 0 && !seen[st] {
				types = append(types, st)
				seen[st] = true
			}
		}
		s.mu.RUnlock()
	}

	return types, nil
}

// Close stops the sweep goroutine and rejects further operations.
func (p *ShardedParameterPool) Close() error {
	if p.closed.Swap(true) {
		return ErrPoolClosed
	}

	if p.sweepTicker != nil {
		p.sweepTicker.Stop()
		close(p.sweepStop)
	}
	return nil
}

// ShardCount returns the number of shards.
func (p *ShardedParameterPool) ShardCount() int {
	return len(p.shards)
}

// EvictionCount returns the total number of values evicted so far.
func (p *ShardedParameterPool) EvictionCount() int64 {
	return p.evictions.Load()
}
