package pool

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// RingBuffer is a fixed-capacity circular store for ParameterValues.
// When full, Add drops one value per the configured eviction policy
// before writing the new one. Get is a peek, not a pop: values stay in
// the buffer until evicted, removed or expired, so many workers can
// reuse the same harvested IDs.
type RingBuffer struct {
	mu       sync.RWMutex
	slots    []*ParameterValue
	writeAt  int // next slot to write
	oldestAt int // oldest live slot, for FIFO
	count    int
	capacity int

	policy    EvictionPolicy
	evictions atomic.Int64

	// Slot indices ordered coldest-first, maintained only for LRU.
	lruOrder []int
}

// NewRingBuffer creates a RingBuffer with the given capacity and eviction policy.
func NewRingBuffer(capacity int, policy EvictionPolicy) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingBuffer{
		slots:    make([]*ParameterValue, capacity),
		capacity: capacity,
		policy:   policy,
		lruOrder: make([]int, 0, capacity),
	}
}

// Add stores a value, evicting one first if the buffer is full.
// Returns how many values were evicted.
func (rb *RingBuffer) Add(value *ParameterValue) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	evicted := 0
	if rb.count >= rb.capacity {
		evicted = rb.dropOne()
	}

	rb.slots[rb.writeAt] = value
	if rb.policy == EvictionLRU {
		rb.lruOrder = append(rb.lruOrder, rb.writeAt)
	}
	rb.writeAt = (rb.writeAt + 1) % rb.capacity
	rb.count++

	return evicted
}

// dropOne removes a single value per the eviction policy. Caller holds the lock.
func (rb *RingBuffer) dropOne() int {
	if rb.count == 0 {
		return 0
	}

	var victim int
	switch rb.policy {
	case EvictionLRU:
		if len(rb.lruOrder) > 0 {
			victim = rb.lruOrder[0]
			rb.lruOrder = rb.lruOrder[1:]
			if victim == rb.oldestAt {
				rb.oldestAt = (rb.oldestAt + 1) % rb.capacity
			}
		} else {
			victim = rb.oldestAt
			rb.oldestAt = (rb.oldestAt + 1) % rb.capacity
		}

	case EvictionRandom:
		victim = rb.randomLiveSlot()
		if victim == rb.oldestAt {
			rb.oldestAt = (rb.oldestAt + 1) % rb.capacity
		}

	default:
		victim = rb.oldestAt
		rb.oldestAt = (rb.oldestAt + 1) % rb.capacity
	}

	rb.slots[victim] = nil
	rb.count--
	rb.evictions.Add(1)
	return 1
}

// randomLiveSlot picks a random occupied slot. Caller holds the lock and
// guarantees count > 0.
func (rb *RingBuffer) randomLiveSlot() int {
	start := (rb.oldestAt + rand.IntN(rb.count)) % rb.capacity
	for i := 0; i < rb.capacity; i++ {
		idx := (start + i) % rb.capacity
		if rb.slots[idx] != nil {
			return idx
		}
	}
	return rb.oldestAt
}

// Get peeks at the oldest live value without removing it.
// Returns nil if the buffer is empty.
func (rb *RingBuffer) Get() *ParameterValue {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count == 0 {
		return nil
	}

	for i := 0; i < rb.capacity; i++ {
		idx := (rb.oldestAt + i) % rb.capacity
		if v := rb.slots[idx]; v != nil {
			v.Touch()
			rb.markAccessed(idx)
			return v
		}
	}
	return nil
}

// GetRandom peeks at a random live value without removing it.
// Returns nil if the buffer is empty.
func (rb *RingBuffer) GetRandom() *ParameterValue {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count == 0 {
		return nil
	}

	start := rand.IntN(rb.capacity)
	for i := 0; i < rb.capacity; i++ {
		idx := (start + i) % rb.capacity
		if v := rb.slots[idx]; v != nil {
			v.Touch()
			rb.markAccessed(idx)
			return v
		}
	}
	return nil
}

// markAccessed moves the slot to the warm end of the LRU order.
// Caller holds the lock.
func (rb *RingBuffer) markAccessed(idx int) {
	if rb.policy != EvictionLRU {
		return
	}
	rb.forgetLRUSlot(idx)
	rb.lruOrder = append(rb.lruOrder, idx)
}

// forgetLRUSlot drops the slot from the LRU order if present.
// Caller holds the lock.
func (rb *RingBuffer) forgetLRUSlot(idx int) {
	for i, slot := range rb.lruOrder {
		if slot == idx {
			rb.lruOrder = append(rb.lruOrder[:i], rb.lruOrder[i+1:]...)
			return
		}
	}
}

// GetAll returns every live value in the buffer.
func (rb *RingBuffer) GetAll() []*ParameterValue {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	result := make([]*ParameterValue, 0, rb.count)
	for _, v := range rb.slots {
		if v != nil {
			result = append(result, v)
		}
	}
	return result
}

// Count returns how many values the buffer holds.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Capacity returns the fixed capacity of the buffer.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// EvictionCount returns the total number of values evicted so far.
func (rb *RingBuffer) EvictionCount() int64 {
	return rb.evictions.Load()
}

// Remove drops a specific value. Returns true if it was present.
func (rb *RingBuffer) Remove(value *ParameterValue) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i, v := range rb.slots {
		if v == value {
			rb.slots[i] = nil
			rb.count--
			if rb.policy == EvictionLRU {
				rb.forgetLRUSlot(i)
			}
			return true
		}
	}
	return false
}

// Clear empties the buffer and returns how many values were dropped.
func (rb *RingBuffer) Clear() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	dropped := rb.count
	for i := range rb.slots {
		rb.slots[i] = nil
	}
	rb.writeAt = 0
	rb.oldestAt = 0
	rb.count = 0
	rb.lruOrder = rb.lruOrder[:0]

	return dropped
}

// RemoveExpired drops every expired value and returns how many were dropped.
func (rb *RingBuffer) RemoveExpired() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	dropped := 0
	for i, v := range rb.slots {
		if v == nil || !v.IsExpired() {
			continue
		}
		rb.slots[i] = nil
		rb.count--
		dropped++
		if rb.policy == EvictionLRU {
			rb.forgetLRUSlot(i)
		}
	}
	return dropped
}

// IsFull reports whether the buffer is at capacity.
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count >= rb.capacity
}

// IsEmpty reports whether the buffer holds no values.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == 0
}
