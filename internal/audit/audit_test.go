// internal/audit/audit_test.go
package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProcessor struct {
	mu      sync.Mutex
	batches [][]Entry
}

func (c *captureProcessor) Process(batch []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]Entry, len(batch))
	copy(cp, batch)
	c.batches = append(c.batches, cp)
	return nil
}

func (c *captureProcessor) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestPoolFlushesFullBatch(t *testing.T) {
	capture := &captureProcessor{}
	pool := NewWorkerPool(PoolConfig{BatchSize: 3, Timeout: time.Minute, ChannelSize: 16}, capture)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	for i := 0; i < 3; i++ {
		pool.Append(Entry{DonationID: "d-1", FromStatus: "pending", ToStatus: "accepted", CreatedAt: time.Now()})
	}

	require.Eventually(t, func() bool { return capture.total() == 3 }, 2*time.Second, 10*time.Millisecond)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	require.Len(t, capture.batches, 1)
	assert.Len(t, capture.batches[0], 3)

	pool.Shutdown(cancel)
}

func TestPoolFlushesOnTimeout(t *testing.T) {
	capture := &captureProcessor{}
	pool := NewWorkerPool(PoolConfig{BatchSize: 100, Timeout: 50 * time.Millisecond, ChannelSize: 16}, capture)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Append(Entry{DonationID: "d-2", FromStatus: "accepted", ToStatus: "ready_for_pickup", CreatedAt: time.Now()})

	require.Eventually(t, func() bool { return capture.total() == 1 }, 2*time.Second, 10*time.Millisecond)

	pool.Shutdown(cancel)
}

func TestShutdownDrainsPartialBatch(t *testing.T) {
	capture := &captureProcessor{}
	pool := NewWorkerPool(PoolConfig{BatchSize: 100, Timeout: time.Minute, ChannelSize: 16}, capture)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Append(Entry{DonationID: "d-3", FromStatus: "in_transit", ToStatus: "delivered", CreatedAt: time.Now()})

	// Give the worker a moment to pull the entry off the channel.
	time.Sleep(100 * time.Millisecond)
	pool.Shutdown(cancel)

	assert.Equal(t, 1, capture.total())
}

func TestAppendDropsWhenChannelFull(t *testing.T) {
	capture := &captureProcessor{}
	pool := NewWorkerPool(PoolConfig{BatchSize: 100, Timeout: time.Minute, ChannelSize: 1}, capture)

	// No workers started, so the channel fills immediately.
	pool.Append(Entry{DonationID: "d-4"})
	pool.Append(Entry{DonationID: "d-5"})

	assert.Len(t, pool.inputCh, 1)
}
