package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	now := time.Now()
	pq := NewPriorityQueue(nil)
	pq.Push(Candle{Pair: "B", Time: now.Add(time.Minute)})
	pq.Push(Candle{Pair: "B", Time: now})
	pq.Push(Candle{Pair: "A", Time: now})
	pq.Push(Candle{Pair: "A", Time: now.Add(-time.Minute)})

	require.Equal(t, 4, pq.Len())
	assert.Equal(t, now.Add(-time.Minute), pq.Peek().(Candle).Time)

	var order []string
	for item := pq.Pop(); item != nil; item = pq.Pop() {
		c := item.(Candle)
		order = append(order, c.Pair+c.Time.Sub(now).String())
	}
	assert.Equal(t, []string{"A-1m0s", "A0s", "B0s", "B1m0s"}, order)
	assert.Nil(t, pq.Peek())
}

func TestPriorityQueue_PopLock(t *testing.T) {
	now := time.Now()
	pq := NewPriorityQueue(nil)
	pq.Push(Candle{Pair: "B", Time: now})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	items := pq.PopLock(ctx)

	pq.Push(Candle{Pair: "A", Time: now})

	var pairs []string
	for len(pairs) < 2 {
		select {
		case item := <-items:
			pairs = append(pairs, item.(Candle).Pair)
		case <-time.After(time.Second):
			t.Fatalf("items not delivered, got %v", pairs)
		}
	}
	assert.ElementsMatch(t, []string{"A", "B"}, pairs)
}

func TestPriorityQueue_PopLockCancel(t *testing.T) {
	pq := NewPriorityQueue(nil)
	ctx, cancel := context.WithCancel(context.Background())
	items := pq.PopLock(ctx)

	cancel()
	select {
	case _, ok := <-items:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer goroutine did not stop")
	}

	pq.Lock()
	assert.Empty(t, pq.waiters)
	pq.Unlock()

	// nobody consumes the queue any more, the candle stays queued
	pq.Push(Candle{Pair: "A", Time: time.Now()})
	assert.Equal(t, 1, pq.Len())
}

func TestPriorityQueue_PopLockKeepsUndelivered(t *testing.T) {
	pq := NewPriorityQueue(nil)
	ctx, cancel := context.WithCancel(context.Background())
	items := pq.PopLock(ctx)

	pq.Push(Candle{Pair: "A", Time: time.Now()})
	// give the consumer time to pop the candle and block on delivery
	assert.Eventually(t, func() bool { return pq.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return pq.Len() == 1 }, time.Second, time.Millisecond)
	_, ok := <-items
	assert.False(t, ok)
}

func TestHeikinAshi(t *testing.T) {
	ha := NewHeikinAshi()
	first := Candle{Pair: "A", Open: 10, High: 14, Low: 8, Close: 12}.ToHeikinAshi(ha)
	assert.Equal(t, 11.0, first.Open)
	assert.Equal(t, 11.0, first.Close)
	assert.Equal(t, 14.0, first.High)
	assert.Equal(t, 8.0, first.Low)

	second := Candle{Pair: "A", Open: 12, High: 13, Low: 11, Close: 12}.ToHeikinAshi(ha)
	assert.Equal(t, 11.0, second.Open)
	assert.Equal(t, 12.0, second.Close)
	assert.Equal(t, 13.0, second.High)
	assert.Equal(t, 11.0, second.Low)
}

func TestHeikinAshi_Fork(t *testing.T) {
	ha := NewHeikinAshi()
	Candle{Pair: "A", Open: 10, High: 14, Low: 8, Close: 12}.ToHeikinAshi(ha)

	forming := Candle{Pair: "A", Open: 12, High: 20, Low: 4, Close: 16}
	preview := forming.ToHeikinAshi(ha.Fork())
	assert.Equal(t, 11.0, preview.Open)
	assert.Equal(t, 13.0, preview.Close)

	closed := Candle{Pair: "A", Open: 12, High: 13, Low: 11, Close: 12}.ToHeikinAshi(ha)
	assert.Equal(t, 11.0, closed.Open, "the preview must not become the previous candle")
	assert.Equal(t, 12.0, closed.Close)
}
