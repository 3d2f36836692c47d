package core

import (
	"context"
	"slices"
	"sync"
)

// Item is an interface for objects that can be compared for priority ordering
type Item interface {
	Less(Item) bool
}

// PriorityQueue is a thread-safe min-heap. Items for which Less reports true
// are dequeued first.
type PriorityQueue struct {
	sync.Mutex
	data    []Item
	waiters []chan struct{}
}

// NewPriorityQueue creates a queue holding the provided items
func NewPriorityQueue(data []Item) *PriorityQueue {
	q := &PriorityQueue{data: data}
	for i := len(q.data) >> 1; i >= 0; i-- {
		q.down(i)
	}
	return q
}

// Push adds an item and wakes the PopLock consumers
func (q *PriorityQueue) Push(item Item) {
	q.Lock()
	q.push(item)
	waiters := q.waiters
	q.Unlock()

	for _, ch := range waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (q *PriorityQueue) push(item Item) {
	q.data = append(q.data, item)
	q.up(len(q.data) - 1)
}

// PopLock returns a channel delivering queued items in order, including the
// items queued before the call. The channel is closed once ctx is done and an
// item that could not be delivered goes back to the queue.
func (q *PriorityQueue) PopLock(ctx context.Context) <-chan Item {
	notify := make(chan struct{}, 1)
	notify <- struct{}{}
	out := make(chan Item)

	q.Lock()
	q.waiters = append(q.waiters, notify)
	q.Unlock()

	go func() {
		defer close(out)
		defer q.removeWaiter(notify)

		for {
			select {
			case <-ctx.Done():
				return
			case <-notify:
			}

			for item := q.Pop(); item != nil; item = q.Pop() {
				select {
				case out <- item:
				case <-ctx.Done():
					q.Lock()
					q.push(item)
					q.Unlock()
					return
				}
			}
		}
	}()
	return out
}

// removeWaiter leaves the old slice untouched, Push ranges over it unlocked
func (q *PriorityQueue) removeWaiter(notify chan struct{}) {
	q.Lock()
	defer q.Unlock()
	q.waiters = slices.DeleteFunc(slices.Clone(q.waiters), func(ch chan struct{}) bool {
		return ch == notify
	})
}

// Pop removes and returns the smallest item, or nil when empty
func (q *PriorityQueue) Pop() Item {
	q.Lock()
	defer q.Unlock()

	n := len(q.data)
	if n == 0 {
		return nil
	}

	top := q.data[0]
	q.data[0] = q.data[n-1]
	q.data[n-1] = nil
	q.data = q.data[:n-1]
	if len(q.data) > 0 {
		q.down(0)
	}
	return top
}

// Peek returns the smallest item without removing it
func (q *PriorityQueue) Peek() Item {
	q.Lock()
	defer q.Unlock()

	if len(q.data) == 0 {
		return nil
	}
	return q.data[0]
}

func (q *PriorityQueue) Len() int {
	q.Lock()
	defer q.Unlock()
	return len(q.data)
}

func (q *PriorityQueue) down(pos int) {
	n := len(q.data)
	if n == 0 {
		return
	}
	item := q.data[pos]
	for {
		left := pos<<1 + 1
		if left >= n {
			break
		}
		best := left
		if right := left + 1; right < n && q.data[right].Less(q.data[left]) {
			best = right
		}
		if !q.data[best].Less(item) {
			break
		}
		q.data[pos] = q.data[best]
		pos = best
	}
	q.data[pos] = item
}

func (q *PriorityQueue) up(pos int) {
	item := q.data[pos]
	for pos > 0 {
		parent := (pos - 1) >> 1
		if !item.Less(q.data[parent]) {
			break
		}
		q.data[pos] = q.data[parent]
		pos = parent
	}
	q.data[pos] = item
}
