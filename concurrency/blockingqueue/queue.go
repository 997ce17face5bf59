/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package blockingqueue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	kclock "k8s.io/utils/clock"

	"github.com/dapr/queuekit/concurrency/cond"
	"github.com/dapr/queuekit/ring"
)

// Unbounded is the capacity of a queue created with NewUnbounded.
const Unbounded = math.MaxInt

// maxRingBuffer caps the number of slots the element ring grows or shrinks by.
const maxRingBuffer = 64

// ErrInvalidCapacity is returned when a queue is created with a capacity
// which is not positive.
var ErrInvalidCapacity = errors.New("blocking queue capacity must be greater than zero")

// errTimeout ends a bounded wait; it never leaves the package.
var errTimeout = errors.New("blocking queue wait timed out")

// Queue is a FIFO queue holding at most Cap() elements. Producers block while
// the queue is full and consumers block while it is empty.
// There is no fairness between blocked goroutines: which waiter is woken is
// unspecified, and a non-blocking Offer or Poll may overtake a goroutine
// that was just woken.
type Queue[T any] struct {
	lock     sync.Mutex
	notFull  *cond.Cond
	notEmpty *cond.Cond

	clock    kclock.Clock
	items    *ring.Buffered[T]
	capacity int

	waitingProducers atomic.Int64
	waitingConsumers atomic.Int64
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	clock kclock.Clock
}

// WithClock sets the clock used for timeouts. Used for testing.
func WithClock(clock kclock.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New returns a queue which holds at most capacity elements.
func New[T any](capacity int, opts ...Option) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	o := options{clock: kclock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	bsize := min(capacity, maxRingBuffer)
	q := &Queue[T]{
		clock:    o.clock,
		items:    ring.NewBuffered[T](bsize, bsize),
		capacity: capacity,
	}
	q.notFull = cond.New(&q.lock, cond.WithClock(o.clock))
	q.notEmpty = cond.New(&q.lock, cond.WithClock(o.clock))
	return q, nil
}

// NewUnbounded returns a queue whose Put never blocks.
func NewUnbounded[T any](opts ...Option) *Queue[T] {
	q, _ := New[T](Unbounded, opts...)
	return q
}

// Put appends item to the queue, waiting for as long as it takes for space
// to become available.
func (q *Queue[T]) Put(item T) {
	_ = q.put(context.Background(), item, time.Time{})
}

// PutTimeout appends item to the queue, waiting at most d for space to become
// available. It returns false if the queue was still full when d elapsed.
func (q *Queue[T]) PutTimeout(item T, d time.Duration) bool {
	return q.put(context.Background(), item, q.deadline(d)) == nil
}

// PutContext appends item to the queue, waiting until space is available or
// ctx is done.
func (q *Queue[T]) PutContext(ctx context.Context, item T) error {
	return q.put(ctx, item, time.Time{})
}

// Offer appends item only if it can do so immediately. It returns false if
// the queue is full or another goroutine holds the queue lock.
func (q *Queue[T]) Offer(item T) bool {
	if !q.lock.TryLock() {
		return false
	}
	defer q.lock.Unlock()

	if q.items.Len() >= q.capacity {
		return false
	}
	q.push(item)
	return true
}

// Take removes and returns the head of the queue, waiting for as long as it
// takes for an element to arrive.
func (q *Queue[T]) Take() T {
	item, _ := q.take(context.Background(), time.Time{})
	return item
}

// TakeTimeout removes and returns the head of the queue, waiting at most d
// for an element to arrive. It returns false if the queue was still empty
// when d elapsed.
func (q *Queue[T]) TakeTimeout(d time.Duration) (T, bool) {
	item, err := q.take(context.Background(), q.deadline(d))
	return item, err == nil
}

// TakeContext removes and returns the head of the queue, waiting until an
// element arrives or ctx is done.
func (q *Queue[T]) TakeContext(ctx context.Context) (T, error) {
	return q.take(ctx, time.Time{})
}

// Poll removes and returns the head of the queue only if it can do so
// immediately. It returns false if the queue is empty or another goroutine
// holds the queue lock.
func (q *Queue[T]) Poll() (T, bool) {
	if !q.lock.TryLock() {
		var zero T
		return zero, false
	}
	defer q.lock.Unlock()

	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// Peek returns the head of the queue without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.items.Front()
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.items.Len()
}

// IsEmpty reports whether the queue holds no elements.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether the queue holds Cap() elements.
func (q *Queue[T]) IsFull() bool {
	return q.Len() == q.capacity
}

// Cap returns the capacity of the queue.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Clear drops every element and wakes all blocked producers.
func (q *Queue[T]) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items.Reset()
	q.notFull.Broadcast()
}

// Items returns a copy of the queued elements, oldest first.
func (q *Queue[T]) Items() []T {
	q.lock.Lock()
	defer q.lock.Unlock()

	items := make([]T, 0, q.items.Len())
	q.items.Range(func(v T) bool {
		items = append(items, v)
		return true
	})
	return items
}

// WaitingProducers returns the number of goroutines blocked in Put.
func (q *Queue[T]) WaitingProducers() int {
	return int(q.waitingProducers.Load())
}

// WaitingConsumers returns the number of goroutines blocked in Take.
func (q *Queue[T]) WaitingConsumers() int {
	return int(q.waitingConsumers.Load())
}

func (q *Queue[T]) deadline(d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}
	// A zero deadline means no deadline, so a zero timeout must still
	// produce an instant in the past or present.
	return q.clock.Now().Add(d)
}

// put waits until there is room for item. It gives up with errTimeout once
// deadline passes, or with ctx.Err().
func (q *Queue[T]) put(ctx context.Context, item T, deadline time.Time) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	for q.items.Len() >= q.capacity {
		q.waitingProducers.Add(1)
		signaled, err := q.notFull.WaitContext(ctx, deadline)
		q.waitingProducers.Add(-1)
		if err != nil {
			return err
		}
		if !signaled && !deadline.IsZero() && !q.clock.Now().Before(deadline) {
			// Deadline passed; one last look before giving up.
			if q.items.Len() >= q.capacity {
				return errTimeout
			}
			break
		}
	}

	q.push(item)
	return nil
}

func (q *Queue[T]) take(ctx context.Context, deadline time.Time) (T, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for q.items.Len() == 0 {
		q.waitingConsumers.Add(1)
		signaled, err := q.notEmpty.WaitContext(ctx, deadline)
		q.waitingConsumers.Add(-1)
		if err != nil {
			var zero T
			return zero, err
		}
		if !signaled && !deadline.IsZero() && !q.clock.Now().Before(deadline) {
			if q.items.Len() == 0 {
				var zero T
				return zero, errTimeout
			}
			break
		}
	}

	return q.pop(), nil
}

// push must be called with the lock held.
func (q *Queue[T]) push(item T) {
	q.items.PushBack(item)
	q.notEmpty.Signal()
}

// pop must be called with the lock held and a non-empty queue.
func (q *Queue[T]) pop() T {
	item, _ := q.items.PopFront()
	q.notFull.Signal()
	return item
}
