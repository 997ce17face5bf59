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

package delayqueue

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	kclock "k8s.io/utils/clock"

	"github.com/dapr/queuekit/concurrency/cond"
	"github.com/dapr/queuekit/events/broadcaster"
	"github.com/dapr/queuekit/logger"
	"github.com/dapr/queuekit/ring"
)

// releasedBufferSize is the number of slots the released FIFO grows by.
const releasedBufferSize = 16

var (
	// ErrClosed is returned by operations on a queue which has been closed.
	ErrClosed = errors.New("delay queue is closed")
	// ErrAlreadyRunning is returned by Run when the worker is already running.
	ErrAlreadyRunning = errors.New("delay queue worker is already running")

	errTimeout = errors.New("delay queue wait timed out")
)

var log = logger.NewLogger("queuekit.delayqueue")

// Queue holds items until their delay has elapsed. All methods are safe for
// concurrent use.
type Queue[T any] struct {
	lock    sync.Mutex
	changed *cond.Cond

	clock    kclock.Clock
	log      logger.Logger
	maxDelay time.Duration

	pending  expiryHeap[T]
	released *ring.Buffered[Item[T]]

	closed  bool
	running bool
	state   atomic.Int32
	wg      sync.WaitGroup

	listeners  *haxmap.Map[uint64, Listener]
	listenerID atomic.Uint64
	bcast      *broadcaster.Broadcaster[ChangeEvent]
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	clock           kclock.Clock
	log             logger.Logger
	maxDelay        time.Duration
	watchBufferSize int
}

// WithClock sets the clock used for expiries and waits. Used for testing.
func WithClock(clock kclock.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger of the queue.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMaxDelay caps the delay of added items. Zero means no cap.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxDelay = d
	}
}

// WithWatchBufferSize sets the number of change events buffered for each
// Watch subscriber.
func WithWatchBufferSize(size int) Option {
	return func(o *options) {
		o.watchBufferSize = size
	}
}

// New returns an empty queue. Its worker is not started.
func New[T any](opts ...Option) *Queue[T] {
	o := options{
		clock:           kclock.RealClock{},
		log:             log,
		watchBufferSize: broadcaster.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue[T]{
		clock:     o.clock,
		log:       o.log,
		maxDelay:  o.maxDelay,
		released:  ring.NewBuffered[Item[T]](releasedBufferSize, releasedBufferSize),
		listeners: haxmap.New[uint64, Listener](),
		bcast:     broadcaster.New[ChangeEvent](broadcaster.WithBufferSize(o.watchBufferSize)),
	}
	q.changed = cond.New(&q.lock, cond.WithClock(o.clock))
	return q
}

// Add schedules item to become available after delay. A negative delay is
// treated as zero.
func (q *Queue[T]) Add(item T, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	if q.maxDelay > 0 && delay > q.maxDelay {
		delay = q.maxDelay
	}

	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return ErrClosed
	}
	q.pending.push(Item[T]{
		Value:  item,
		Expiry: q.clock.Now().Add(delay),
	})
	n := q.lenLocked()
	q.changed.Broadcast()
	q.lock.Unlock()

	q.notify(ChangeEvent{Kind: ChangeAdded, Len: n})
	return nil
}

// Poll removes and returns the next eligible item, if any, without waiting.
// It keeps working after Close so that remaining items can be drained.
func (q *Queue[T]) Poll() (T, bool) {
	q.lock.Lock()
	item, ok := q.popEligible(q.clock.Now())
	n := q.lenLocked()
	q.lock.Unlock()

	if !ok {
		var zero T
		return zero, false
	}
	q.notify(ChangeEvent{Kind: ChangeRemoved, Len: n})
	return item.Value, true
}

// Take removes and returns the next item, waiting for as long as it takes
// for one to become eligible. It returns ErrClosed once the queue is closed.
func (q *Queue[T]) Take() (T, error) {
	return q.take(context.Background(), time.Time{})
}

// TakeTimeout is like Take but waits at most d. If no item became eligible in
// time it returns false and a nil error.
func (q *Queue[T]) TakeTimeout(d time.Duration) (T, bool, error) {
	if d < 0 {
		d = 0
	}
	item, err := q.take(context.Background(), q.clock.Now().Add(d))
	if errors.Is(err, errTimeout) {
		return item, false, nil
	}
	return item, err == nil, err
}

// TakeContext is like Take but gives up with ctx.Err() when ctx is done.
func (q *Queue[T]) TakeContext(ctx context.Context) (T, error) {
	return q.take(ctx, time.Time{})
}

func (q *Queue[T]) take(ctx context.Context, deadline time.Time) (T, error) {
	var zero T

	q.lock.Lock()
	for {
		if q.closed {
			q.lock.Unlock()
			return zero, ErrClosed
		}

		now := q.clock.Now()
		if item, ok := q.popEligible(now); ok {
			n := q.lenLocked()
			q.lock.Unlock()
			q.notify(ChangeEvent{Kind: ChangeRemoved, Len: n})
			return item.Value, nil
		}

		if !deadline.IsZero() && !now.Before(deadline) {
			q.lock.Unlock()
			return zero, errTimeout
		}

		// Sleep until the earliest expiry or the deadline, whichever is first.
		wait := deadline
		if top, ok := q.pending.peek(); ok && (wait.IsZero() || top.Expiry.Before(wait)) {
			wait = top.Expiry
		}

		if _, err := q.changed.WaitContext(ctx, wait); err != nil {
			q.lock.Unlock()
			return zero, err
		}
	}
}

// Peek returns the item that will be handed out next without removing it,
// whether or not its delay has elapsed. Check Expiry to tell. It returns
// false only when the queue is empty.
func (q *Queue[T]) Peek() (Item[T], bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if item, ok := q.released.Front(); ok {
		return item, true
	}
	return q.pending.peek()
}

// Len returns the number of items in the queue, eligible or not.
func (q *Queue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.lenLocked()
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Items returns a copy of the queued items in the order they will be
// released.
func (q *Queue[T]) Items() []Item[T] {
	q.lock.Lock()
	defer q.lock.Unlock()

	items := make([]Item[T], 0, q.lenLocked())
	q.released.Range(func(item Item[T]) bool {
		items = append(items, item)
		return true
	})

	pending := slices.Clone(q.pending)
	slices.SortStableFunc(pending, func(a, b Item[T]) int {
		return a.Expiry.Compare(b.Expiry)
	})
	return append(items, pending...)
}

// DelayToNextExpiry returns how long until the next item becomes eligible:
// -1 if the queue is empty and 0 if an item is eligible already.
func (q *Queue[T]) DelayToNextExpiry() time.Duration {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.released.Len() > 0 {
		return 0
	}
	top, ok := q.pending.peek()
	if !ok {
		return -1
	}
	return max(top.Expiry.Sub(q.clock.Now()), 0)
}

// Clear drops every item, eligible or not.
func (q *Queue[T]) Clear() {
	q.lock.Lock()
	q.pending.reset()
	q.released.Reset()
	q.changed.Broadcast()
	q.lock.Unlock()

	q.notify(ChangeEvent{Kind: ChangeCleared})
}

// Close stops the worker and fails any blocked Take with ErrClosed. It
// waits for the worker to return, so it must not be called from a listener.
// Calling Close more than once is a no-op.
func (q *Queue[T]) Close() error {
	q.markClosed()
	q.wg.Wait()
	return nil
}

func (q *Queue[T]) markClosed() {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return
	}
	q.closed = true
	q.changed.Broadcast()
	q.lock.Unlock()

	q.bcast.Close()
}

// popEligible must be called with the lock held. Released items go first;
// anything left in the heap expired after them.
func (q *Queue[T]) popEligible(now time.Time) (Item[T], bool) {
	if item, ok := q.released.PopFront(); ok {
		return item, true
	}
	if top, ok := q.pending.peek(); ok && !now.Before(top.Expiry) {
		return q.pending.pop()
	}
	return Item[T]{}, false
}

func (q *Queue[T]) lenLocked() int {
	return q.released.Len() + q.pending.Len()
}
