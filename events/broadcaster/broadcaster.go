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

// Package broadcaster fans values out to any number of subscriber channels.
package broadcaster

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of values buffered per subscriber.
const DefaultBufferSize = 10

type eventCh[T any] struct {
	id           uint64
	ch           chan<- T
	closeEventCh chan struct{}
}

// Broadcaster delivers broadcast values to every subscriber, in order. Each
// subscriber has its own buffer. Broadcast blocks while a subscriber's buffer
// is full, until that subscriber catches up or its context ends. TryBroadcast
// drops the value for that subscriber instead.
type Broadcaster[T any] struct {
	eventChs   []*eventCh[T]
	currentID  uint64
	bufferSize int
	dropped    atomic.Uint64

	lock    sync.Mutex
	wg      sync.WaitGroup
	closeCh chan struct{}
	closed  atomic.Bool
}

// Option configures a Broadcaster.
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the number of values buffered per subscriber. Values
// less than zero are ignored.
func WithBufferSize(size int) Option {
	return func(o *options) {
		if size >= 0 {
			o.bufferSize = size
		}
	}
}

// New creates a new Broadcaster.
func New[T any](opts ...Option) *Broadcaster[T] {
	o := options{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broadcaster[T]{
		bufferSize: o.bufferSize,
		closeCh:    make(chan struct{}),
	}
}

// Subscribe adds new subscriber channels which receive values until ctx is
// done or the Broadcaster is closed. If the Broadcaster is already closed,
// the subscribers are silently dropped. Subscriber channels are never closed
// by the Broadcaster.
func (b *Broadcaster[T]) Subscribe(ctx context.Context, ch ...chan<- T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, c := range ch {
		b.subscribe(ctx, c)
	}
}

func (b *Broadcaster[T]) subscribe(ctx context.Context, ch chan<- T) {
	if b.closed.Load() {
		return
	}

	id := b.currentID
	b.currentID++
	bufferedCh := make(chan T, b.bufferSize)
	closeEventCh := make(chan struct{})
	b.eventChs = append(b.eventChs, &eventCh[T]{
		id:           id,
		ch:           bufferedCh,
		closeEventCh: closeEventCh,
	})

	b.wg.Add(1)
	go func() {
		defer func() {
			close(closeEventCh)

			b.lock.Lock()
			for i, eventCh := range b.eventChs {
				if eventCh.id == id {
					b.eventChs = append(b.eventChs[:i], b.eventChs[i+1:]...)
					break
				}
			}
			b.lock.Unlock()
			b.wg.Done()
		}()

		for {
			var v T
			select {
			case <-ctx.Done():
				return
			case <-b.closeCh:
				return
			case v = <-bufferedCh:
			}

			select {
			case <-ctx.Done():
				return
			case <-b.closeCh:
				return
			case ch <- v:
			}
		}
	}()
}

// Broadcast sends the given value to all subscribers.
func (b *Broadcaster[T]) Broadcast(value T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed.Load() {
		return
	}
	for _, ev := range b.eventChs {
		select {
		case <-ev.closeEventCh:
		case ev.ch <- value:
		case <-b.closeCh:
		}
	}
}

// TryBroadcast sends the given value to every subscriber which has room for
// it in its buffer, and never blocks. Subscribers with a full buffer miss the
// value, which is counted in Dropped.
func (b *Broadcaster[T]) TryBroadcast(value T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed.Load() {
		return
	}
	for _, ev := range b.eventChs {
		select {
		case <-ev.closeEventCh:
		case ev.ch <- value:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of values TryBroadcast could not deliver, summed
// over all subscribers.
func (b *Broadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster[T]) Subscribers() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.eventChs)
}

// Close closes the Broadcaster and waits for every subscriber goroutine to
// exit. Values still buffered are dropped. The Broadcaster is a no-op after
// this call.
func (b *Broadcaster[T]) Close() {
	// closeCh is closed before taking the lock so that a Broadcast blocked
	// on a full subscriber buffer lets go of it.
	if b.closed.CompareAndSwap(false, true) {
		close(b.closeCh)
	}

	// Wait for any in-flight Subscribe to register with wg.
	b.lock.Lock()
	b.lock.Unlock() //nolint:staticcheck

	b.wg.Wait()
}
