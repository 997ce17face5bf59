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
)

// ChangeKind describes what changed in a queue.
type ChangeKind int

const (
	// ChangeAdded is emitted after an item is added.
	ChangeAdded ChangeKind = iota
	// ChangeReleased is emitted after the worker releases an expired item.
	ChangeReleased
	// ChangeRemoved is emitted after a consumer takes an item.
	ChangeRemoved
	// ChangeCleared is emitted after the queue is cleared.
	ChangeCleared
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "Added"
	case ChangeReleased:
		return "Released"
	case ChangeRemoved:
		return "Removed"
	case ChangeCleared:
		return "Cleared"
	default:
		return "Unknown"
	}
}

// ChangeEvent is delivered to listeners and watchers after every change.
type ChangeEvent struct {
	Kind ChangeKind
	// Len is the number of items in the queue right after the change. The
	// worker releases expired items in batches and emits one ChangeReleased
	// per item once the batch is done, so every event of a batch carries the
	// length after the whole batch. Releasing moves items within the queue,
	// so that length is also the length before the batch.
	Len int
}

// Listener is invoked after the queue changed. It is never invoked with the
// queue lock held, so it may call back into the queue.
type Listener func(ChangeEvent)

// ListenerID identifies a registered Listener.
type ListenerID uint64

// AddChangeListener registers fn and returns the ID to remove it with.
// Listeners are invoked in no particular order.
func (q *Queue[T]) AddChangeListener(fn Listener) ListenerID {
	id := q.listenerID.Add(1)
	q.listeners.Set(id, fn)
	return ListenerID(id)
}

// RemoveChangeListener unregisters the listener with the given ID. It returns
// false if no such listener is registered.
func (q *Queue[T]) RemoveChangeListener(id ListenerID) bool {
	_, ok := q.listeners.GetAndDel(uint64(id))
	return ok
}

// Watch sends change events to ch until ctx is done or the queue is closed.
// ch is never closed. Queue operations never wait on a watcher: one which
// falls behind by more than the watch buffer size misses events, which are
// counted in DroppedWatchEvents.
func (q *Queue[T]) Watch(ctx context.Context, ch chan<- ChangeEvent) {
	q.bcast.Subscribe(ctx, ch)
}

// DroppedWatchEvents returns the number of change events that watchers missed
// because their buffer was full.
func (q *Queue[T]) DroppedWatchEvents() uint64 {
	return q.bcast.Dropped()
}

// notify must be called without the lock held.
func (q *Queue[T]) notify(ev ChangeEvent) {
	q.listeners.ForEach(func(id uint64, fn Listener) bool {
		q.invoke(id, fn, ev)
		return true
	})
	q.bcast.TryBroadcast(ev)
}

func (q *Queue[T]) invoke(id uint64, fn Listener, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("Delay queue change listener %d panicked on %s event: %v", id, ev.Kind, r)
		}
	}()
	fn(ev)
}
