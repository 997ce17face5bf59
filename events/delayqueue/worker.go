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
	"time"
)

// WorkerState is the state of the background worker.
type WorkerState int32

const (
	// WorkerNotStarted means Run has not been called yet.
	WorkerNotStarted WorkerState = iota
	// WorkerIdle means the heap is empty and the worker waits for an Add.
	WorkerIdle
	// WorkerSleeping means the worker waits for the earliest expiry.
	WorkerSleeping
	// WorkerReleasing means the worker is moving expired items to the
	// released FIFO.
	WorkerReleasing
	// WorkerStopped means the worker has returned.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerNotStarted:
		return "NotStarted"
	case WorkerIdle:
		return "Idle"
	case WorkerSleeping:
		return "Sleeping"
	case WorkerReleasing:
		return "Releasing"
	case WorkerStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WorkerState returns the current state of the worker.
func (q *Queue[T]) WorkerState() WorkerState {
	return WorkerState(q.state.Load())
}

// Run runs the worker which releases expired items, until ctx is done or the
// queue is closed. The queue is closed when Run returns.
func (q *Queue[T]) Run(ctx context.Context) error {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return ErrClosed
	}
	if q.running {
		q.lock.Unlock()
		return ErrAlreadyRunning
	}
	q.running = true
	q.wg.Add(1)
	q.lock.Unlock()

	defer q.wg.Done()
	defer q.markClosed()

	q.log.Debug("Delay queue worker started")
	defer q.log.Debug("Delay queue worker stopped")

	q.lock.Lock()
	for !q.closed && ctx.Err() == nil {
		if n := q.releaseExpired(q.clock.Now()); n > 0 {
			q.setState(WorkerReleasing)
			q.changed.Broadcast()
			size := q.lenLocked()
			q.lock.Unlock()

			for range n {
				q.notify(ChangeEvent{Kind: ChangeReleased, Len: size})
			}

			q.lock.Lock()
			continue
		}

		var wait time.Time
		if top, ok := q.pending.peek(); ok {
			q.setState(WorkerSleeping)
			wait = top.Expiry
		} else {
			q.setState(WorkerIdle)
		}

		// Woken by Add, Clear, Close or the expiry of the earliest item.
		// Spurious wakeups loop back and re-evaluate.
		if _, err := q.changed.WaitContext(ctx, wait); err != nil {
			break
		}
	}
	q.setState(WorkerStopped)
	q.lock.Unlock()

	return nil
}

// releaseExpired must be called with the lock held. It moves every item that
// has expired by now to the released FIFO and returns how many it moved.
func (q *Queue[T]) releaseExpired(now time.Time) int {
	var n int
	for {
		top, ok := q.pending.peek()
		if !ok || now.Before(top.Expiry) {
			return n
		}
		q.pending.pop()
		q.released.PushBack(top)
		n++
	}
}

func (q *Queue[T]) setState(s WorkerState) {
	q.state.Store(int32(s))
}
