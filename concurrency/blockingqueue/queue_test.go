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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/dapr/queuekit/concurrency/ctesting"
)

func newTestQueue[T any](t *testing.T, capacity int) (*Queue[T], *clocktesting.FakeClock) {
	t.Helper()
	clock := clocktesting.NewFakeClock(time.Now())
	q, err := New[T](capacity, WithClock(clock))
	require.NoError(t, err)
	return q, clock
}

func TestNew(t *testing.T) {
	t.Run("invalid capacity", func(t *testing.T) {
		for _, c := range []int{0, -1} {
			q, err := New[int](c)
			require.ErrorIs(t, err, ErrInvalidCapacity)
			assert.Nil(t, q)
		}
	})

	t.Run("unbounded", func(t *testing.T) {
		q := NewUnbounded[int]()
		assert.Equal(t, Unbounded, q.Cap())
		for i := range 1000 {
			q.Put(i)
		}
		assert.Equal(t, 1000, q.Len())
		assert.False(t, q.IsFull())
	})
}

func TestNewFromMetadata(t *testing.T) {
	tests := map[string]struct {
		md     map[string]string
		expCap int
		expErr bool
	}{
		"capacity":         {md: map[string]string{"capacity": "5"}, expCap: 5},
		"maxSize alias":    {md: map[string]string{"maxSize": "3"}, expCap: 3},
		"size alias":       {md: map[string]string{"SIZE": "2"}, expCap: 2},
		"missing":          {md: map[string]string{}, expCap: Unbounded},
		"nil":              {md: nil, expCap: Unbounded},
		"zero":             {md: map[string]string{"capacity": "0"}, expErr: true},
		"not a number":     {md: map[string]string{"capacity": "lots"}, expErr: true},
		"duplicate casing": {md: map[string]string{"capacity": "1", "Capacity": "2"}, expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			q, err := NewFromMetadata[string](test.md)
			if test.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expCap, q.Cap())
		})
	}
}

func TestOfferAndPoll(t *testing.T) {
	q, _ := newTestQueue[int](t, 2)

	q.Put(1)
	q.Put(2)
	assert.False(t, q.Offer(3))
	assert.Equal(t, 1, q.Take())
	assert.True(t, q.Offer(3))
	assert.Equal(t, 2, q.Len())
	assert.True(t, q.IsFull())
	assert.Equal(t, []int{2, 3}, q.Items())

	v, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = q.Poll()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = q.Poll()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = q.Poll()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestNonBlockingWhenContended(t *testing.T) {
	q, _ := newTestQueue[int](t, 2)
	q.Put(1)

	q.lock.Lock()
	assert.False(t, q.Offer(2))
	_, ok := q.Poll()
	assert.False(t, ok)
	q.lock.Unlock()

	assert.True(t, q.Offer(2))
	v, ok := q.Poll()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTakeTimeout(t *testing.T) {
	t.Run("times out on an empty queue", func(t *testing.T) {
		q, clock := newTestQueue[int](t, 1)

		resCh := make(chan bool)
		go func() {
			_, ok := q.TakeTimeout(time.Second)
			resCh <- ok
		}()

		assert.Eventually(t, clock.HasWaiters, time.Second, time.Millisecond)
		assert.Equal(t, 1, q.WaitingConsumers())

		clock.Step(time.Second - time.Millisecond)
		select {
		case <-resCh:
			assert.Fail(t, "returned before the timeout")
		case <-time.After(10 * time.Millisecond):
		}

		clock.Step(time.Millisecond)
		select {
		case ok := <-resCh:
			assert.False(t, ok)
		case <-time.After(5 * time.Second):
			require.Fail(t, "did not time out")
		}
		assert.Equal(t, 0, q.WaitingConsumers())
	})

	t.Run("zero timeout returns immediately", func(t *testing.T) {
		q, _ := newTestQueue[int](t, 1)
		_, ok := q.TakeTimeout(0)
		assert.False(t, ok)

		q.Put(7)
		v, ok := q.TakeTimeout(0)
		assert.True(t, ok)
		assert.Equal(t, 7, v)
	})

	t.Run("returns the item when one arrives in time", func(t *testing.T) {
		q, clock := newTestQueue[int](t, 1)

		resCh := make(chan int)
		go func() {
			v, ok := q.TakeTimeout(time.Minute)
			assert.True(t, ok)
			resCh <- v
		}()

		assert.Eventually(t, clock.HasWaiters, time.Second, time.Millisecond)
		q.Put(42)

		select {
		case v := <-resCh:
			assert.Equal(t, 42, v)
		case <-time.After(5 * time.Second):
			require.Fail(t, "consumer was not woken")
		}
	})
}

func TestPutTimeout(t *testing.T) {
	t.Run("times out on a full queue", func(t *testing.T) {
		q, clock := newTestQueue[int](t, 1)
		q.Put(1)

		resCh := make(chan bool)
		go func() {
			resCh <- q.PutTimeout(2, time.Second)
		}()

		assert.Eventually(t, clock.HasWaiters, time.Second, time.Millisecond)
		assert.Equal(t, 1, q.WaitingProducers())
		clock.Step(time.Second)

		select {
		case ok := <-resCh:
			assert.False(t, ok)
		case <-time.After(5 * time.Second):
			require.Fail(t, "did not time out")
		}
		assert.Equal(t, []int{1}, q.Items())
	})

	t.Run("succeeds when space frees in time", func(t *testing.T) {
		q, clock := newTestQueue[int](t, 1)
		q.Put(1)

		resCh := make(chan bool)
		go func() {
			resCh <- q.PutTimeout(2, time.Second)
		}()

		assert.Eventually(t, clock.HasWaiters, time.Second, time.Millisecond)
		assert.Equal(t, 1, q.Take())

		select {
		case ok := <-resCh:
			assert.True(t, ok)
		case <-time.After(5 * time.Second):
			require.Fail(t, "producer was not woken")
		}
		assert.Equal(t, []int{2}, q.Items())
	})
}

func TestContextVariants(t *testing.T) {
	t.Run("take returns context error", func(t *testing.T) {
		q, _ := newTestQueue[int](t, 1)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := q.TakeContext(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("put returns context error", func(t *testing.T) {
		q, _ := newTestQueue[int](t, 1)
		q.Put(1)

		ctx, cancel := context.WithCancel(t.Context())
		errCh := make(chan error)
		go func() {
			errCh <- q.PutContext(ctx, 2)
		}()

		assert.Eventually(t, func() bool { return q.WaitingProducers() == 1 }, time.Second, time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			require.Fail(t, "producer did not return")
		}
		assert.Equal(t, 1, q.Len())
		assert.Equal(t, 0, q.WaitingProducers())
	})

	t.Run("take context receives item", func(t *testing.T) {
		q, _ := newTestQueue[string](t, 1)
		require.NoError(t, q.PutContext(t.Context(), "a"))
		v, err := q.TakeContext(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "a", v)
	})
}

func TestClear(t *testing.T) {
	t.Run("wakes blocked producers", func(t *testing.T) {
		q, _ := newTestQueue[int](t, 1)
		q.Put(0)

		var wg sync.WaitGroup
		wg.Add(2)
		for i := 1; i <= 2; i++ {
			go func(i int) {
				defer wg.Done()
				q.Put(i)
			}(i)
		}

		assert.Eventually(t, func() bool { return q.WaitingProducers() == 2 }, time.Second, time.Millisecond)
		q.Clear()

		// One producer fills the queue, the other goes back to waiting.
		assert.Eventually(t, func() bool {
			return q.Len() == 1 && q.WaitingProducers() == 1
		}, time.Second, time.Millisecond)

		q.Take()
		wg.Wait()
		assert.Equal(t, 1, q.Len())
	})

	t.Run("does not wake consumers", func(t *testing.T) {
		q, _ := newTestQueue[int](t, 1)

		doneCh := make(chan int)
		go func() {
			doneCh <- q.Take()
		}()

		assert.Eventually(t, func() bool { return q.WaitingConsumers() == 1 }, time.Second, time.Millisecond)
		q.Clear()
		assert.Never(t, func() bool { return q.WaitingConsumers() != 1 }, 50*time.Millisecond, time.Millisecond)

		q.Put(9)
		assert.Equal(t, 9, <-doneCh)
	})
}

func TestBlockingPutTake(t *testing.T) {
	q, _ := newTestQueue[int](t, 1)
	q.Put(1)

	doneCh := make(chan struct{})
	go func() {
		q.Put(2)
		close(doneCh)
	}()

	assert.Eventually(t, func() bool { return q.WaitingProducers() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, q.Take())
	<-doneCh
	assert.Equal(t, 2, q.Take())
}

func TestProducersConsumers(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perProd   = 500
		capacity  = 8
	)

	q, err := New[[2]int](capacity)
	require.NoError(t, err)

	var (
		lock sync.Mutex
		seen = make(map[[2]int]int)
	)

	runners := make([]ctesting.RunnerFn, 0, producers+consumers+1)
	for p := range producers {
		runners = append(runners, func(ctx context.Context, c assert.TestingT) {
			for i := range perProd {
				assert.NoError(c, q.PutContext(ctx, [2]int{p, i}))
			}
		})
	}
	for range consumers {
		runners = append(runners, func(ctx context.Context, c assert.TestingT) {
			last := make(map[int]int)
			for range producers * perProd / consumers {
				v, err := q.TakeContext(ctx)
				if !assert.NoError(c, err) {
					return
				}
				// Items of one producer reach any single consumer in order.
				if prev, ok := last[v[0]]; ok {
					assert.Greater(c, v[1], prev)
				}
				last[v[0]] = v[1]

				lock.Lock()
				seen[v]++
				lock.Unlock()
			}
		})
	}
	runners = append(runners, func(ctx context.Context, c assert.TestingT) {
		for range 1000 {
			assert.LessOrEqual(c, q.Len(), q.Cap())
		}
	})

	ctesting.Assert(t, runners...)

	assert.Len(t, seen, producers*perProd)
	for k, n := range seen {
		assert.Equalf(t, 1, n, "item %v taken %d times", k, n)
	}
	assert.True(t, q.IsEmpty())
}
