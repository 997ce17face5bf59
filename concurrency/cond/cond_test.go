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

package cond

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func waiters(l sync.Locker, c *Cond) func() int {
	return func() int {
		l.Lock()
		defer l.Unlock()
		return c.Waiters()
	}
}

func TestSignal(t *testing.T) {
	var lock sync.Mutex
	c := New(&lock)

	wokenCh := make(chan int, 2)
	for i := range 2 {
		go func() {
			lock.Lock()
			defer lock.Unlock()
			if c.Wait(time.Time{}) {
				wokenCh <- i
			}
		}()
	}

	assert.Eventually(t, func() bool { return waiters(&lock, c)() == 2 }, time.Second, 5*time.Millisecond)

	lock.Lock()
	c.Signal()
	lock.Unlock()

	select {
	case <-wokenCh:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken in 1s")
	}

	select {
	case i := <-wokenCh:
		t.Fatalf("signal woke a second waiter: %d", i)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, waiters(&lock, c)())

	lock.Lock()
	c.Signal()
	lock.Unlock()

	select {
	case <-wokenCh:
	case <-time.After(time.Second):
		t.Fatal("second waiter was not woken in 1s")
	}
	assert.Equal(t, 0, waiters(&lock, c)())

	// Signal with nobody waiting is a no-op.
	lock.Lock()
	c.Signal()
	lock.Unlock()
}

func TestBroadcast(t *testing.T) {
	var lock sync.Mutex
	c := New(&lock)

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			lock.Lock()
			defer lock.Unlock()
			assert.True(t, c.Wait(time.Time{}))
		}()
	}

	assert.Eventually(t, func() bool { return waiters(&lock, c)() == n }, time.Second, 5*time.Millisecond)

	lock.Lock()
	c.Broadcast()
	lock.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters were not woken in 1s")
	}
	assert.Equal(t, 0, waiters(&lock, c)())
}

func TestWaitDeadline(t *testing.T) {
	clock := clocktesting.NewFakeClock(time.Now())

	t.Run("deadline passes", func(t *testing.T) {
		var lock sync.Mutex
		c := New(&lock, WithClock(clock))

		resultCh := make(chan bool)
		go func() {
			lock.Lock()
			defer lock.Unlock()
			resultCh <- c.Wait(clock.Now().Add(time.Second))
		}()

		assert.Eventually(t, clock.HasWaiters, time.Second, 5*time.Millisecond)
		clock.Step(time.Second)

		select {
		case ok := <-resultCh:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("wait did not time out")
		}
		assert.Equal(t, 0, waiters(&lock, c)())
	})

	t.Run("woken before deadline", func(t *testing.T) {
		var lock sync.Mutex
		c := New(&lock, WithClock(clock))

		resultCh := make(chan bool)
		go func() {
			lock.Lock()
			defer lock.Unlock()
			resultCh <- c.Wait(clock.Now().Add(time.Hour))
		}()

		assert.Eventually(t, func() bool { return waiters(&lock, c)() == 1 }, time.Second, 5*time.Millisecond)
		lock.Lock()
		c.Signal()
		lock.Unlock()

		select {
		case ok := <-resultCh:
			assert.True(t, ok)
		case <-time.After(time.Second):
			t.Fatal("wait was not woken")
		}
		assert.False(t, clock.HasWaiters())
	})

	t.Run("deadline already passed", func(t *testing.T) {
		var lock sync.Mutex
		c := New(&lock, WithClock(clock))

		lock.Lock()
		assert.False(t, c.Wait(clock.Now().Add(-time.Millisecond)))
		assert.False(t, c.Wait(clock.Now()))
		assert.Equal(t, 0, c.Waiters())
		lock.Unlock()
	})
}

func TestWaitContext(t *testing.T) {
	var lock sync.Mutex
	c := New(&lock)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error)
	go func() {
		lock.Lock()
		defer lock.Unlock()
		ok, err := c.WaitContext(ctx, time.Time{})
		assert.False(t, ok)
		errCh <- err
	}()

	assert.Eventually(t, func() bool { return waiters(&lock, c)() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("wait did not return on cancellation")
	}
	assert.Equal(t, 0, waiters(&lock, c)())
}
