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

// Package cond implements condition variables whose waits can be bounded by
// a deadline or a context.
package cond

import (
	"container/list"
	"context"
	"sync"
	"time"

	kclock "k8s.io/utils/clock"
)

type waiter struct {
	ch       chan struct{}
	signaled bool
}

// Cond is a wait condition bound to a Locker. Unlike sync.Cond, waits may be
// abandoned when a deadline passes or a context is done.
//
// Wait, WaitContext, Signal, Broadcast and Waiters must all be called with L
// held.
type Cond struct {
	L sync.Locker

	clock   kclock.Clock
	waiters *list.List
}

// Option configures a Cond.
type Option func(*Cond)

// WithClock sets the clock used to time deadlines. Used for testing.
func WithClock(clock kclock.Clock) Option {
	return func(c *Cond) {
		c.clock = clock
	}
}

// New returns a Cond bound to l.
func New(l sync.Locker, opts ...Option) *Cond {
	c := &Cond{
		L:       l,
		clock:   kclock.RealClock{},
		waiters: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wait atomically unlocks c.L and suspends the calling goroutine until it is
// woken by Signal or Broadcast, or until deadline passes. A zero deadline
// waits indefinitely. c.L is locked again before Wait returns.
// The result reports whether the goroutine was woken by Signal or Broadcast.
// Callers must re-check their condition in a loop either way.
func (c *Cond) Wait(deadline time.Time) bool {
	ok, _ := c.WaitContext(context.Background(), deadline)
	return ok
}

// WaitContext is like Wait, but also returns early with ctx.Err() if the
// context is done before the goroutine is woken.
func (c *Cond) WaitContext(ctx context.Context, deadline time.Time) (bool, error) {
	w := &waiter{ch: make(chan struct{})}

	var timerCh <-chan time.Time
	if !deadline.IsZero() {
		d := deadline.Sub(c.clock.Now())
		if d <= 0 {
			return false, nil
		}
		t := c.clock.NewTimer(d)
		defer t.Stop()
		timerCh = t.C()
	}

	e := c.waiters.PushBack(w)
	c.L.Unlock()

	var err error
	select {
	case <-w.ch:
	case <-timerCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.L.Lock()

	// A wakeup racing with a timeout or cancellation wins, so that no Signal
	// is ever lost.
	if w.signaled {
		return true, nil
	}
	c.waiters.Remove(e)
	return false, err
}

// Signal wakes the goroutine that has been waiting the longest, if any.
func (c *Cond) Signal() {
	e := c.waiters.Front()
	if e == nil {
		return
	}
	c.waiters.Remove(e)
	wake(e.Value.(*waiter))
}

// Broadcast wakes all waiting goroutines.
func (c *Cond) Broadcast() {
	for e := c.waiters.Front(); e != nil; e = e.Next() {
		wake(e.Value.(*waiter))
	}
	c.waiters.Init()
}

// Waiters returns the number of goroutines currently waiting.
func (c *Cond) Waiters() int {
	return c.waiters.Len()
}

func wake(w *waiter) {
	w.signaled = true
	close(w.ch)
}
