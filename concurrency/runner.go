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

package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrManagerAlreadyStarted is returned when a RunnerManager is started twice,
// or when runners are added to a manager which is already running.
var ErrManagerAlreadyStarted = errors.New("runner manager already started")

// Runner is a long running function which returns when its context is
// cancelled or it fails.
type Runner func(ctx context.Context) error

// RunnerManager runs a set of Runners together. When any Runner returns, the
// context of all the others is cancelled.
type RunnerManager struct {
	lock    sync.Mutex
	runners []Runner
	running atomic.Bool
}

// NewRunnerManager creates a new RunnerManager.
func NewRunnerManager(runners ...Runner) *RunnerManager {
	return &RunnerManager{
		runners: runners,
	}
}

// Add adds a new runner to the RunnerManager.
func (r *RunnerManager) Add(runner ...Runner) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.running.Load() {
		return ErrManagerAlreadyStarted
	}
	r.runners = append(r.runners, runner...)
	return nil
}

// Run runs all runners until one returns or ctx is cancelled, then waits for
// every runner to return. Errors from the runners are joined; context.Canceled
// is not reported.
func (r *RunnerManager) Run(ctx context.Context) error {
	r.lock.Lock()
	if !r.running.CompareAndSwap(false, true) {
		r.lock.Unlock()
		return ErrManagerAlreadyStarted
	}
	runners := r.runners
	r.lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(runners))
	for _, runner := range runners {
		go func(runner Runner) {
			rErr := runner(ctx)
			if rErr != nil && !errors.Is(rErr, context.Canceled) {
				errCh <- rErr
				return
			}
			errCh <- nil
		}(runner)
	}

	errObjs := make([]error, 0)
	for range runners {
		err := <-errCh
		// The first runner to return stops the rest.
		cancel()
		if err != nil {
			errObjs = append(errObjs, err)
		}
	}

	return errors.Join(errObjs...)
}
