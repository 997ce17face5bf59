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

// Package ctesting runs producer and consumer goroutines inside tests and
// reports their assertion failures on the owning *testing.T.
package ctesting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapr/queuekit/concurrency"
	"github.com/dapr/queuekit/concurrency/ctesting/internal"
)

// runnerStopTimeout bounds how long AssertCleanup waits for each runner.
const runnerStopTimeout = 10 * time.Second

// RunnerFn is a test goroutine. Failures are recorded on the given TestingT,
// which is safe for concurrent use.
type RunnerFn func(context.Context, assert.TestingT)

// Assert runs the given functions in parallel and blocks until all of them
// return. The first failing function cancels the context of the others.
func Assert(t *testing.T, runners ...RunnerFn) {
	t.Helper()

	if len(runners) == 0 {
		require.Fail(t, "at least one runner function is required")
	}

	tt := internal.Assert(t)

	ctx, cancel := context.WithCancelCause(t.Context())
	t.Cleanup(func() { cancel(nil) })

	doneCh := make(chan struct{}, len(runners))
	for _, runner := range runners {
		go func(rfn RunnerFn) {
			defer func() { doneCh <- struct{}{} }()
			rfn(ctx, tt)
			if errs := tt.Errors(); len(errs) > 0 {
				cancel(errors.Join(errs...))
			}
		}(runner)
	}

	for range len(runners) {
		select {
		case <-doneCh:
		case <-t.Context().Done():
			require.FailNow(t, "test context was cancelled before all runners completed")
		}
	}

	for _, err := range tt.Errors() {
		assert.NoError(t, err)
	}
}

// AssertCleanup starts the given runners in the background. They are stopped
// when the test finishes, and each must then return a nil error.
func AssertCleanup(t *testing.T, runners ...concurrency.Runner) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())

	errCh := make(chan error, len(runners))
	for _, runner := range runners {
		go func(rfn concurrency.Runner) {
			errCh <- rfn(ctx)
		}(runner)
	}

	t.Cleanup(func() {
		cancel()
		for range runners {
			select {
			case err := <-errCh:
				require.NoError(t, err)
			case <-time.After(runnerStopTimeout):
				assert.Fail(t, "timeout waiting for runner to stop")
			}
		}
	})
}
