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

package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dapr/queuekit/concurrency"
	"github.com/dapr/queuekit/events/delayqueue"
	"github.com/dapr/queuekit/metadata"
)

type delayOptions struct {
	items       int
	maxDelay    time.Duration
	watchBuffer int
}

type scheduled struct {
	id    int
	delay time.Duration
	added time.Time
}

func newDelayCmd() *cobra.Command {
	var opts delayOptions

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Schedule items with random delays on a delay queue and print them as they are released",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelay(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.items, "items", 10, "Number of items to schedule")
	cmd.Flags().DurationVar(&opts.maxDelay, "max-delay", time.Second, "Maximum random delay of an item")
	cmd.Flags().IntVar(&opts.watchBuffer, "watch-buffer", 16, "Number of change events buffered for the watcher")

	return cmd
}

func runDelay(ctx context.Context, out io.Writer, opts delayOptions) error {
	if opts.maxDelay <= 0 {
		return fmt.Errorf("--max-delay must be positive, got %s", opts.maxDelay)
	}

	q, err := delayqueue.NewFromMetadata[scheduled](metadata.Properties{
		"maxDelay":        opts.maxDelay.String(),
		"watchBufferSize": strconv.Itoa(opts.watchBuffer),
	})
	if err != nil {
		return err
	}
	defer q.Close()

	var released, taken atomic.Int64
	q.AddChangeListener(func(ev delayqueue.ChangeEvent) {
		if ev.Kind == delayqueue.ChangeReleased {
			released.Add(1)
		}
	})

	for i := range opts.items {
		d := time.Duration(rand.Int63n(int64(opts.maxDelay))) //nolint:gosec
		if err = q.Add(scheduled{id: i, delay: d, added: time.Now()}, d); err != nil {
			return err
		}
	}
	log.Infof("Scheduled %d items, next release in %s", q.Len(), q.DelayToNextExpiry())

	events := make(chan delayqueue.ChangeEvent, opts.watchBuffer)
	watch := func(ctx context.Context) error {
		q.Watch(ctx, events)
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				log.Debugf("Delay queue %s, %d items left", ev.Kind, ev.Len)
			}
		}
	}

	consume := func(ctx context.Context) error {
		for range opts.items {
			item, err := q.TakeContext(ctx)
			if err != nil {
				return err
			}
			late := time.Since(item.added) - item.delay
			taken.Add(1)
			fmt.Fprintf(out, "item=%d delay=%s late=%s\n", item.id, item.delay, late)
		}
		return nil
	}

	if err = concurrency.NewRunnerManager(q.Run, consume, watch).Run(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "taken=%d released-by-worker=%d\n", taken.Load(), released.Load())
	return nil
}
