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
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dapr/queuekit/concurrency/blockingqueue"
	"github.com/dapr/queuekit/logger"
	"github.com/dapr/queuekit/metadata"
	"github.com/dapr/queuekit/retry"
)

var errQueueFull = errors.New("queue is full")

// defaultBackoff is merged under the --backoff flag.
var defaultBackoff = metadata.Properties{
	"policy":          string(retry.PolicyExponential),
	"initialInterval": "1ms",
	"maxInterval":     "50ms",
	"maxRetries":      "5",
}

type blockingOptions struct {
	capacity  int
	producers int
	consumers int
	items     int
	timeout   time.Duration
	backoff   map[string]string
}

type blockingResult struct {
	produced int64
	consumed int64
	dropped  int64
}

func newBlockingCmd() *cobra.Command {
	var opts blockingOptions

	cmd := &cobra.Command{
		Use:   "blocking",
		Short: "Run producers and consumers against a bounded blocking queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runBlocking(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "produced=%d consumed=%d dropped=%d\n", res.produced, res.consumed, res.dropped)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.capacity, "capacity", 4, "Capacity of the queue")
	cmd.Flags().IntVar(&opts.producers, "producers", 2, "Number of producers")
	cmd.Flags().IntVar(&opts.consumers, "consumers", 2, "Number of consumers")
	cmd.Flags().IntVar(&opts.items, "items", 100, "Number of items each producer puts")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Second, "Timeout of blocking puts and takes")
	cmd.Flags().StringToStringVar(&opts.backoff, "backoff", nil,
		"Back off policy used when offering to a full queue. Unset keys default to policy=exponential,initialInterval=1ms,maxInterval=50ms,maxRetries=5")

	return cmd
}

func runBlocking(ctx context.Context, opts blockingOptions) (blockingResult, error) {
	var res blockingResult

	q, err := blockingqueue.NewFromMetadata[string](metadata.Properties{
		"capacity": strconv.Itoa(opts.capacity),
	})
	if err != nil {
		return res, err
	}

	backoffProps := metadata.Properties(opts.backoff).Merge(defaultBackoff)
	var backoffCfg retry.Config
	if err = retry.DecodeConfig(&backoffCfg, backoffProps); err != nil {
		return res, fmt.Errorf("invalid back off configuration: %w", err)
	}
	if policy, ok := backoffProps.GetProperty("policy"); ok {
		log.Debugf("Producers back off with the %s policy when the queue is full", policy)
	}

	var (
		produced, consumed, dropped atomic.Int64
		producersWg, consumersWg    sync.WaitGroup
		producersDone               atomic.Bool
	)

	producersWg.Add(opts.producers)
	for p := range opts.producers {
		go func() {
			defer producersWg.Done()
			for i := range opts.items {
				if ctx.Err() != nil {
					return
				}

				item := fmt.Sprintf("p%d-%d", p, i)
				err := retry.NotifyRecover(func() error {
					if q.Offer(item) {
						return nil
					}
					return errQueueFull
				}, backoffCfg.NewBackOffWithContext(ctx), func(err error, d time.Duration) {
					log.Debugf("Producer %d: %v, retrying in %s", p, err, d)
				}, func() {
					log.Debugf("Producer %d: queue has room again", p)
				})
				if err != nil && !q.PutTimeout(item, opts.timeout) {
					log.Warnf("Producer %d: dropping %s, queue still full after %s", p, item, opts.timeout)
					dropped.Add(1)
					continue
				}
				produced.Add(1)
			}
		}()
	}

	consumersWg.Add(opts.consumers)
	for c := range opts.consumers {
		go func() {
			defer consumersWg.Done()
			for {
				item, ok := q.TakeTimeout(opts.timeout)
				if ok {
					log.Debugf("Consumer %d: took %s", c, item)
					consumed.Add(1)
					continue
				}
				if ctx.Err() != nil || (producersDone.Load() && q.IsEmpty()) {
					return
				}
				log.Infof("Consumer %d: idle, %d producers waiting", c, q.WaitingProducers())
			}
		}()
	}

	producersWg.Wait()
	producersDone.Store(true)
	consumersWg.Wait()

	res.produced = produced.Load()
	res.consumed = consumed.Load()
	res.dropped = dropped.Load()
	log.WithLogType(logger.LogTypeMetric).WithFields(map[string]any{
		"produced": res.produced,
		"consumed": res.consumed,
		"dropped":  res.dropped,
		"len":      q.Len(),
	}).Info("Blocking queue simulation finished")

	return res, ctx.Err()
}
