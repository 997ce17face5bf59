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
	"fmt"
	"time"

	"github.com/dapr/queuekit/metadata"
)

// Metadata is the configuration of a queue, as read from a metadata map.
type Metadata struct {
	// WatchBufferSize is the number of change events buffered per watcher.
	WatchBufferSize *int `mapstructure:"watchBufferSize" mapstructurealiases:"bufferSize"`
	// MaxDelay caps the delay of added items. Accepts a Go duration or a
	// number of seconds.
	MaxDelay time.Duration `mapstructure:"maxDelay"`
}

// NewFromMetadata creates a queue configured from md. Values in md override
// the given options.
func NewFromMetadata[T any](md metadata.Properties, opts ...Option) (*Queue[T], error) {
	var m Metadata
	if err := md.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode delay queue metadata: %w", err)
	}
	if m.MaxDelay < 0 {
		return nil, fmt.Errorf("delay queue maxDelay must not be negative: %s", m.MaxDelay)
	}
	if m.WatchBufferSize != nil && *m.WatchBufferSize < 0 {
		return nil, fmt.Errorf("delay queue watchBufferSize must not be negative: %d", *m.WatchBufferSize)
	}

	if m.MaxDelay > 0 {
		opts = append(opts, WithMaxDelay(m.MaxDelay))
	}
	if m.WatchBufferSize != nil {
		opts = append(opts, WithWatchBufferSize(*m.WatchBufferSize))
	}
	return New[T](opts...), nil
}
