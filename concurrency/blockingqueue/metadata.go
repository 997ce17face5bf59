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
	"fmt"

	"github.com/dapr/queuekit/metadata"
)

// Metadata is the configuration of a queue, as read from a metadata map.
type Metadata struct {
	// Capacity is the maximum number of elements. Unset means unbounded.
	Capacity *int `mapstructure:"capacity" mapstructurealiases:"maxSize,size"`
}

// NewFromMetadata creates a queue configured from md.
func NewFromMetadata[T any](md metadata.Properties, opts ...Option) (*Queue[T], error) {
	var m Metadata
	if err := md.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode blocking queue metadata: %w", err)
	}
	if m.Capacity == nil {
		return NewUnbounded[T](opts...), nil
	}
	return New[T](*m.Capacity, opts...)
}
